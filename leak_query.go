package main

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// LoadedMap is a map together with its sector index
type LoadedMap struct {
	ID    string
	Map   *Map
	Index *SpatialIndex
}

// NewLoadedMap indexes the sectors of m
func NewLoadedMap(id string, m *Map) *LoadedMap {
	return &LoadedMap{
		ID:    id,
		Map:   m,
		Index: NewSpatialIndex(m),
	}
}

// LeakQuery describes a single question "can a noise at Start be heard at End"
type LeakQuery struct {
	Start   orb.Point
	End     orb.Point
	Radius  float64 // limit the domain to sectors near Start, 0 for no limit
	Sectors []int   // explicit domain, overrides the sound flood fill
}

// LeakOutcome is the result of running a LeakQuery. Finder is nil when the
// destination lies outside the sound domain of the source, in which case no
// graph was built and Found is false.
type LeakOutcome struct {
	Finder      *LeakFinder
	Found       bool
	Source      *Sector
	Destination *Sector
	Elapsed     time.Duration
}

// Domain resolves the sector set a query searches in. Without explicit
// sectors it is the sound domain of the source sector, optionally cut down to
// the sectors within Radius of the start point.
func (lm *LoadedMap) Domain(q LeakQuery, source *Sector) SectorSet {
	var domain SectorSet
	if len(q.Sectors) > 0 {
		domain = lm.Map.SectorsByIndex(q.Sectors)
	} else {
		domain = SoundDomain(source, nil)
	}

	if q.Radius > 0 {
		domain = domain.Intersect(lm.Index.SectorsInRange(q.Start, q.Radius))
	}
	return domain
}

// RunLeakQuery locates the sectors of both points, builds the leak finder
// over the query's domain and searches it
func (lm *LoadedMap) RunLeakQuery(q LeakQuery, opts ...Option) (*LeakOutcome, error) {
	start := time.Now()

	source, err := lm.Index.SectorAt(q.Start)
	if err != nil {
		return nil, fmt.Errorf("start point %v: %w", q.Start, err)
	}
	destination, err := lm.Index.SectorAt(q.End)
	if err != nil {
		return nil, fmt.Errorf("end point %v: %w", q.End, err)
	}

	domain := lm.Domain(q, source)
	if len(q.Sectors) == 0 && !domain.Contains(destination) {
		// Out of earshot: the flood fill already proved there is no path
		return &LeakOutcome{
			Source:      source,
			Destination: destination,
			Elapsed:     time.Since(start),
		}, nil
	}

	lf, err := NewLeakFinder(source, q.Start, destination, q.End, domain, opts...)
	if err != nil {
		return nil, err
	}

	found := lf.FindLeak()

	return &LeakOutcome{
		Finder:      lf,
		Found:       found,
		Source:      source,
		Destination: destination,
		Elapsed:     time.Since(start),
	}, nil
}

// Attempts returns how many search attempts the query ran
func (o *LeakOutcome) Attempts() int {
	if o.Finder == nil {
		return 0
	}
	return o.Finder.Attempts()
}

// NumNodes returns the size of the search graph, 0 if none was built
func (o *LeakOutcome) NumNodes() int {
	if o.Finder == nil {
		return 0
	}
	return len(o.Finder.Nodes())
}
