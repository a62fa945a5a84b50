package main

import (
	"sort"

	"github.com/paulmach/orb"
)

// FlagBlockSound is the legacy (Doom/Hexen format) linedef flag bit that stops
// sound from travelling across the line
const FlagBlockSound = 0x0020

// Map is the read-only level geometry consumed by the leak finder
type Map struct {
	Vertices []orb.Point
	Sectors  []*Sector
	Sidedefs []*Sidedef
	Linedefs []*Linedef
}

// Sector represents a closed region of the map bounded by sidedefs
type Sector struct {
	Index       int
	FloorHeight float64
	CeilHeight  float64
	Sidedefs    []*Sidedef
}

// Sidedef is one sector-facing side of a linedef
type Sidedef struct {
	Index  int
	Line   *Linedef
	Sector *Sector
}

// Linedef represents a wall segment with one or two sides
type Linedef struct {
	Index      int
	Start      orb.Point
	End        orb.Point
	Front      *Sidedef
	Back       *Sidedef
	Flags      int
	BlockSound bool // UDMF "blocksound" attribute
}

// BlocksSound reports whether the line carries the sound-blocking attribute,
// either as the legacy flag bit or as the named UDMF field
func (l *Linedef) BlocksSound() bool {
	return l.BlockSound || l.Flags&FlagBlockSound != 0
}

// Midpoint returns the point halfway along the line
func (l *Linedef) Midpoint() orb.Point {
	return orb.Point{
		(l.Start.X() + l.End.X()) / 2,
		(l.Start.Y() + l.End.Y()) / 2,
	}
}

// Segment returns the line as a two-point line string
func (l *Linedef) Segment() orb.LineString {
	return orb.LineString{l.Start, l.End}
}

// SectorSet is a bounded set of sectors, e.g. the sectors a sound can reach
type SectorSet map[*Sector]struct{}

// NewSectorSet creates a set from the given sectors
func NewSectorSet(sectors ...*Sector) SectorSet {
	set := make(SectorSet, len(sectors))
	for _, s := range sectors {
		if s != nil {
			set[s] = struct{}{}
		}
	}
	return set
}

// Add inserts a sector into the set
func (s SectorSet) Add(sector *Sector) {
	s[sector] = struct{}{}
}

// Contains reports whether the sector is a member of the set
func (s SectorSet) Contains(sector *Sector) bool {
	if sector == nil {
		return false
	}
	_, ok := s[sector]
	return ok
}

// Sorted returns the members ordered by sector index so that iteration over
// the set is deterministic
func (s SectorSet) Sorted() []*Sector {
	sectors := make([]*Sector, 0, len(s))
	for sector := range s {
		sectors = append(sectors, sector)
	}
	sort.Slice(sectors, func(i, j int) bool {
		return sectors[i].Index < sectors[j].Index
	})
	return sectors
}

// Indices returns the sorted sector indices of the set
func (s SectorSet) Indices() []int {
	sorted := s.Sorted()
	indices := make([]int, len(sorted))
	for i, sector := range sorted {
		indices[i] = sector.Index
	}
	return indices
}

// Intersect returns the sectors present in both sets
func (s SectorSet) Intersect(other SectorSet) SectorSet {
	result := make(SectorSet)
	for sector := range s {
		if other.Contains(sector) {
			result.Add(sector)
		}
	}
	return result
}

// SectorsByIndex resolves sector indices against the map, ignoring indices
// that are out of range
func (m *Map) SectorsByIndex(indices []int) SectorSet {
	set := make(SectorSet, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < len(m.Sectors) {
			set.Add(m.Sectors[idx])
		}
	}
	return set
}
