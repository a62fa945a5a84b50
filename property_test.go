package main

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/paulmach/orb"
)

// gridFinder searches from the first to the last cell of a random grid
func gridFinder(t *testing.T, w, h int, seed int64, ratio float64) (*Map, *LeakFinder) {
	m := randomGridMap(t, w, h, seed, ratio)
	cellCenter := func(id int) orb.Point {
		return orb.Point{float64(id%w)*cell + cell/2, float64(id/w)*cell + cell/2}
	}

	last := len(m.Sectors) - 1
	lf, err := NewLeakFinder(m.Sectors[0], cellCenter(0), m.Sectors[last], cellCenter(last),
		allSectors(m), WithLogger(quietLogger()), WithWorkers(4))
	if err != nil {
		t.Fatalf("build finder: %v", err)
	}
	return m, lf
}

// TestLeakFinderInvariants checks structural properties of the search graph
// and of search results over random grid maps
func TestLeakFinderInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("every valid linedef has exactly one node", prop.ForAll(
		func(w, h int, seed int64, ratio float64) bool {
			m, lf := gridFinder(t, w, h, seed, ratio)

			seen := make(map[*Linedef]bool)
			for _, n := range lf.Nodes()[lf.End()+1:] {
				if n.Linedef == nil || seen[n.Linedef] {
					return false
				}
				seen[n.Linedef] = true
			}

			internal := 0
			for _, l := range m.Linedefs {
				if l.Back != nil {
					internal++
				}
			}
			return len(seen) == internal
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
		gen.Int64(),
		gen.Float64Range(0, 1),
	))

	properties.Property("neighbor relation is symmetric", prop.ForAll(
		func(w, h int, seed int64, ratio float64) bool {
			_, lf := gridFinder(t, w, h, seed, ratio)
			nodes := lf.Nodes()

			for _, n := range nodes {
				for _, nb := range n.Neighbors {
					found := false
					for _, back := range nodes[nb].Neighbors {
						if back == n.ID {
							found = true
							break
						}
					}
					if !found || nb == n.ID {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
		gen.Int64(),
		gen.Float64Range(0, 1),
	))

	properties.Property("a leak crosses at most one blocking line", prop.ForAll(
		func(w, h int, seed int64, ratio float64) bool {
			m, lf := gridFinder(t, w, h, seed, ratio)
			if !lf.FindLeak() {
				return true
			}

			path := lf.Path()
			if len(path) < 2 || path[0] != lf.Start() || path[len(path)-1] != lf.End() {
				return false
			}
			if blockingOnPath(lf) > 1 {
				return false
			}

			// a leak implies the destination is inside the flood-filled domain
			return SoundDomain(m.Sectors[0], nil).Contains(m.Sectors[len(m.Sectors)-1])
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
		gen.Int64(),
		gen.Float64Range(0, 1),
	))

	properties.Property("only reached blocking nodes are skipped", prop.ForAll(
		func(w, h int, seed int64, ratio float64) bool {
			_, lf := gridFinder(t, w, h, seed, ratio)
			lf.FindLeak()

			skipped := lf.Skipped()
			if len(skipped) > lf.NumBlockingNodes() {
				return false
			}
			for _, id := range skipped {
				if !lf.Nodes()[id].Blocking {
					return false
				}
			}
			return lf.Finished() && lf.Attempts() <= lf.NumBlockingNodes()+1
		},
		gen.IntRange(1, 6),
		gen.IntRange(1, 6),
		gen.Int64(),
		gen.Float64Range(0, 1),
	))

	properties.Property("a row leaks exactly when at most one line blocks", prop.ForAll(
		func(blocking []bool) bool {
			if len(blocking) == 0 {
				return true
			}
			m := rowMap(t, blocking...)
			lf := newRowFinder(t, m, allSectors(m))

			count := 0
			for _, b := range blocking {
				if b {
					count++
				}
			}
			return lf.FindLeak() == (count <= 1)
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
