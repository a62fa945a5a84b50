package main

import (
	"io"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const cell = 64.0

// mapBuilder assembles map documents for tests, deduplicating vertices
type mapBuilder struct {
	doc   MapDocument
	verts map[orb.Point]int
}

func newMapBuilder() *mapBuilder {
	return &mapBuilder{verts: make(map[orb.Point]int)}
}

// sector adds an open sector (floor 0, ceiling 128) and returns its index
func (b *mapBuilder) sector() int {
	return b.sectorWithHeights(0, 128)
}

func (b *mapBuilder) sectorWithHeights(floor, ceiling float64) int {
	b.doc.Sectors = append(b.doc.Sectors, SectorDocument{Floor: floor, Ceiling: ceiling})
	return len(b.doc.Sectors) - 1
}

func (b *mapBuilder) vertex(x, y float64) int {
	p := orb.Point{x, y}
	if idx, ok := b.verts[p]; ok {
		return idx
	}
	b.doc.Vertices = append(b.doc.Vertices, VertexDocument{X: x, Y: y})
	b.verts[p] = len(b.doc.Vertices) - 1
	return b.verts[p]
}

// wall adds a one-sided line
func (b *mapBuilder) wall(x1, y1, x2, y2 float64, front int) int {
	return b.line(x1, y1, x2, y2, front, -1, false)
}

// line adds a line; back < 0 makes it one-sided
func (b *mapBuilder) line(x1, y1, x2, y2 float64, front, back int, blocking bool) int {
	ld := LinedefDocument{
		V1:         b.vertex(x1, y1),
		V2:         b.vertex(x2, y2),
		Front:      &SidedefDocument{Sector: front},
		BlockSound: blocking,
	}
	if back >= 0 {
		ld.Back = &SidedefDocument{Sector: back}
	}
	b.doc.Linedefs = append(b.doc.Linedefs, ld)
	return len(b.doc.Linedefs) - 1
}

func (b *mapBuilder) build(t testing.TB) *Map {
	t.Helper()
	m, err := b.doc.Build()
	require.NoError(t, err)
	return m
}

// gridDocument lays out w*h square sectors; sector (i, j) has index j*w+i.
// blocking decides for each internal line whether it blocks sound.
func gridDocument(w, h int, blocking func(a, b int) bool) *mapBuilder {
	b := newMapBuilder()
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			b.sector()
		}
	}

	id := func(i, j int) int { return j*w + i }

	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			x0, y0 := float64(i)*cell, float64(j)*cell
			x1, y1 := x0+cell, y0+cell

			if j == 0 {
				b.wall(x0, y0, x1, y0, id(i, j))
			}
			if j == h-1 {
				b.wall(x1, y1, x0, y1, id(i, j))
			} else {
				b.line(x0, y1, x1, y1, id(i, j), id(i, j+1), blocking(id(i, j), id(i, j+1)))
			}
			if i == 0 {
				b.wall(x0, y1, x0, y0, id(i, j))
			}
			if i == w-1 {
				b.wall(x1, y0, x1, y1, id(i, j))
			} else {
				b.line(x1, y0, x1, y1, id(i, j), id(i+1, j), blocking(id(i, j), id(i+1, j)))
			}
		}
	}
	return b
}

// rowMap builds len(blocking)+1 sectors in a row; blocking[i] is the line
// between sector i and i+1
func rowMap(t testing.TB, blocking ...bool) *Map {
	t.Helper()
	return gridDocument(len(blocking)+1, 1, func(a, b int) bool {
		return blocking[a]
	}).build(t)
}

// randomGridMap builds a grid with blocking lines chosen from seed
func randomGridMap(t testing.TB, w, h int, seed int64, blockRatio float64) *Map {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	return gridDocument(w, h, func(a, b int) bool {
		return rng.Float64() < blockRatio
	}).build(t)
}

// detourMap returns a map where the shortest first step crosses blocking
// line b1 into sector M, from where only blocking line b2 leads on to the
// destination sector D. The open corridor C connects S and M:
//
//	+-------C-------+
//	|       |       |
//	|   S  b1   M  b2   D
//	+-------+-------+-------+
//
// It also returns the indices of b1 and b2.
func detourMap(t testing.TB) (*Map, int, int) {
	t.Helper()
	b := newMapBuilder()
	s, m, d, c := b.sector(), b.sector(), b.sector(), b.sector()

	b.wall(0, 0, 64, 0, s)
	b.wall(0, 64, 0, 0, s)
	b1 := b.line(64, 0, 64, 64, s, m, true)
	b.line(0, 64, 64, 64, s, c, false)

	b.wall(64, 0, 128, 0, m)
	b2 := b.line(128, 0, 128, 64, m, d, true)
	b.line(64, 64, 128, 64, m, c, false)

	b.wall(128, 0, 192, 0, d)
	b.wall(192, 0, 192, 64, d)
	b.wall(192, 64, 128, 64, d)

	b.wall(128, 128, 0, 128, c)
	b.wall(0, 128, 0, 64, c)
	b.wall(128, 64, 128, 128, c)

	return b.build(t), b1, b2
}

// center returns the middle of grid cell i in a row map
func center(i int) orb.Point {
	return orb.Point{float64(i)*cell + cell/2, cell / 2}
}

func allSectors(m *Map) SectorSet {
	return NewSectorSet(m.Sectors...)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// newRowFinder builds a leak finder from the first to the last sector of m
func newRowFinder(t testing.TB, m *Map, domain SectorSet, opts ...Option) *LeakFinder {
	t.Helper()
	last := len(m.Sectors) - 1
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	lf, err := NewLeakFinder(m.Sectors[0], center(0), m.Sectors[last], center(last), domain, opts...)
	require.NoError(t, err)
	return lf
}

// requireSymmetric checks that every neighbor relation goes both ways and
// that no node lists a neighbor twice or itself
func requireSymmetric(t testing.TB, lf *LeakFinder) {
	t.Helper()
	nodes := lf.Nodes()
	for _, n := range nodes {
		seen := make(map[int]bool)
		for _, nb := range n.Neighbors {
			require.NotEqual(t, n.ID, nb, "node %d lists itself", n.ID)
			require.False(t, seen[nb], "node %d lists %d twice", n.ID, nb)
			seen[nb] = true
			require.Contains(t, nodes[nb].Neighbors, n.ID, "edge %d-%d is one-way", n.ID, nb)
		}
	}
}

// blockingOnPath counts blocking nodes along the found path
func blockingOnPath(lf *LeakFinder) int {
	count := 0
	for _, id := range lf.Path() {
		if lf.Nodes()[id].Blocking {
			count++
		}
	}
	return count
}
