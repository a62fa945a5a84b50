package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSoundDomain(t *testing.T) {
	tests := []struct {
		name     string
		blocking []bool
		source   int
		want     []int
	}{
		{"open row", []bool{false, false, false}, 0, []int{0, 1, 2, 3}},
		{"second blocking line stops sound", []bool{true, false, true}, 0, []int{0, 1, 2}},
		{"source between two blocking lines", []bool{true, false, true}, 1, []int{0, 1, 2, 3}},
		{"two blocking lines in a row", []bool{true, true}, 0, []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := rowMap(t, tt.blocking...)
			assert.Equal(t, tt.want, SoundDomain(m.Sectors[tt.source], nil).Indices())
		})
	}
}

func TestSoundDomain_PrefersCheaperRoute(t *testing.T) {
	// M is reachable across b1 and through the open corridor; the corridor
	// route leaves b2 available to reach D
	m, _, _ := detourMap(t)
	assert.Equal(t, []int{0, 1, 2, 3}, SoundDomain(m.Sectors[0], nil).Indices())
}

func TestSoundDomain_ClosedSector(t *testing.T) {
	b := gridDocument(3, 1, func(a, b int) bool { return false })
	b.doc.Sectors[1].Floor = 64
	b.doc.Sectors[1].Ceiling = 64
	m := b.build(t)

	assert.Equal(t, []int{0}, SoundDomain(m.Sectors[0], nil).Indices())

	open := func(*Linedef) bool { return false }
	assert.Equal(t, []int{0, 1, 2}, SoundDomain(m.Sectors[0], open).Indices())
}

func TestSoundDomain_NilSource(t *testing.T) {
	assert.Empty(t, SoundDomain(nil, nil))
}

func TestSectorSet(t *testing.T) {
	m := rowMap(t, false, false, false)
	a := NewSectorSet(m.Sectors[2], m.Sectors[0], nil, m.Sectors[1])
	b := NewSectorSet(m.Sectors[1], m.Sectors[3])

	assert.Equal(t, []int{0, 1, 2}, a.Indices())
	assert.Equal(t, []int{1}, a.Intersect(b).Indices())
	assert.False(t, a.Contains(nil))
	assert.Equal(t, []int{1, 3}, m.SectorsByIndex([]int{3, 1, 7, -1}).Indices())
}
