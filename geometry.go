package main

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance calculates the Euclidean distance between two map points
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// Bound returns the axis-aligned bounding box of all lines of the sector
func (s *Sector) Bound() orb.Bound {
	if len(s.Sidedefs) == 0 {
		return orb.Bound{}
	}

	first := s.Sidedefs[0].Line
	bound := first.Segment().Bound()
	for _, sd := range s.Sidedefs[1:] {
		bound = bound.Union(sd.Line.Segment().Bound())
	}
	return bound
}

// Contains checks if a point lies inside the sector using ray casting over
// every line of the sector. Lines are not assumed to form a single ordered
// ring, so sectors with holes or several disjoint parts work too. A line with
// both sides in the sector is visited twice and cancels out.
func (s *Sector) Contains(point orb.Point) bool {
	if len(s.Sidedefs) < 3 {
		return false
	}

	crossings := 0
	for _, sd := range s.Sidedefs {
		v1 := sd.Line.Start
		v2 := sd.Line.End

		// Check if the ray from point to the right crosses the line
		if (v1.Y() > point.Y()) != (v2.Y() > point.Y()) {
			x := v1.X() + (point.Y()-v1.Y())*(v2.X()-v1.X())/(v2.Y()-v1.Y())
			if x > point.X() {
				crossings++
			}
		}
	}

	return crossings%2 == 1
}

// Area returns the area of the sector's bounding box. It is only used to
// prefer the innermost of several nested sectors.
func (s *Sector) Area() float64 {
	b := s.Bound()
	return math.Abs((b.Max.X() - b.Min.X()) * (b.Max.Y() - b.Min.Y()))
}

// IsSoundBlockedByHeight reports whether the floor and ceiling heights of the
// two sectors on either side of the line close the opening completely, which
// stops sound regardless of the line's flags. One-sided lines are never
// considered blocked by height.
func IsSoundBlockedByHeight(l *Linedef) bool {
	if l.Front == nil || l.Back == nil || l.Front.Sector == nil || l.Back.Sector == nil {
		return false
	}

	front := l.Front.Sector
	back := l.Back.Sector

	top := math.Min(front.CeilHeight, back.CeilHeight)
	bottom := math.Max(front.FloorHeight, back.FloorHeight)

	return top <= bottom
}
