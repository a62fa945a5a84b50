package main

import (
	"math"

	"github.com/paulmach/orb"
)

// noNode marks an unset predecessor
const noNode = -1

// SoundNode is an immutable vertex of the leak search graph. It stands either
// for the midpoint of a linedef between two sectors of the domain, or for the
// fixed source or destination position.
type SoundNode struct {
	ID        int
	Position  orb.Point
	Linedef   *Linedef // nil for the start and end nodes
	Neighbors []int    // IDs of nodes reachable in one hop
	Blocking  bool     // linedef carries the sound-blocking attribute
	H         float64  // straight-line distance to the destination
}

// newPositionNode creates a node from a raw position. Without a destination
// its heuristic is unknown, so it is left at infinity.
func newPositionNode(id int, position orb.Point) SoundNode {
	return SoundNode{
		ID:        id,
		Position:  position,
		Neighbors: make([]int, 0),
		H:         math.Inf(1),
	}
}

// newTargetedNode creates a node from a position whose heuristic is the
// distance to the destination
func newTargetedNode(id int, position, destination orb.Point) SoundNode {
	n := newPositionNode(id, position)
	n.H = Distance(position, destination)
	return n
}

// newLinedefNode creates the node for a linedef, placed at its midpoint
func newLinedefNode(id int, line *Linedef, destination orb.Point) SoundNode {
	n := newTargetedNode(id, line.Midpoint(), destination)
	n.Linedef = line
	n.Blocking = line.BlocksSound()
	return n
}

// runState holds the transient search metrics of every node, indexed by node
// ID. G, F and predecessors are reset between attempts, skip flags survive
// until the run ends.
type runState struct {
	g    []float64 // cost from start
	f    []float64 // g + heuristic
	from []int     // predecessor node ID
	skip []bool    // blocking status used up by an earlier attempt
}

func newRunState(n int) *runState {
	s := &runState{
		g:    make([]float64, n),
		f:    make([]float64, n),
		from: make([]int, n),
		skip: make([]bool, n),
	}
	s.reset()
	return s
}

// reset clears cost and predecessor of every node but keeps skip flags
func (s *runState) reset() {
	inf := math.Inf(1)
	for i := range s.g {
		s.g[i] = inf
		s.f[i] = inf
		s.from[i] = noNode
	}
}

// clearSkips forgets which blocking nodes were used up
func (s *runState) clearSkips() {
	for i := range s.skip {
		s.skip[i] = false
	}
}

// reached reports whether the node got a finite cost during the attempt
func (s *runState) reached(id int) bool {
	return !math.IsInf(s.g[id], 1)
}
