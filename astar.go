package main

import (
	"container/heap"
)

// openItem is an entry of the search frontier
type openItem struct {
	NodeID int
	F      float64
	Seq    int // insertion order, breaks ties between equal F values
	Index  int // Index in the heap
}

// PriorityQueue implements heap.Interface for the best-first search
type PriorityQueue []*openItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].F == pq[j].F {
		return pq[i].Seq < pq[j].Seq
	}
	return pq[i].F < pq[j].F
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].Index = i
	pq[j].Index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*openItem)
	item.Index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.Index = -1
	*pq = old[0 : n-1]
	return item
}

// openSet couples the heap with a per-node membership table so that "is it in
// the frontier" does not require scanning the heap
type openSet struct {
	pq    PriorityQueue
	items []*openItem // items[id] != nil while node id is in the frontier
	seq   int
}

func newOpenSet(numNodes int) *openSet {
	return &openSet{
		pq:    make(PriorityQueue, 0, numNodes),
		items: make([]*openItem, numNodes),
	}
}

func (o *openSet) Len() int { return o.pq.Len() }

func (o *openSet) Contains(id int) bool { return o.items[id] != nil }

// Push adds the node with the given cost, or lowers the cost of a node that
// is already present. A node keeps its original insertion order while it
// stays in the set.
func (o *openSet) Push(id int, f float64) {
	if item := o.items[id]; item != nil {
		item.F = f
		heap.Fix(&o.pq, item.Index)
		return
	}

	item := &openItem{NodeID: id, F: f, Seq: o.seq}
	o.seq++
	o.items[id] = item
	heap.Push(&o.pq, item)
}

// PopMin removes and returns the node with the lowest cost
func (o *openSet) PopMin() int {
	item := heap.Pop(&o.pq).(*openItem)
	o.items[item.NodeID] = nil
	return item.NodeID
}

// expandNeighbors relaxes every neighbor of current. A neighbor is ignored if
// its blocking status was used up by an earlier attempt, or if it is blocking
// and the path to current already crossed a blocking line.
func (lf *LeakFinder) expandNeighbors(open *openSet, current int) {
	node := &lf.nodes[current]
	state := lf.state

	for _, neighbor := range node.Neighbors {
		next := &lf.nodes[neighbor]

		if state.skip[neighbor] || (next.Blocking && lf.hasBlockingInPath(current)) {
			continue
		}

		// Calculate costs
		tentativeG := state.g[current] + Distance(node.Position, next.Position)
		if tentativeG < state.g[neighbor] {
			state.from[neighbor] = current
			state.g[neighbor] = tentativeG
			state.f[neighbor] = tentativeG + next.H
			open.Push(neighbor, state.f[neighbor])
		}
	}
}

// hasBlockingInPath walks the predecessor chain from id back to the start
// node and reports whether it contains a blocking node, id included
func (lf *LeakFinder) hasBlockingInPath(id int) bool {
	for current := id; current != lf.start && current != noNode; current = lf.state.from[current] {
		if lf.nodes[current].Blocking {
			return true
		}
	}
	return false
}

// search runs a single best-first attempt from start to end
func (lf *LeakFinder) search() bool {
	open := newOpenSet(len(lf.nodes))
	open.Push(lf.start, lf.state.f[lf.start])

	for open.Len() > 0 {
		current := open.PopMin()
		lf.explored++

		// Check if we reached the goal
		if current == lf.end {
			return true
		}

		lf.expandNeighbors(open, current)
	}

	return false
}

// FindLeak searches for a path from the start to the end node that crosses
// at most one sound-blocking line. When an attempt fails, every blocking node
// it reached is marked as skipped and the search is repeated, until a path is
// found or no blocking node is left to give up.
//
// After a true result the path can be read with Path or PathPoints. A false
// result is the normal outcome for sectors that cannot hear each other.
func (lf *LeakFinder) FindLeak() bool {
	lf.beginRun()

	for {
		lf.attempts++

		if lf.search() {
			lf.finished = true
			lf.found = true
			lf.logger.Debug("leak found", "attempts", lf.attempts, "explored", lf.explored, "skipped", lf.numSkipped)
			return true
		}

		newlySkipped := 0
		for id := range lf.nodes {
			if lf.nodes[id].Blocking && !lf.state.skip[id] && lf.state.reached(id) {
				lf.state.skip[id] = true
				newlySkipped++
			}
		}
		lf.numSkipped += newlySkipped

		lf.state.reset()
		lf.state.g[lf.start] = 0
		lf.state.f[lf.start] = lf.nodes[lf.start].H

		lf.logger.Debug("attempt failed", "attempt", lf.attempts, "newly_skipped", newlySkipped, "skipped", lf.numSkipped, "blocking", lf.numBlocking)

		// Every blocking line has been tried, or nothing changed since the
		// previous attempt and the next one would replay it
		if lf.numSkipped == lf.numBlocking || newlySkipped == 0 {
			break
		}
		if lf.maxAttempts > 0 && lf.attempts >= lf.maxAttempts {
			lf.logger.Warn("leak search gave up", "attempts", lf.attempts)
			break
		}
	}

	lf.finished = true
	return false
}
