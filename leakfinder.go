package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidDomain indicates that the sector set handed to the leak finder
	// does not contain both the start and the end sector
	ErrInvalidDomain = errors.New("sound propagation domain does not contain both the start and end sectors")

	// ErrNilSector indicates that the start or end sector is missing
	ErrNilSector = errors.New("start and end sectors must not be nil")

	// ErrNotLinedefNode is returned when sector linking reaches a node that
	// does not stand for a two-sided linedef
	ErrNotLinedefNode = errors.New("node is not a two-sided linedef node")
)

// Option configures a LeakFinder
type Option func(*options)

type options struct {
	heightBlocked func(*Linedef) bool
	workers       int
	maxAttempts   int
	logger        *log.Logger
}

// WithHeightCheck replaces the floor/ceiling occlusion predicate. Lines for
// which it returns true never become graph nodes.
func WithHeightCheck(fn func(*Linedef) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.heightBlocked = fn
		}
	}
}

// WithWorkers sets how many goroutines link node neighbors during construction
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMaxAttempts caps the number of search attempts of FindLeak. Zero means
// no cap.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxAttempts = n
		}
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// LeakFinder decides whether sound can travel between two points of a map.
// It builds a graph whose nodes are the midpoints of the lines between
// sectors of a domain, and searches it for a path that crosses at most one
// sound-blocking line.
//
// A LeakFinder is not safe for concurrent use.
type LeakFinder struct {
	start, end int
	nodes      []SoundNode
	lines      map[*Linedef]int // linedef -> node ID
	sectors    SectorSet
	state      *runState

	heightBlocked func(*Linedef) bool
	maxAttempts   int
	logger        *log.Logger

	numBlocking int
	numSkipped  int
	attempts    int
	explored    int
	finished    bool
	found       bool
}

// NewLeakFinder builds the search graph for sound travelling from
// sourcePosition in source to destinationPosition in destination, restricted
// to the sectors of domain. It fails with ErrInvalidDomain if the domain does
// not contain both sectors.
func NewLeakFinder(source *Sector, sourcePosition orb.Point, destination *Sector, destinationPosition orb.Point, domain SectorSet, opts ...Option) (*LeakFinder, error) {
	if source == nil || destination == nil {
		return nil, ErrNilSector
	}
	if !domain.Contains(source) || !domain.Contains(destination) {
		return nil, fmt.Errorf("sectors %d and %d: %w", source.Index, destination.Index, ErrInvalidDomain)
	}

	cfg := options{
		heightBlocked: IsSoundBlockedByHeight,
		workers:       runtime.GOMAXPROCS(0),
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	lf := &LeakFinder{
		start:         0,
		end:           1,
		lines:         make(map[*Linedef]int),
		sectors:       domain,
		heightBlocked: cfg.heightBlocked,
		maxAttempts:   cfg.maxAttempts,
		logger:        cfg.logger,
	}

	lf.nodes = []SoundNode{
		newTargetedNode(lf.start, sourcePosition, destinationPosition),
		newTargetedNode(lf.end, destinationPosition, destinationPosition),
	}

	if err := lf.generateNodes(cfg.workers); err != nil {
		return nil, fmt.Errorf("link sound nodes: %w", err)
	}

	lf.populateStartEndNeighbors(source, lf.start)
	lf.populateStartEndNeighbors(destination, lf.end)
	if source == destination {
		lf.link(lf.start, lf.end)
	}

	lf.state = newRunState(len(lf.nodes))
	lf.state.g[lf.start] = 0
	lf.state.f[lf.start] = lf.nodes[lf.start].H

	return lf, nil
}

// checkLinedefValidity reports whether the line is an internal boundary of
// the domain that sound could cross
func (lf *LeakFinder) checkLinedefValidity(l *Linedef) bool {
	if l.Front == nil || l.Back == nil || l.Front.Sector == nil || l.Back.Sector == nil {
		return false
	}

	if l.Front.Sector == l.Back.Sector {
		return false
	}

	if lf.heightBlocked(l) {
		return false
	}

	return lf.sectors.Contains(l.Front.Sector) && lf.sectors.Contains(l.Back.Sector)
}

// generateNodes creates one node per valid linedef and links nodes that share
// a sector
func (lf *LeakFinder) generateNodes(workers int) error {
	destination := lf.nodes[lf.end].Position

	for _, sector := range lf.sectors.Sorted() {
		for _, sd := range sector.Sidedefs {
			if _, exists := lf.lines[sd.Line]; exists || !lf.checkLinedefValidity(sd.Line) {
				continue
			}

			id := len(lf.nodes)
			lf.lines[sd.Line] = id
			lf.nodes = append(lf.nodes, newLinedefNode(id, sd.Line, destination))

			if lf.nodes[id].Blocking {
				lf.numBlocking++
			}
		}
	}

	// The node list and the linedef lookup are read-only from here on, and
	// every goroutine writes only the neighbor list of its own node
	var g errgroup.Group
	g.SetLimit(workers)
	for id := lf.end + 1; id < len(lf.nodes); id++ {
		g.Go(func() error {
			return lf.linkSectorNeighbors(id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	interconnections := 0
	for _, n := range lf.nodes {
		interconnections += len(n.Neighbors)
	}
	lf.logger.Debug("generated sound nodes", "nodes", len(lf.lines), "blocking", lf.numBlocking, "interconnections", interconnections)
	return nil
}

// linkSectorNeighbors connects a linedef node to every other linedef node
// bordering its front or back sector
func (lf *LeakFinder) linkSectorNeighbors(id int) error {
	node := &lf.nodes[id]
	line := node.Linedef
	if line == nil || line.Front == nil || line.Back == nil {
		return fmt.Errorf("node %d: %w", id, ErrNotLinedefNode)
	}
	seen := make(map[int]struct{})

	for _, sector := range [2]*Sector{line.Front.Sector, line.Back.Sector} {
		for _, sd := range sector.Sidedefs {
			if sd.Line == line {
				continue
			}
			other, ok := lf.lines[sd.Line]
			if !ok {
				continue
			}
			if _, dup := seen[other]; dup {
				continue
			}
			seen[other] = struct{}{}
			node.Neighbors = append(node.Neighbors, other)
		}
	}
	return nil
}

// populateStartEndNeighbors connects a start or end node to the linedef
// nodes of the sector it is in, in both directions
func (lf *LeakFinder) populateStartEndNeighbors(sector *Sector, id int) {
	for _, sd := range sector.Sidedefs {
		if other, ok := lf.lines[sd.Line]; ok {
			lf.link(id, other)
		}
	}
}

// link adds a symmetric neighbor relation unless it already exists
func (lf *LeakFinder) link(a, b int) {
	for _, n := range lf.nodes[a].Neighbors {
		if n == b {
			return
		}
	}
	lf.nodes[a].Neighbors = append(lf.nodes[a].Neighbors, b)
	lf.nodes[b].Neighbors = append(lf.nodes[b].Neighbors, a)
}

// beginRun prepares a fresh FindLeak run
func (lf *LeakFinder) beginRun() {
	lf.state.reset()
	lf.state.clearSkips()
	lf.state.g[lf.start] = 0
	lf.state.f[lf.start] = lf.nodes[lf.start].H

	lf.numSkipped = 0
	lf.attempts = 0
	lf.explored = 0
	lf.finished = false
	lf.found = false
}

// Start returns the ID of the source node
func (lf *LeakFinder) Start() int { return lf.start }

// End returns the ID of the destination node
func (lf *LeakFinder) End() int { return lf.end }

// Nodes returns all graph nodes, indexed by ID. The slice must not be modified.
func (lf *LeakFinder) Nodes() []SoundNode { return lf.nodes }

// Sectors returns the domain the graph was built from
func (lf *LeakFinder) Sectors() SectorSet { return lf.sectors }

// NodeFor returns the node ID of a linedef, if the linedef is part of the graph
func (lf *LeakFinder) NodeFor(l *Linedef) (int, bool) {
	id, ok := lf.lines[l]
	return id, ok
}

// NumBlockingNodes returns how many linedef nodes carry the sound-blocking attribute
func (lf *LeakFinder) NumBlockingNodes() int { return lf.numBlocking }

// Attempts returns how many searches the last FindLeak call ran
func (lf *LeakFinder) Attempts() int { return lf.attempts }

// Explored returns how many nodes the last FindLeak call took off the frontier
func (lf *LeakFinder) Explored() int { return lf.explored }

// Finished reports whether FindLeak has completed
func (lf *LeakFinder) Finished() bool { return lf.finished }

// Skipped returns the IDs of blocking nodes given up by the last FindLeak call
func (lf *LeakFinder) Skipped() []int {
	skipped := make([]int, 0, lf.numSkipped)
	for id, skip := range lf.state.skip {
		if skip {
			skipped = append(skipped, id)
		}
	}
	return skipped
}

// Predecessor returns the node through which id was reached, or -1
func (lf *LeakFinder) Predecessor(id int) int {
	return lf.state.from[id]
}

// Path returns the node IDs of the leak from start to end, or nil if the
// last FindLeak call found none
func (lf *LeakFinder) Path() []int {
	if !lf.found {
		return nil
	}

	path := []int{}
	for id := lf.end; id != noNode; id = lf.state.from[id] {
		path = append([]int{id}, path...)
		if id == lf.start {
			break
		}
	}
	return path
}

// PathPoints returns the positions along the leak
func (lf *LeakFinder) PathPoints() []orb.Point {
	path := lf.Path()
	points := make([]orb.Point, len(path))
	for i, id := range path {
		points[i] = lf.nodes[id].Position
	}
	return points
}

// PathLinedefs returns the linedefs the leak crosses, in order
func (lf *LeakFinder) PathLinedefs() []*Linedef {
	lines := []*Linedef{}
	for _, id := range lf.Path() {
		if l := lf.nodes[id].Linedef; l != nil {
			lines = append(lines, l)
		}
	}
	return lines
}
