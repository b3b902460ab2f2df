package searcher

import (
	"bubbles/game"
	"sync"
)

type handle int

const noParent handle = -1

// report is a child's representative score stamped with the child's version,
// so a parent never lets an older value overwrite a newer one.
type report struct {
	score   Score
	version uint64
}

type node struct {
	sync.Mutex
	parent  handle
	board   *game.Board // Released once the node has been expanded
	region  int         // Region index in the parent's board that led here
	level   Level
	score   Score // Accumulated along the path from the root
	best    Score // Representative score after backpropagation
	version uint64
	order   []handle // Children in first-report order, for tie-breaking
	reports map[handle]report
}

func newNode(parent handle, board *game.Board, region int, level Level, score Score) *node {
	return &node{
		parent: parent,
		board:  board,
		region: region,
		level:  level,
		score:  score,
		best:   score,
	}
}

func (n *node) representative() report {
	n.Lock()
	defer n.Unlock()

	return report{score: n.best, version: n.version}
}

// update records a child's report and recomputes the representative score.
// It returns the new representative and whether it changed.
func (n *node) update(child handle, r report) (report, bool) {
	n.Lock()
	defer n.Unlock()

	if n.reports == nil {
		n.reports = make(map[handle]report)
	}
	previous, seen := n.reports[child]
	if seen && previous.version >= r.version {
		return report{}, false
	}
	if !seen {
		n.order = append(n.order, child)
	}
	n.reports[child] = r

	best := n.reports[n.order[0]].score
	for _, h := range n.order[1:] {
		if candidate := n.reports[h].score; n.level.prefers(candidate, best) {
			best = candidate
		}
	}
	if best == n.best {
		return report{}, false
	}
	n.best = best
	n.version++
	return report{score: n.best, version: n.version}, true
}

type arena struct {
	sync.RWMutex
	nodes []*node
}

func (a *arena) add(n *node) handle {
	a.Lock()
	defer a.Unlock()

	a.nodes = append(a.nodes, n)
	return handle(len(a.nodes) - 1)
}

func (a *arena) get(h handle) *node {
	a.RLock()
	defer a.RUnlock()

	return a.nodes[h]
}

func (a *arena) len() int {
	a.RLock()
	defer a.RUnlock()

	return len(a.nodes)
}

// backup reports h's representative score to its ancestors until one of them
// does not change.
func (a *arena) backup(h handle) {
	n := a.get(h)
	r := n.representative()
	for parent := n.parent; parent != noParent; {
		p := a.get(parent)
		next, changed := p.update(h, r)
		if !changed {
			return
		}
		h, r, parent = parent, next, p.parent
	}
}
