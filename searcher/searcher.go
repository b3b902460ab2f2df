package searcher

import (
	"bubbles/experiments/metrics"
	"bubbles/game"
	"bubbles/meta"
	"bubbles/utils"
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Option func(s *Searcher)

// Searcher picks the region to pop by widening a min/max tree one level at a
// time until it runs out of nodes, time or frontier.
type Searcher struct {
	goroutines int
	duration   time.Duration
	maxNodes   int
	metrics    metrics.Collector
	running    atomic.Bool
}

// WithDuration sets the soft budget used when FindMove is given none.
func WithDuration(duration time.Duration) Option {
	return func(s *Searcher) {
		if duration > 0 {
			s.duration = duration
		}
	}
}

func WithMaxNodes(maxNodes int) Option {
	return func(s *Searcher) {
		if maxNodes > 0 {
			s.maxNodes = maxNodes
		}
	}
}

func WithMetrics() Option {
	return func(s *Searcher) {
		s.metrics = metrics.NewCollector()
	}
}

func NewSearcher(goroutines int, options ...Option) *Searcher {
	if goroutines <= 0 {
		goroutines = runtime.NumCPU()
	}
	s := &Searcher{ // Default values
		goroutines: goroutines,
		maxNodes:   meta.MAX_NODES,
		metrics:    metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// FindMove returns a cell of the best region of board for the player holding
// score. The search stops after budget (or the default duration) and never
// mutates board. A call made while another is running returns no move.
func (s *Searcher) FindMove(ctx context.Context, board *game.Board, score Score, budget time.Duration) (game.CellID, bool, metrics.SearchMetric) {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("search already running, rejecting request")
		return uuid.Nil, false, metrics.SearchMetric{}
	}
	defer s.running.Store(false)

	if budget <= 0 {
		budget = s.duration
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	s.metrics.Start(s.goroutines, s.maxNodes, budget)
	regions := board.Regions()
	a := &arena{}
	roots := s.seed(a, board, regions, score)
	s.widen(ctx, a, roots)
	s.metrics.SetCancelled(ctx.Err() != nil)
	metric := s.metrics.Complete()

	best := decide(a, roots)
	if best < 0 {
		return uuid.Nil, false, metric
	}
	log.Debug().Msgf("search picked region %d of %d after %d nodes", best, len(regions), a.len())
	return regions[best][0], true, metric
}

// seed builds level 0: one child per region of the root board, with the
// popped cells credited to the searching player.
func (s *Searcher) seed(a *arena, board *game.Board, regions []game.Region, score Score) []handle {
	roots := make([]handle, 0, len(regions))
	for i, region := range regions {
		next := board.Copy()
		removed, err := next.RemoveRegion(region[0])
		if err != nil {
			panic(fmt.Sprintf("root region %d not found on its own board: %v", i, err))
		}
		roots = append(roots, a.add(newNode(noParent, next, i, Max.Next(), score.add(Max, len(removed)))))
	}
	s.metrics.AddNodes(len(roots))
	return roots
}

func (s *Searcher) widen(ctx context.Context, a *arena, frontier []handle) {
	for depth := 1; len(frontier) > 0; depth++ {
		if ctx.Err() != nil || a.len() >= s.maxNodes {
			return
		}
		frontier = s.expandLevel(ctx, a, frontier)
		s.metrics.AddLevel()
		log.Debug().Msgf("search level %d expanded: frontier=%d nodes=%d", depth, len(frontier), a.len())
	}
}

// expandLevel expands contiguous chunks of the frontier concurrently and
// returns the next frontier once every chunk has finished.
func (s *Searcher) expandLevel(ctx context.Context, a *arena, frontier []handle) []handle {
	chunks := utils.Chunk(frontier, s.goroutines)
	results := make([][]handle, len(chunks))

	var g errgroup.Group
	for i, chunk := range chunks {
		g.Go(func() error {
			children, err := s.expandChunk(ctx, a, chunk)
			if err != nil {
				s.metrics.AddFailedChunk()
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			// Only a finished chunk reports its children and releases its boards
			for _, h := range chunk {
				a.get(h).board = nil
			}
			for _, child := range children {
				a.backup(child)
			}
			s.metrics.AddNodes(len(children))
			results[i] = children
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("search chunk failed, dropping its children")
	}

	next := []handle{}
	for _, children := range results {
		next = append(next, children...)
	}
	return next
}

func (s *Searcher) expandChunk(ctx context.Context, a *arena, chunk []handle) (children []handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			children, err = nil, fmt.Errorf("expansion panicked: %v", r)
		}
	}()

	for _, h := range chunk {
		children = append(children, s.expand(ctx, a, h)...)
	}
	return children, nil
}

// expand creates one child per region of h's board, stopping early on
// cancellation or when the arena is full. The children are not reported to h.
func (s *Searcher) expand(ctx context.Context, a *arena, h handle) []handle {
	n := a.get(h)
	board := n.board

	regions := board.Regions()
	children := make([]handle, 0, len(regions))
	for i, region := range regions {
		if ctx.Err() != nil || a.len() >= s.maxNodes {
			break
		}
		next := board.Copy()
		removed, err := next.RemoveRegion(region[0])
		if err != nil {
			panic(fmt.Sprintf("region %d not found on its own board: %v", i, err))
		}
		children = append(children, a.add(newNode(h, next, i, n.level.Next(), n.score.add(n.level, len(removed)))))
	}
	return children
}

// decide returns the index of the root child with the best representative
// score, first one on ties, or -1 without children.
func decide(a *arena, roots []handle) int {
	best := -1
	bestValue := math.MinInt
	for i, h := range roots {
		if v := a.get(h).representative().score.Value(); v > bestValue {
			best = i
			bestValue = v
		}
	}
	if best < 0 {
		return -1
	}
	return a.get(roots[best]).region
}
