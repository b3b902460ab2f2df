package player

import (
	"bubbles/experiments/metrics"
	"bubbles/game"
	"bubbles/searcher"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Automated delegates every decision to a Searcher, using the recommended
// time as the search budget unless a fixed budget is set.
type Automated struct {
	searcher *searcher.Searcher
	budget   time.Duration

	mu   sync.Mutex
	last metrics.SearchMetric
}

type AutomatedOption func(p *Automated)

// WithBudget makes every search last at most budget, whatever the turn loop
// recommends.
func WithBudget(budget time.Duration) AutomatedOption {
	return func(p *Automated) {
		if budget > 0 {
			p.budget = budget
		}
	}
}

func NewAutomated(s *searcher.Searcher, options ...AutomatedOption) *Automated {
	p := &Automated{searcher: s}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *Automated) MakeMove(ctx context.Context, info StepInfo) (game.CellID, bool) {
	budget := info.RecommendedTime
	if p.budget > 0 {
		budget = p.budget
	}
	score := searcher.Score{Own: info.OwnScore, Opponent: info.OpponentScore}
	cell, ok, metric := p.searcher.FindMove(ctx, info.Board, score, budget)
	log.Debug().
		Str("player", info.Player.String()).
		Int("nodes", metric.Nodes).
		Int("levels", metric.Levels).
		Int("failed_chunks", metric.FailedChunks).
		Bool("cancelled", metric.IsCancelled).
		Dur("duration", metric.Duration).
		Msg("search completed")

	p.mu.Lock()
	p.last = metric
	p.mu.Unlock()
	return cell, ok
}

func (p *Automated) LastSearch() metrics.SearchMetric {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last
}
