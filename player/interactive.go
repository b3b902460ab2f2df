package player

import (
	"bubbles/game"
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Interactive waits for a cell submitted from outside, typically a UI tap.
type Interactive struct {
	mu      sync.Mutex
	pending chan game.CellID // Non-nil while a MakeMove call is waiting
}

func NewInteractive() *Interactive {
	return &Interactive{}
}

// MakeMove blocks until Submit delivers a cell or ctx is done. Only one call
// may wait at a time; a second concurrent call returns no move.
func (p *Interactive) MakeMove(ctx context.Context, info StepInfo) (game.CellID, bool) {
	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		log.Warn().Msgf("%s already awaiting input, rejecting request", info.Player)
		return uuid.Nil, false
	}
	pending := make(chan game.CellID, 1)
	p.pending = pending
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.pending = nil
		p.mu.Unlock()
	}()

	select {
	case id := <-pending:
		return id, true
	case <-ctx.Done():
		return uuid.Nil, false
	}
}

// Submit hands id to the waiting MakeMove call. It reports false when no call
// is waiting or a cell was already submitted for it.
func (p *Interactive) Submit(id game.CellID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return false
	}
	select {
	case p.pending <- id:
		return true
	default:
		return false
	}
}

func (p *Interactive) Awaiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pending != nil
}
