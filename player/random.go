package player

import (
	"bubbles/game"
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

// Random pops a uniformly chosen region. It is the baseline opponent of the
// experiments.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (p *Random) MakeMove(ctx context.Context, info StepInfo) (game.CellID, bool) {
	if ctx.Err() != nil {
		return uuid.Nil, false
	}
	regions := info.Board.Regions()
	if len(regions) == 0 {
		return uuid.Nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	region := regions[p.rng.Intn(len(regions))]
	return region[p.rng.Intn(len(region))], true
}
