package engine

import (
	"bubbles/experiments/metrics"
	"bubbles/game"
	"bubbles/meta"
	"bubbles/player"
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Engine runs one game: it owns the live board and asks the players for
// moves in turn, racing each of them against the turn countdown.
type Engine struct {
	board   *game.Board
	players [2]player.Player

	recommended  time.Duration
	limit        time.Duration
	tick         time.Duration
	dismissDelay time.Duration
	maxTurns     int
	observers    []func(Status)

	mu     sync.RWMutex
	status Status
}

func NewEngine(board *game.Board, players [2]player.Player, options ...Option) *Engine {
	if board == nil || players[0] == nil || players[1] == nil {
		panic("engine needs a board and two players")
	}
	e := &Engine{ // Default values
		board:        board,
		players:      players,
		recommended:  meta.RECOMMENDED_TIME,
		limit:        meta.TIME_LIMIT,
		tick:         meta.TICK,
		dismissDelay: meta.DISMISS_DELAY,
	}
	for _, option := range options {
		option(e)
	}
	e.status = Status{
		Phase:     Active,
		Rows:      board.Rows(),
		Remaining: -1,
		Active:    player.Player1,
	}
	return e
}

func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.status.Copy()
}

// Run plays until the board is empty, the turn cap is hit or ctx is done.
// A cancelled game ends without a result.
func (e *Engine) Run(ctx context.Context) (Result, metrics.GameMetric, []metrics.MoveMetric) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: int(player.Player1),
		StartTime:      time.Now(),
	}
	moveMetrics := []metrics.MoveMetric{}

	active := player.Player1
	log.Info().Msgf("%s is starting", active)
	e.publish()

	for step := 1; !e.board.IsEmpty(); step++ {
		if ctx.Err() != nil {
			break
		}
		if e.maxTurns > 0 && step > e.maxTurns {
			log.Info().Msgf("stopped after %d turns with cells left", e.maxTurns)
			break
		}

		start := time.Now()
		cell, ok, timedOut := e.turn(ctx, active)
		removed := 0
		if ok {
			removed = e.apply(ctx, active, cell)
		} else if timedOut {
			log.Info().Msgf("%s ran out of time", active)
		} else {
			log.Info().Msgf("%s made no move", active)
		}
		moveMetric := metrics.MoveMetric{
			Step:     step,
			Player:   int(active),
			Duration: time.Since(start),
			Removed:  removed,
			TimedOut: timedOut,
		}
		// turn has awaited the player, so its last search is this one
		if reporter, ok := e.players[active-1].(player.SearchReporter); ok {
			moveMetric.SearchMetric = reporter.LastSearch()
		}
		moveMetrics = append(moveMetrics, moveMetric)

		active = active.Next()
		e.update(func(s *Status) {
			s.Active = active
		})
	}

	scores := e.Status().Scores
	result := NoResult
	if ctx.Err() == nil {
		result = resultOf(scores)
	}
	e.update(func(s *Status) {
		s.Phase = Finished
		s.Result = result
		s.Active = player.None
		s.Remaining = -1
	})

	gameMetric.Winner = result.String()
	gameMetric.Scores = scores
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = len(moveMetrics)
	log.Info().Msgf("game over after %d moves: result=%q scores=%v", len(moveMetrics), result, scores)
	return result, gameMetric, moveMetrics
}

// turn races the active player against the countdown. The loser is cancelled
// and awaited before turn returns, so a late move is never applied.
func (e *Engine) turn(ctx context.Context, active player.ID) (cell game.CellID, ok bool, timedOut bool) {
	info := e.stepInfo(active)
	p := e.players[active-1]

	type move struct {
		cell game.CellID
		ok   bool
	}
	moveCh := make(chan move, 1)
	turnCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cell, ok := p.MakeMove(turnCtx, info)
		moveCh <- move{cell: cell, ok: ok}
	}()
	defer func() {
		cancel()
		wg.Wait()
		e.update(func(s *Status) {
			s.Remaining = -1
		})
	}()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	remaining := e.limit
	e.setRemaining(remaining)
	for {
		select {
		case m := <-moveCh:
			return m.cell, m.ok, false
		case <-ticker.C:
			remaining -= e.tick
			e.setRemaining(remaining)
			if remaining <= 0 {
				return uuid.Nil, false, true
			}
		case <-ctx.Done():
			return uuid.Nil, false, false
		}
	}
}

// apply pops the region holding cell and credits its size to active. The
// popped cells stay published for the dismiss delay before the board moves on.
func (e *Engine) apply(ctx context.Context, active player.ID, cell game.CellID) int {
	region, err := e.board.RemoveRegion(cell)
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			log.Warn().Msgf("%s picked unknown cell %s", active, cell)
		} else {
			log.Error().Err(err).Msgf("%s move could not be applied", active)
		}
		return 0
	}

	e.update(func(s *Status) {
		s.Dismissed = region
	})
	if e.dismissDelay > 0 {
		select {
		case <-time.After(e.dismissDelay):
		case <-ctx.Done():
		}
	}

	rows := e.board.Rows()
	e.update(func(s *Status) {
		s.Dismissed = nil
		s.Rows = rows
		s.Scores[active-1] += len(region)
	})
	log.Info().Msgf("%s popped %d cells", active, len(region))
	return len(region)
}

func (e *Engine) stepInfo(active player.ID) player.StepInfo {
	scores := e.Status().Scores
	own, opponent := scores[0], scores[1]
	if active == player.Player2 {
		own, opponent = opponent, own
	}
	return player.StepInfo{
		Player:          active,
		OwnScore:        own,
		OpponentScore:   opponent,
		Board:           e.board.Copy(),
		RecommendedTime: e.recommended,
		TimeLimit:       e.limit,
	}
}

func (e *Engine) setRemaining(remaining time.Duration) {
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	e.update(func(s *Status) {
		s.Remaining = seconds
	})
}

func (e *Engine) update(fn func(s *Status)) {
	e.mu.Lock()
	fn(&e.status)
	e.mu.Unlock()
	e.publish()
}

func (e *Engine) publish() {
	status := e.Status()
	for _, observer := range e.observers {
		observer(status)
	}
}
