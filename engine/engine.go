package engine

import (
	"bubbles/game"
	"bubbles/player"
	"time"
)

type Phase int

const (
	Inactive Phase = iota
	Setup
	Active
	Finished
)

func (p Phase) String() string {
	switch p {
	case Setup:
		return "setup"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return "inactive"
	}
}

type Result int

const (
	NoResult Result = iota
	Winner1
	Winner2
	Draw
)

func (r Result) String() string {
	switch r {
	case Winner1:
		return "player1"
	case Winner2:
		return "player2"
	case Draw:
		return "draw"
	default:
		return ""
	}
}

// resultOf compares final scores strictly.
func resultOf(scores [2]int) Result {
	switch {
	case scores[0] > scores[1]:
		return Winner1
	case scores[1] > scores[0]:
		return Winner2
	default:
		return Draw
	}
}

// Status is what a UI needs to draw the game. Values handed out are copies.
type Status struct {
	Phase     Phase
	Result    Result
	Rows      []game.Row
	Remaining int // Seconds left in the turn, -1 outside a countdown
	Active    player.ID
	Scores    [2]int
	Dismissed []game.CellID // Cells popped by the last move, cleared after the dismiss delay
}

func (s Status) Copy() Status {
	rows := make([]game.Row, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = append(game.Row(nil), row...)
	}
	s.Rows = rows
	if s.Dismissed != nil {
		s.Dismissed = append([]game.CellID(nil), s.Dismissed...)
	}
	return s
}

type Option func(e *Engine)

// WithTimeLimits sets the soft budget handed to players and the hard budget
// enforced by the turn countdown.
func WithTimeLimits(recommended, limit time.Duration) Option {
	return func(e *Engine) {
		if recommended > 0 {
			e.recommended = recommended
		}
		if limit > 0 {
			e.limit = limit
		}
	}
}

func WithTick(tick time.Duration) Option {
	return func(e *Engine) {
		if tick > 0 {
			e.tick = tick
		}
	}
}

func WithDismissDelay(delay time.Duration) Option {
	return func(e *Engine) {
		if delay >= 0 {
			e.dismissDelay = delay
		}
	}
}

// WithObserver registers fn to receive every status change. It is called from
// the turn loop and must not block.
func WithObserver(fn func(Status)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.observers = append(e.observers, fn)
		}
	}
}

// WithMaxTurns stops the game after n turns, 0 means until the board is empty.
func WithMaxTurns(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxTurns = n
		}
	}
}
