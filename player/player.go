package player

import (
	"bubbles/experiments/metrics"
	"bubbles/game"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownKind = errors.New("unknown player kind")

// ID identifies a seat at the table.
type ID int

const (
	None ID = iota
	Player1
	Player2
)

func (id ID) Next() ID {
	switch id {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return None
	}
}

func (id ID) String() string {
	switch id {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "none"
	}
}

// StepInfo is the snapshot a player decides on. Board is a private copy the
// player may keep or mutate.
type StepInfo struct {
	Player          ID
	OwnScore        int
	OpponentScore   int
	Board           *game.Board
	RecommendedTime time.Duration
	TimeLimit       time.Duration
}

// Player represents a participant in the turn loop.
type Player interface {
	// MakeMove returns a cell of the region to pop, or false for no move.
	// Cancelling ctx must resolve to no move promptly.
	MakeMove(ctx context.Context, info StepInfo) (game.CellID, bool)
}

// SearchReporter is implemented by players that search for their moves.
type SearchReporter interface {
	// LastSearch describes the search behind the latest MakeMove call.
	LastSearch() metrics.SearchMetric
}

type Kind int

const (
	KindInteractive Kind = iota
	KindAutomated
	KindRandom
)

var kindNames = []string{"interactive", "automated", "random"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
