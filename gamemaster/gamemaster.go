package gamemaster

import (
	"bubbles/engine"
	"bubbles/game"
	"bubbles/player"
	"bubbles/searcher"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotAwaitingInput  = errors.New("not awaiting input")
	ErrStopped           = errors.New("game master stopped")
)

type commandKind int

const (
	setupCommand commandKind = iota
	startCommand
	tapCommand
	finishCommand
)

func (k commandKind) String() string {
	switch k {
	case setupCommand:
		return "setup"
	case startCommand:
		return "start"
	case tapCommand:
		return "tap"
	default:
		return "finish"
	}
}

type command struct {
	kind  commandKind
	kinds [2]player.Kind
	cell  game.CellID
	reply chan error
}

type Option func(gm *GameMaster)

// WithObserver registers fn to receive every status change. It must not block.
func WithObserver(fn func(engine.Status)) Option {
	return func(gm *GameMaster) {
		if fn != nil {
			gm.observers = append(gm.observers, fn)
		}
	}
}

// GameMaster drives the Inactive -> Setup -> Active -> Finished -> Inactive
// cycle. Every command is serialised through a single controller goroutine
// started by Run.
type GameMaster struct {
	config    Config
	commands  chan command
	stopped   chan struct{}
	observers []func(engine.Status)

	mu     sync.RWMutex
	status engine.Status

	// Owned by the controller goroutine
	rng     *rand.Rand
	players [2]player.Player
	cancel  context.CancelFunc
	done    chan struct{} // Closed once the running game returns
}

func New(config Config, options ...Option) *GameMaster {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gm := &GameMaster{
		config:   config,
		commands: make(chan command),
		stopped:  make(chan struct{}),
		rng:      rand.New(rand.NewSource(seed)),
		status:   engine.Status{Phase: engine.Inactive, Remaining: -1},
	}
	for _, option := range options {
		option(gm)
	}
	return gm
}

// Run processes commands until ctx is done, then stops any running game.
func (gm *GameMaster) Run(ctx context.Context) {
	defer close(gm.stopped)
	for {
		select {
		case <-ctx.Done():
			gm.stopGame()
			return
		case cmd := <-gm.commands:
			err := gm.handle(ctx, cmd)
			if err != nil {
				log.Debug().Err(err).Msgf("%s command rejected", cmd.kind)
			}
			cmd.reply <- err
		}
	}
}

func (gm *GameMaster) Status() engine.Status {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	return gm.status.Copy()
}

func (gm *GameMaster) Setup(ctx context.Context) error {
	return gm.send(ctx, command{kind: setupCommand})
}

// Start deals a new board and seats players of the given kinds.
func (gm *GameMaster) Start(ctx context.Context, kinds [2]player.Kind) error {
	return gm.send(ctx, command{kind: startCommand, kinds: kinds})
}

// Tap forwards cell to the active player if it is an interactive one waiting
// for input.
func (gm *GameMaster) Tap(ctx context.Context, cell game.CellID) error {
	return gm.send(ctx, command{kind: tapCommand, cell: cell})
}

func (gm *GameMaster) Finish(ctx context.Context) error {
	return gm.send(ctx, command{kind: finishCommand})
}

func (gm *GameMaster) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case gm.commands <- cmd:
	case <-gm.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (gm *GameMaster) handle(ctx context.Context, cmd command) error {
	phase := gm.Status().Phase
	switch cmd.kind {
	case setupCommand:
		if phase != engine.Inactive {
			return gm.invalid(cmd, phase)
		}
		gm.setStatus(engine.Status{Phase: engine.Setup, Remaining: -1})
		return nil

	case startCommand:
		if phase != engine.Setup {
			return gm.invalid(cmd, phase)
		}
		return gm.startGame(ctx, cmd.kinds)

	case tapCommand:
		return gm.tap(cmd.cell)

	case finishCommand:
		if phase != engine.Finished {
			return gm.invalid(cmd, phase)
		}
		gm.stopGame()
		gm.setStatus(engine.Status{Phase: engine.Inactive, Remaining: -1})
		return nil
	}
	panic(fmt.Sprintf("unknown command %d", cmd.kind))
}

func (gm *GameMaster) invalid(cmd command, phase engine.Phase) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, cmd.kind, phase)
}

func (gm *GameMaster) startGame(ctx context.Context, kinds [2]player.Kind) error {
	players := [2]player.Player{}
	for i, kind := range kinds {
		p, err := gm.newPlayer(kind)
		if err != nil {
			return err
		}
		players[i] = p
	}
	board, err := game.NewBoard(gm.config.Board, game.WithRand(rand.New(rand.NewSource(gm.rng.Uint64()))))
	if err != nil {
		return fmt.Errorf("failed to deal board: %w", err)
	}

	e := engine.NewEngine(board, players,
		engine.WithTimeLimits(gm.config.RecommendedTime, gm.config.TimeLimit),
		engine.WithTick(gm.config.Tick),
		engine.WithDismissDelay(gm.config.DismissDelay),
		engine.WithObserver(gm.setStatus),
	)
	gm.players = players
	gm.setStatus(e.Status())

	gameCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	gm.cancel, gm.done = cancel, done
	go func() {
		defer close(done)
		result, gameMetric, _ := e.Run(gameCtx)
		log.Info().Msgf("game finished: result=%q scores=%v moves=%d", result, gameMetric.Scores, gameMetric.TotalMoves)
	}()
	log.Info().Msgf("game started: %s vs %s", kinds[0], kinds[1])
	return nil
}

func (gm *GameMaster) newPlayer(kind player.Kind) (player.Player, error) {
	switch kind {
	case player.KindInteractive:
		return player.NewInteractive(), nil
	case player.KindAutomated:
		s := searcher.NewSearcher(gm.config.Goroutines,
			searcher.WithMaxNodes(gm.config.MaxNodes),
			searcher.WithDuration(gm.config.RecommendedTime),
		)
		return player.NewAutomated(s), nil
	case player.KindRandom:
		return player.NewRandom(gm.rng.Uint64()), nil
	}
	return nil, fmt.Errorf("%w: %d", player.ErrUnknownKind, int(kind))
}

func (gm *GameMaster) tap(cell game.CellID) error {
	status := gm.Status()
	if status.Phase != engine.Active || status.Active == player.None {
		return fmt.Errorf("%w: no game in progress", ErrNotAwaitingInput)
	}
	p, ok := gm.players[status.Active-1].(*player.Interactive)
	if !ok {
		return fmt.Errorf("%w: %s is not interactive", ErrNotAwaitingInput, status.Active)
	}
	if !p.Submit(cell) {
		return fmt.Errorf("%w: %s is not waiting for a move", ErrNotAwaitingInput, status.Active)
	}
	return nil
}

// stopGame cancels the running game, if any, and waits for it to return.
func (gm *GameMaster) stopGame() {
	if gm.cancel == nil {
		return
	}
	gm.cancel()
	<-gm.done
	gm.cancel, gm.done = nil, nil
	gm.players = [2]player.Player{}
}

func (gm *GameMaster) setStatus(status engine.Status) {
	gm.mu.Lock()
	gm.status = status.Copy()
	gm.mu.Unlock()

	for _, observer := range gm.observers {
		observer(status)
	}
}
