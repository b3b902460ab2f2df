package gamemaster

import (
	"bubbles/engine"
	"bubbles/game"
	"bubbles/player"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	config := DefaultConfig()
	config.Board = game.Config{Dimensions: game.PresetExtraTiny, Colors: game.Four}
	config.Goroutines = 2
	config.MaxNodes = 2_000
	config.RecommendedTime = 50 * time.Millisecond
	config.TimeLimit = 2 * time.Second
	config.Tick = 10 * time.Millisecond
	config.DismissDelay = 0
	config.Seed = 1
	return config
}

func running(t *testing.T, config Config, options ...Option) *GameMaster {
	t.Helper()
	gm := New(config, options...)
	ctx, cancel := context.WithCancel(context.Background())
	go gm.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-gm.stopped
	})
	return gm
}

func waitForPhase(t *testing.T, gm *GameMaster, phase engine.Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return gm.Status().Phase == phase
	}, 10*time.Second, 5*time.Millisecond, "Should reach %s", phase)
}

func TestTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("starting in inactive", func(t *testing.T) {
		gm := running(t, testConfig())

		status := gm.Status()
		require.Equal(t, engine.Inactive, status.Phase)
		require.Equal(t, -1, status.Remaining)
	})

	t.Run("rejecting commands out of order", func(t *testing.T) {
		gm := running(t, testConfig())

		require.ErrorIs(t, gm.Start(ctx, [2]player.Kind{player.KindRandom, player.KindRandom}), ErrInvalidTransition)
		require.ErrorIs(t, gm.Finish(ctx), ErrInvalidTransition)
		require.NoError(t, gm.Setup(ctx))
		require.ErrorIs(t, gm.Setup(ctx), ErrInvalidTransition)
		require.ErrorIs(t, gm.Finish(ctx), ErrInvalidTransition)
		require.Equal(t, engine.Setup, gm.Status().Phase)
	})

	t.Run("unknown player kind keeps the setup phase", func(t *testing.T) {
		gm := running(t, testConfig())
		require.NoError(t, gm.Setup(ctx))

		err := gm.Start(ctx, [2]player.Kind{player.KindRandom, player.Kind(9)})

		require.ErrorIs(t, err, player.ErrUnknownKind)
		require.Equal(t, engine.Setup, gm.Status().Phase)
	})

	t.Run("invalid board configuration keeps the setup phase", func(t *testing.T) {
		config := testConfig()
		config.Board.Dimensions = game.Dimensions{Rows: 0, Width: 4}
		gm := running(t, config)
		require.NoError(t, gm.Setup(ctx))

		err := gm.Start(ctx, [2]player.Kind{player.KindRandom, player.KindRandom})

		require.ErrorIs(t, err, game.ErrInvalidConfiguration)
		require.Equal(t, engine.Setup, gm.Status().Phase)
	})

	t.Run("playing a full cycle between computer players", func(t *testing.T) {
		gm := running(t, testConfig())

		require.NoError(t, gm.Setup(ctx))
		require.NoError(t, gm.Start(ctx, [2]player.Kind{player.KindRandom, player.KindAutomated}))
		require.ErrorIs(t, gm.Setup(ctx), ErrInvalidTransition)
		waitForPhase(t, gm, engine.Finished)

		status := gm.Status()
		require.NotEqual(t, engine.NoResult, status.Result)
		require.Equal(t, 21, status.Scores[0]+status.Scores[1], "All cells of a 6x4 board should be scored")
		require.Empty(t, status.Rows)

		require.NoError(t, gm.Finish(ctx))
		require.Equal(t, engine.Inactive, gm.Status().Phase)
		require.NoError(t, gm.Setup(ctx))
	})

	t.Run("commands fail once the controller stopped", func(t *testing.T) {
		gm := New(testConfig())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			gm.Run(ctx)
		}()
		cancel()
		<-done

		require.ErrorIs(t, gm.Setup(context.Background()), ErrStopped)
	})
}

func TestTap(t *testing.T) {
	ctx := context.Background()

	t.Run("rejecting taps without a game", func(t *testing.T) {
		gm := running(t, testConfig())

		require.ErrorIs(t, gm.Tap(ctx, uuid.New()), ErrNotAwaitingInput)
	})

	t.Run("forwarding taps to the interactive player", func(t *testing.T) {
		gm := running(t, testConfig())
		require.NoError(t, gm.Setup(ctx))
		require.NoError(t, gm.Start(ctx, [2]player.Kind{player.KindInteractive, player.KindInteractive}))
		cell := gm.Status().Rows[0][0].ID

		require.Eventually(t, func() bool {
			return gm.Tap(ctx, cell) == nil
		}, 5*time.Second, 5*time.Millisecond)

		require.Eventually(t, func() bool {
			return gm.Status().Scores[0] > 0
		}, 5*time.Second, 5*time.Millisecond, "Player 1 should be credited")
		require.Eventually(t, func() bool {
			return gm.Status().Active == player.Player2
		}, 5*time.Second, 5*time.Millisecond)
	})

	t.Run("stopping the controller cancels the game", func(t *testing.T) {
		gm := New(testConfig())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			gm.Run(ctx)
		}()
		require.NoError(t, gm.Setup(ctx))
		require.NoError(t, gm.Start(ctx, [2]player.Kind{player.KindInteractive, player.KindRandom}))

		cancel()
		<-done

		status := gm.Status()
		require.Equal(t, engine.Finished, status.Phase)
		require.Equal(t, engine.NoResult, status.Result)
	})
}

func TestObserver(t *testing.T) {
	t.Run("publishing every phase", func(t *testing.T) {
		var mu sync.Mutex
		phases := []engine.Phase{}
		gm := running(t, testConfig(), WithObserver(func(s engine.Status) {
			mu.Lock()
			defer mu.Unlock()
			if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
				phases = append(phases, s.Phase)
			}
		}))
		ctx := context.Background()

		require.NoError(t, gm.Setup(ctx))
		require.NoError(t, gm.Start(ctx, [2]player.Kind{player.KindRandom, player.KindRandom}))
		waitForPhase(t, gm, engine.Finished)
		require.NoError(t, gm.Finish(ctx))

		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []engine.Phase{engine.Setup, engine.Active, engine.Finished, engine.Inactive}, phases)
	})
}
