package experiments

import (
	"bubbles/engine"
	"bubbles/experiments/metrics"
	"bubbles/game"
	"bubbles/player"
	"bubbles/searcher"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

const (
	NumGames   = 20 // Per match up
	TimeBudget = 100 * time.Millisecond
)

// Settings shared by every game of an experiment.
type Settings struct {
	Root     string // Output directory for the CSV files
	Games    int    // Per match up
	Board    game.Config
	MaxTurns int
	Seed     uint64
}

func DefaultSettings(root string) Settings {
	return Settings{
		Root:     root,
		Games:    NumGames,
		Board:    game.Config{Dimensions: game.PresetTiny, Colors: game.Six},
		MaxTurns: 500,
		Seed:     1,
	}
}

var parallelConfigs = []metrics.AgentConfig{
	{ID: 1, Kind: "automated", Goroutines: 1, Duration: TimeBudget},
	{ID: 2, Kind: "automated", Goroutines: 2, Duration: TimeBudget},
	{ID: 3, Kind: "automated", Goroutines: 4, Duration: TimeBudget},
	{ID: 4, Kind: "automated", Goroutines: 8, Duration: TimeBudget},
	{ID: 5, Kind: "automated", Goroutines: 16, Duration: TimeBudget},
}

// RunParallelization pairs every goroutine count against the sequential
// searcher. It returns the directory holding the results.
func RunParallelization(settings Settings) (string, error) {
	baseline := metrics.AgentConfig{ID: 0, Kind: "automated", Goroutines: 1, Duration: TimeBudget}
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range parallelConfigs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{baseline, config})
	}
	return runExperiment("parallelization", settings, append(parallelConfigs, baseline), matchUps)
}

// RunThroughput plays every configuration against itself, for the same
// playing strength and similar game length on both sides.
func RunThroughput(settings Settings) (string, error) {
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range parallelConfigs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{config, config})
	}
	return runExperiment("throughput", settings, parallelConfigs, matchUps)
}

// RunBaseline pits searchers of growing node ceilings against random play.
func RunBaseline(settings Settings) (string, error) {
	random := metrics.AgentConfig{ID: 0, Kind: "random"}
	configs := []metrics.AgentConfig{
		{ID: 1, Kind: "automated", Goroutines: 4, Duration: TimeBudget, MaxNodes: 100},
		{ID: 2, Kind: "automated", Goroutines: 4, Duration: TimeBudget, MaxNodes: 10_000},
		{ID: 3, Kind: "automated", Goroutines: 4, Duration: TimeBudget, MaxNodes: 100_000},
	}
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range configs {
		matchUps = append(matchUps, [2]metrics.AgentConfig{random, config})
	}
	return runExperiment("baseline", settings, append(configs, random), matchUps)
}

func runExperiment(name string, settings Settings, configs []metrics.AgentConfig, matchUps [][2]metrics.AgentConfig) (string, error) {
	rng := rand.New(rand.NewSource(settings.Seed))
	count := 0
	gameRecords := []metrics.GameRecord{}
	moveRecords := []metrics.MoveRecord{}

	log.Info().Msgf("starting %s experiment...", name)

	for mi, matchUp := range matchUps {
		log.Info().Msgf("starting matchup %d of %d between agent1=%+v and agent2=%+v...", mi+1, len(matchUps), matchUp[0], matchUp[1])

		for i := 0; i < settings.Games; i++ {
			// Alternate who moves first
			first, second := matchUp[0], matchUp[1]
			if i%2 == 1 {
				first, second = second, first
			}

			result, gameMetric, moveMetrics, err := runGame(settings, first, second, rng.Uint64())
			if err != nil {
				return "", fmt.Errorf("matchup %d game %d: %w", mi+1, i+1, err)
			}
			count++
			gameRecords = append(gameRecords, metrics.GameRecord{
				ID:         count,
				Agent1:     first.ID,
				Agent2:     second.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				moveRecords = append(moveRecords, metrics.MoveRecord{
					Game:       count,
					MoveMetric: mm,
				})
			}

			log.Info().Msgf("completed matchup %d of %d game %d with result: %q", mi+1, len(matchUps), i+1, result)
		}
	}

	log.Info().Msgf("completed %s experiment", name)
	return store(name, settings.Root, configs, gameRecords, moveRecords)
}

func store(name, root string, configs []metrics.AgentConfig, games []metrics.GameRecord, moves []metrics.MoveRecord) (string, error) {
	writer, err := metrics.NewWriter(root, name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return "", fmt.Errorf("failed to store agent configs: %w", err)
	}
	if err := writer.WriteGameRecords(games); err != nil {
		return "", fmt.Errorf("failed to write game records: %w", err)
	}
	if err := writer.WriteMoveRecords(moves); err != nil {
		return "", fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msgf("stored results in %s", writer.Dir())
	return writer.Dir(), nil
}

// runGame plays one game between two agents, config1 moving first.
func runGame(settings Settings, config1, config2 metrics.AgentConfig, seed uint64) (engine.Result, metrics.GameMetric, []metrics.MoveMetric, error) {
	rng := rand.New(rand.NewSource(seed))
	board, err := game.NewBoard(settings.Board, game.WithRand(rng))
	if err != nil {
		return engine.NoResult, metrics.GameMetric{}, nil, err
	}
	players := [2]player.Player{}
	for i, config := range []metrics.AgentConfig{config1, config2} {
		p, err := newPlayer(config, rng.Uint64())
		if err != nil {
			return engine.NoResult, metrics.GameMetric{}, nil, err
		}
		players[i] = p
	}

	// The hard limit only guards against a stuck searcher
	limit := 10 * (config1.Duration + config2.Duration + time.Second)
	e := engine.NewEngine(board, players,
		engine.WithTimeLimits(limit, limit),
		engine.WithDismissDelay(0),
		engine.WithMaxTurns(settings.MaxTurns),
	)
	result, gameMetric, moveMetrics := e.Run(context.Background())
	return result, gameMetric, moveMetrics, nil
}

func newPlayer(config metrics.AgentConfig, seed uint64) (player.Player, error) {
	kind, err := player.ParseKind(config.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case player.KindAutomated:
		return player.NewAutomated(createSearcher(config), player.WithBudget(config.Duration)), nil
	case player.KindRandom:
		return player.NewRandom(seed), nil
	}
	return nil, fmt.Errorf("%s players cannot take part in experiments", kind)
}

func createSearcher(config metrics.AgentConfig) *searcher.Searcher {
	options := []searcher.Option{searcher.WithMetrics()}

	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.MaxNodes > 0 {
		options = append(options, searcher.WithMaxNodes(config.MaxNodes))
	}

	return searcher.NewSearcher(config.Goroutines, options...)
}
