package main

import (
	"bubbles/communication/server"
	"bubbles/engine"
	"bubbles/experiments"
	"bubbles/game"
	"bubbles/gamemaster"
	"bubbles/player"
	"bubbles/searcher"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

var presets = map[string]game.Dimensions{
	"extratiny": game.PresetExtraTiny,
	"tiny":      game.PresetTiny,
	"small":     game.PresetSmall,
	"medium":    game.PresetMedium,
	"large":     game.PresetLarge,
}

func main() {
	mode := flag.String("mode", "serve", "One of serve, selfplay, experiment")
	addr := flag.String("addr", ":8080", "Listen address in serve mode")
	preset := flag.String("board", "tiny", "Board preset: extratiny, tiny, small, medium, large")
	colors := flag.Int("colors", int(game.Six), "Palette size: 4, 5 or 6")
	goroutines := flag.Int("goroutines", 0, "Search goroutines, 0 for one per CPU")
	maxNodes := flag.Int("max-nodes", 0, "Node ceiling per search, 0 for the default")
	duration := flag.Duration("duration", 0, "Search budget per move, 0 for the default recommended time")
	seed := flag.Uint64("seed", 0, "Board seed, 0 for a time-based one")
	name := flag.String("experiment", "baseline", "Experiment to run: baseline, parallelization, throughput")
	games := flag.Int("games", experiments.NumGames, "Games per match up in experiment mode")
	out := flag.String("out", "results", "Output directory of experiment mode")
	level := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	lvl, err := zerolog.ParseLevel(*level)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(lvl)

	dims, ok := presets[strings.ToLower(*preset)]
	if !ok {
		log.Fatal().Msgf("unknown board preset %q", *preset)
	}
	config := gamemaster.DefaultConfig()
	config.Board = game.Config{Dimensions: dims, Colors: game.ColorCount(*colors)}
	config.Goroutines = *goroutines
	config.Seed = *seed
	if *maxNodes > 0 {
		config.MaxNodes = *maxNodes
	}
	if *duration > 0 {
		config.RecommendedTime = *duration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "serve":
		err = serve(ctx, config, *addr)
	case "selfplay":
		err = selfplay(ctx, config)
	case "experiment":
		settings := experiments.DefaultSettings(*out)
		settings.Games = *games
		settings.Board = config.Board
		if *seed != 0 {
			settings.Seed = *seed
		}
		err = experiment(*name, settings)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Msgf("%s failed", *mode)
	}
}

func serve(ctx context.Context, config gamemaster.Config, addr string) error {
	var s *server.Server
	gm := gamemaster.New(config, gamemaster.WithObserver(func(status engine.Status) {
		s.Publish(status)
	}))
	s = server.NewServer(gm)
	go gm.Run(ctx)
	return s.ListenAndServe(ctx, addr)
}

// selfplay pits two automated players against each other on the console.
func selfplay(ctx context.Context, config gamemaster.Config) error {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	board, err := game.NewBoard(config.Board, game.WithRand(rand.New(rand.NewSource(seed))))
	if err != nil {
		return err
	}
	players := [2]player.Player{}
	for i := range players {
		players[i] = player.NewAutomated(searcher.NewSearcher(config.Goroutines,
			searcher.WithMaxNodes(config.MaxNodes),
			searcher.WithDuration(config.RecommendedTime),
			searcher.WithMetrics(),
		))
	}
	e := engine.NewEngine(board, players,
		engine.WithTimeLimits(config.RecommendedTime, config.TimeLimit),
		engine.WithDismissDelay(0),
	)
	result, gameMetric, _ := e.Run(ctx)
	fmt.Printf("result: %s, scores: %d-%d, moves: %d, duration: %s\n",
		result, gameMetric.Scores[0], gameMetric.Scores[1], gameMetric.TotalMoves, gameMetric.Duration.Round(time.Millisecond))
	return nil
}

func experiment(name string, settings experiments.Settings) error {
	var run func(experiments.Settings) (string, error)
	switch name {
	case "baseline":
		run = experiments.RunBaseline
	case "parallelization":
		run = experiments.RunParallelization
	case "throughput":
		run = experiments.RunThroughput
	default:
		return fmt.Errorf("unknown experiment %q", name)
	}
	dir, err := run(settings)
	if err != nil {
		return err
	}
	fmt.Println(dir)
	return nil
}
