package gamemaster

import (
	"bubbles/game"
	"bubbles/meta"
	"time"
)

// Config is everything one game needs. It is passed explicitly to each
// GameMaster; there is no process-wide preset.
type Config struct {
	Board           game.Config
	Goroutines      int // Search goroutines of automated players, 0 for one per CPU
	MaxNodes        int
	RecommendedTime time.Duration
	TimeLimit       time.Duration
	Tick            time.Duration
	DismissDelay    time.Duration
	Seed            uint64 // Board and random player seed, 0 for a time-based one
}

func DefaultConfig() Config {
	return Config{
		Board:           game.Config{Dimensions: game.PresetTiny, Colors: game.Six},
		MaxNodes:        meta.MAX_NODES,
		RecommendedTime: meta.RECOMMENDED_TIME,
		TimeLimit:       meta.TIME_LIMIT,
		Tick:            meta.TICK,
		DismissDelay:    meta.DISMISS_DELAY,
	}
}
