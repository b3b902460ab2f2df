// meta/meta.go
package meta

import "time"

// MAX_NODES caps the nodes a single search may create.
const MAX_NODES = 100_000

// RECOMMENDED_TIME is the soft budget handed to automated players.
const RECOMMENDED_TIME = 25 * time.Second

// TIME_LIMIT is the hard per-turn budget enforced by the turn loop.
const TIME_LIMIT = 30 * time.Second

// TICK is the countdown resolution of the per-turn timer.
const TICK = time.Second

// DISMISS_DELAY is how long just-removed cells stay published for display.
const DISMISS_DELAY = 250 * time.Millisecond
