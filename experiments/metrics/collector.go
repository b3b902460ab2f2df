package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Goroutines   int
	MaxNodes     int
	Budget       time.Duration
	Duration     time.Duration
	Levels       int
	Nodes        int
	FailedChunks int
	IsCancelled  bool
}

type MoveMetric struct {
	Step     int
	Player   int // Player ID
	Duration time.Duration
	Removed  int // Cells popped, 0 for no move
	TimedOut bool

	SearchMetric // Zero for players that do not search
}

type GameMetric struct {
	StartingPlayer int    // Player ID
	Winner         string // "player1", "player2" or "draw"
	Scores         [2]int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

// AgentConfig describes one side of an experiment matchup.
type AgentConfig struct {
	ID         int
	Kind       string
	Goroutines int
	Duration   time.Duration
	MaxNodes   int
}

type Collector interface {
	Start(goroutines, maxNodes int, budget time.Duration)
	AddNodes(n int)
	AddLevel()
	AddFailedChunk()
	SetCancelled(value bool)
	Complete() SearchMetric
}

type collector struct {
	goroutines   int
	maxNodes     int
	budget       time.Duration
	startTime    time.Time
	levels       atomic.Int32
	nodes        atomic.Int64
	failedChunks atomic.Int32
	isCancelled  atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(goroutines, maxNodes int, budget time.Duration) {
	m.startTime = time.Now()
	m.goroutines = goroutines
	m.maxNodes = maxNodes
	m.budget = budget
	m.levels.Store(0)
	m.nodes.Store(0)
	m.failedChunks.Store(0)
	m.isCancelled.Store(false)
}

func (m *collector) AddNodes(n int) {
	m.nodes.Add(int64(n))
}

func (m *collector) AddLevel() {
	m.levels.Add(1)
}

func (m *collector) AddFailedChunk() {
	m.failedChunks.Add(1)
}

func (m *collector) SetCancelled(value bool) {
	m.isCancelled.Store(value)
}

func (m *collector) Complete() SearchMetric {
	return SearchMetric{
		Goroutines:   m.goroutines,
		MaxNodes:     m.maxNodes,
		Budget:       m.budget,
		Duration:     time.Since(m.startTime),
		Levels:       int(m.levels.Load()),
		Nodes:        int(m.nodes.Load()),
		FailedChunks: int(m.failedChunks.Load()),
		IsCancelled:  m.isCancelled.Load(),
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines, maxNodes int, budget time.Duration) {}
func (m *dummyCollector) AddNodes(n int)                                      {}
func (m *dummyCollector) AddLevel()                                           {}
func (m *dummyCollector) AddFailedChunk()                                     {}
func (m *dummyCollector) SetCancelled(value bool)                             {}
func (m *dummyCollector) Complete() SearchMetric                              { return SearchMetric{} }
