package solver

// monitor.go: diagnostics sink interface and an in-memory statistics collector

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Diagnostics receives instrumentation events from the engines. A Solver with no
// Diagnostics attached skips every call. Implementations shared by a batch must
// be safe for concurrent use.
type Diagnostics interface {
	// RecordNode is called for every search node: one BFS successor, or one
	// committed (candidate or forced) press count.
	RecordNode()

	// RecordBacktrack is called whenever a branch is abandoned.
	RecordBacktrack()

	// RecordDepth reports the current search depth.
	RecordDepth(depth int)

	// RecordFrontier reports the size of a newly built BFS frontier.
	RecordFrontier(size int)

	// RecordCellTime reports the wall-clock time spent below counter cell
	// `cell` during one visit of that cell's equation.
	RecordCellTime(cell int, elapsed time.Duration)

	// RecordSolution is called for every complete satisfying assignment or
	// reached target, with its total press count.
	RecordSolution(steps int)

	// FinishSearch is called once per engine run.
	FinishSearch(kind CellKind, elapsed time.Duration)
}

// SolverStats holds statistics accumulated by a SolverMonitor.
type SolverStats struct {
	// Search statistics
	Searches       int           // Number of engine runs
	NodesExplored  int64         // Number of search nodes explored
	Backtracks     int64         // Number of abandoned branches
	SolutionsFound int           // Number of solutions seen (including non-minimal ones)
	SearchTime     time.Duration // Total time spent in engine runs
	MaxDepth       int           // Maximum search depth reached

	// Reachability statistics
	PeakFrontier int // Largest BFS frontier

	// CellTime accumulates wall-clock time per counter cell index.
	CellTime map[int]time.Duration
}

// SolverMonitor is a Diagnostics implementation collecting SolverStats.
type SolverMonitor struct {
	mu    sync.Mutex
	stats SolverStats
}

// NewSolverMonitor creates a new solver monitor.
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{
		stats: SolverStats{CellTime: make(map[int]time.Duration)},
	}
}

// GetStats returns a copy of the current statistics.
func (m *SolverMonitor) GetStats() *SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.CellTime = make(map[int]time.Duration, len(m.stats.CellTime))
	for c, d := range m.stats.CellTime {
		stats.CellTime[c] = d
	}
	return &stats
}

// RecordNode implements Diagnostics.
func (m *SolverMonitor) RecordNode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.NodesExplored++
}

// RecordBacktrack implements Diagnostics.
func (m *SolverMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordDepth implements Diagnostics.
func (m *SolverMonitor) RecordDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// RecordFrontier implements Diagnostics.
func (m *SolverMonitor) RecordFrontier(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.stats.PeakFrontier {
		m.stats.PeakFrontier = size
	}
}

// RecordCellTime implements Diagnostics.
func (m *SolverMonitor) RecordCellTime(cell int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CellTime[cell] += elapsed
}

// RecordSolution implements Diagnostics.
func (m *SolverMonitor) RecordSolution(int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SolutionsFound++
}

// FinishSearch implements Diagnostics.
func (m *SolverMonitor) FinishSearch(_ CellKind, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Searches++
	m.stats.SearchTime += elapsed
}

// SlowestCells returns up to n cell indices ordered by accumulated time, slowest first.
func (s *SolverStats) SlowestCells(n int) []int {
	cells := make([]int, 0, len(s.CellTime))
	for c := range s.CellTime {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if s.CellTime[cells[i]] != s.CellTime[cells[j]] {
			return s.CellTime[cells[i]] > s.CellTime[cells[j]]
		}
		return cells[i] < cells[j]
	})
	if n >= 0 && len(cells) > n {
		cells = cells[:n]
	}
	return cells
}

// String returns a formatted string representation of the statistics.
func (s *SolverStats) String() string {
	var slow []string
	for _, c := range s.SlowestCells(3) {
		slow = append(slow, fmt.Sprintf("cell %d %v", c, s.CellTime[c]))
	}
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Search: %d runs, %d nodes, %d backtracks, %d solutions, %v time, max depth %d\n"+
			"  Reachability: peak frontier %d\n"+
			"  Slowest cells: %s",
		s.Searches, s.NodesExplored, s.Backtracks, s.SolutionsFound, s.SearchTime, s.MaxDepth,
		s.PeakFrontier,
		strings.Join(slow, ", "),
	)
}
