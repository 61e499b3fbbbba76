// Package solver finds the fewest button presses that drive a machine from its
// initial state to a target state.
//
// # Architecture Overview
//
// The package separates the immutable problem description from the search:
//
//	Machine (immutable, shared):
//	  - cell kind, initial and target vectors
//	  - buttons and the precomputed cell→buttons relation
//	  - safe to share between goroutines
//
//	Solver (configuration + optional Diagnostics sink):
//	  - Reach:         BFS over packed indicator vectors
//	  - SolveCounters: backtracking over per-button press counts
//	  - Solve:         dispatches on Machine.Kind()
//
// Each engine run owns its search state; nothing is shared between runs, so one
// Solver can serve many goroutines as long as its Diagnostics sink is safe for
// concurrent use.
//
// # Outcomes
//
// An engine returns a Result. Result.Feasible is false when no sequence of
// presses reaches the target; that is a normal answer, distinct from
// Result.Steps == 0. Errors are reserved for machines of the wrong kind and for
// searches stopped by the context or a node budget (ErrBudgetExhausted).
package solver

import (
	"context"
	"fmt"
	"strconv"
)

// Result is the outcome of one engine run.
type Result struct {
	// Steps is the total number of presses. Meaningless when Feasible is false.
	Steps int

	// Feasible reports whether the target is reachable.
	Feasible bool

	// Presses holds the per-button press counts of the reported assignment.
	// Only set by the counter engine.
	Presses []int

	// Nodes is the number of search nodes the run explored.
	Nodes int64
}

// String returns the step count, or "infeasible".
func (r Result) String() string {
	if !r.Feasible {
		return "infeasible"
	}
	return strconv.Itoa(r.Steps)
}

// Solver runs the reachability and equation engines with a shared configuration.
//
// Thread safety: Solve, Reach and SolveCounters may be called concurrently;
// SetDiagnostics must not race with them.
type Solver struct {
	config *SolverConfig
	diag   Diagnostics
}

// NewSolver creates a solver with DefaultSolverConfig.
func NewSolver() *Solver {
	return &Solver{config: DefaultSolverConfig()}
}

// NewSolverWithConfig creates a solver with custom configuration.
// A nil config falls back to DefaultSolverConfig.
func NewSolverWithConfig(config *SolverConfig) *Solver {
	if config == nil {
		config = DefaultSolverConfig()
	}
	return &Solver{config: config}
}

// SetDiagnostics attaches an instrumentation sink. nil disables instrumentation.
func (s *Solver) SetDiagnostics(d Diagnostics) {
	s.diag = d
}

// Config returns the solver configuration.
func (s *Solver) Config() *SolverConfig {
	return s.config
}

// Solve picks the engine matching the machine's cell kind.
func (s *Solver) Solve(ctx context.Context, m *Machine) (Result, error) {
	if err := s.config.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid solver config: %w", err)
	}
	switch m.Kind() {
	case Indicator:
		return s.Reach(ctx, m)
	case Counter:
		return s.SolveCounters(ctx, m)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrWrongKind, m.Kind())
	}
}

// budget enforces the node limit and polls the context every pollInterval nodes.
type budget struct {
	ctx      context.Context
	maxNodes int64
	nodes    int64
}

const pollInterval = 1024

func newBudget(ctx context.Context, maxNodes int64) *budget {
	return &budget{ctx: ctx, maxNodes: maxNodes}
}

// spend accounts for one node. It returns a wrapped ErrBudgetExhausted once the
// search must stop.
func (b *budget) spend() error {
	b.nodes++
	if b.maxNodes > 0 && b.nodes > b.maxNodes {
		return fmt.Errorf("%w: node limit %d reached", ErrBudgetExhausted, b.maxNodes)
	}
	if b.nodes%pollInterval == 0 {
		if err := b.ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
		}
	}
	return nil
}

// check polls the context regardless of the node count.
func (b *budget) check() error {
	if err := b.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
	}
	return nil
}
