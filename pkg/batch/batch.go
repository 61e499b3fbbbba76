// Package batch solves many independent machines concurrently and totals the
// answers.
//
// Every machine gets its own Outcome. A failure on one machine (a malformed
// description, an exhausted budget) never stops the others, and the summary
// keeps solved, infeasible, unknown and failed machines apart: only solved
// machines contribute to TotalSteps.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitrdm/pressworks/internal/logging"
	"github.com/gitrdm/pressworks/internal/parallel"
	"github.com/gitrdm/pressworks/pkg/solver"
)

// TracerName is the instrumentation scope of batch spans.
const TracerName = "github.com/gitrdm/pressworks/pkg/batch"

// Status classifies an Outcome.
type Status int

const (
	// StatusSolved means the target was reached; Result.Steps is the answer.
	StatusSolved Status = iota

	// StatusInfeasible means no press sequence reaches the target.
	StatusInfeasible

	// StatusUnknown means the search stopped on its budget or context before
	// deciding.
	StatusUnknown

	// StatusFailed means the machine could not be built or solved.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnknown:
		return "unknown"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Job is one machine to solve. Err carries a construction error from the
// caller; such a job is reported as failed without being solved.
type Job struct {
	// Line is the source line, 0 if unknown.
	Line    int
	Machine *solver.Machine
	Err     error
}

// Outcome is the answer for one Job.
type Outcome struct {
	Index   int
	Line    int
	Result  solver.Result
	Err     error
	Elapsed time.Duration
}

// Status classifies the outcome.
func (o Outcome) Status() Status {
	switch {
	case errors.Is(o.Err, solver.ErrBudgetExhausted):
		return StatusUnknown
	case o.Err != nil:
		return StatusFailed
	case o.Result.Feasible:
		return StatusSolved
	default:
		return StatusInfeasible
	}
}

// Summary totals a run.
type Summary struct {
	RunID      string
	Kind       solver.CellKind
	Machines   int
	Solved     int
	Infeasible int
	Unknown    int
	Failed     int

	// TotalSteps sums Result.Steps over solved machines only.
	TotalSteps int

	Elapsed time.Duration
}

// Complete reports whether every machine was solved.
func (s Summary) Complete() bool {
	return s.Solved == s.Machines
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %d steps (%d solved, %d infeasible, %d unknown, %d failed of %d) in %v",
		s.Kind, s.TotalSteps, s.Solved, s.Infeasible, s.Unknown, s.Failed, s.Machines, s.Elapsed)
}

// Report is the result of Runner.Run.
type Report struct {
	Outcomes []Outcome
	Summary  Summary
}

// Options configures a Runner.
type Options struct {
	// Workers is the number of concurrent solves. 0 means one per CPU.
	Workers int

	// MachineTimeout bounds each solve. 0 means no limit.
	MachineTimeout time.Duration

	// Logger receives per-machine debug records and the run summary.
	// nil discards them.
	Logger *logging.Logger

	// TracerProvider supplies the batch tracer. nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// Runner solves batches of machines with one Solver.
//
// The Solver's Diagnostics sink, if any, is shared by all workers and must be
// safe for concurrent use.
type Runner struct {
	solver *solver.Solver
	opts   Options
	logger *logging.Logger
	tracer trace.Tracer
}

// NewRunner creates a Runner. A nil solver uses solver.NewSolver().
func NewRunner(s *solver.Solver, opts Options) *Runner {
	if s == nil {
		s = solver.NewSolver()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Runner{
		solver: s,
		opts:   opts,
		logger: logger,
		tracer: tp.Tracer(TracerName),
	}
}

// Run solves every job of the given kind. Jobs whose machine has a different
// kind fail with solver.ErrWrongKind. The returned error is non-nil only when
// ctx ended before every job was started; the report is complete either way,
// with unstarted jobs marked unknown.
func (r *Runner) Run(ctx context.Context, kind solver.CellKind, jobs []Job) (*Report, error) {
	runID := uuid.NewString()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("batch.run_id", runID),
		attribute.String("batch.kind", kind.String()),
		attribute.Int("batch.machines", len(jobs)),
	))
	defer span.End()

	logger := r.logger.With("run_id", runID, "kind", kind.String())
	logger.Debug("batch started", "machines", len(jobs), "policy", r.solver.Config().Policy.String())

	outcomes := make([]Outcome, len(jobs))
	started := make([]bool, len(jobs))

	pool := parallel.NewWorkerPool(r.opts.Workers)
	defer pool.Shutdown()

	err := pool.ForEach(ctx, len(jobs), func(i int) {
		started[i] = true
		outcomes[i] = r.solveOne(ctx, logger, kind, i, jobs[i])
	})
	if err != nil {
		for i := range jobs {
			if !started[i] {
				outcomes[i] = Outcome{
					Index: i,
					Line:  jobs[i].Line,
					Err:   fmt.Errorf("%w: machine not started: %w", solver.ErrBudgetExhausted, err),
				}
			}
		}
		err = fmt.Errorf("batch interrupted: %w", err)
	}

	summary := Summarize(kind, outcomes)
	summary.RunID = runID
	summary.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("batch.solved", summary.Solved),
		attribute.Int("batch.infeasible", summary.Infeasible),
		attribute.Int("batch.unknown", summary.Unknown),
		attribute.Int("batch.failed", summary.Failed),
		attribute.Int("batch.total_steps", summary.TotalSteps),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	logger.Info("batch finished",
		"machines", summary.Machines,
		"solved", summary.Solved,
		"infeasible", summary.Infeasible,
		"unknown", summary.Unknown,
		"failed", summary.Failed,
		"total_steps", summary.TotalSteps,
		"elapsed", summary.Elapsed,
	)

	return &Report{Outcomes: outcomes, Summary: summary}, err
}

func (r *Runner) solveOne(ctx context.Context, logger *logging.Logger, kind solver.CellKind, i int, job Job) Outcome {
	ctx, span := r.tracer.Start(ctx, "batch.Solve", trace.WithAttributes(
		attribute.Int("machine.index", i),
		attribute.Int("machine.line", job.Line),
	))
	defer span.End()

	start := time.Now()
	out := Outcome{Index: i, Line: job.Line}

	switch {
	case job.Err != nil:
		out.Err = job.Err
	case job.Machine == nil:
		out.Err = errors.New("no machine")
	case job.Machine.Kind() != kind:
		out.Err = fmt.Errorf("%w: batch solves %s machines, got %s", solver.ErrWrongKind, kind, job.Machine.Kind())
	default:
		span.SetAttributes(
			attribute.Int("machine.cells", job.Machine.CellCount()),
			attribute.Int("machine.buttons", job.Machine.ButtonCount()),
		)
		solveCtx := ctx
		if r.opts.MachineTimeout > 0 {
			var cancel context.CancelFunc
			solveCtx, cancel = context.WithTimeout(ctx, r.opts.MachineTimeout)
			defer cancel()
		}
		out.Result, out.Err = r.solver.Solve(solveCtx, job.Machine)
	}
	out.Elapsed = time.Since(start)

	status := out.Status()
	span.SetAttributes(
		attribute.String("machine.status", status.String()),
		attribute.Int64("machine.nodes", out.Result.Nodes),
	)
	if status == StatusSolved {
		span.SetAttributes(attribute.Int("machine.steps", out.Result.Steps))
	}
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
		logger.Warn("machine not solved", "index", i, "line", job.Line, "status", status.String(), "error", out.Err)
	} else {
		logger.Debug("machine solved", "index", i, "line", job.Line, "status", status.String(),
			"steps", out.Result.Steps, "nodes", out.Result.Nodes, "elapsed", out.Elapsed)
	}
	return out
}

// Summarize counts outcomes by status and totals the steps of solved ones.
func Summarize(kind solver.CellKind, outcomes []Outcome) Summary {
	s := Summary{Kind: kind, Machines: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status() {
		case StatusSolved:
			s.Solved++
			s.TotalSteps += o.Result.Steps
		case StatusInfeasible:
			s.Infeasible++
		case StatusUnknown:
			s.Unknown++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
