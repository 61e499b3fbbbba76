package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/pressworks/internal/config"
	"github.com/gitrdm/pressworks/internal/logging"
	"github.com/gitrdm/pressworks/internal/telemetry"
	"github.com/gitrdm/pressworks/pkg/batch"
	"github.com/gitrdm/pressworks/pkg/notation"
	"github.com/gitrdm/pressworks/pkg/solver"
)

const serviceName = "pressworks"

type solveOptions struct {
	root *rootOptions

	mode           string
	policy         string
	workers        int
	maxNodes       int64
	machineTimeout time.Duration
	trace          bool
	metricsFile    string
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	opts := &solveOptions{root: root}

	cmd := &cobra.Command{
		Use:   "solve [file...]",
		Short: "Solve every machine in the given files, or stdin",
		Long: `Solve reads one machine per line. Blank lines and lines starting with "# "
are skipped. A malformed line is reported and counted as failed; the other
machines are still solved.

The total for each mode is printed on stdout as "indicators: N" and
"counters: N". The command fails when any machine was left unsolved by an
error or an exhausted budget; infeasible machines are reported but are not
errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.mode, "mode", "both", "what to solve: indicators, counters or both")
	flags.StringVar(&opts.policy, "policy", "", "counter policy: minimum or first-feasible")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent solves per mode (0: one per CPU)")
	flags.Int64Var(&opts.maxNodes, "max-nodes", 0, "search node budget per machine (0: unlimited)")
	flags.DurationVar(&opts.machineTimeout, "machine-timeout", 0, "time budget per machine (0: unlimited)")
	flags.BoolVar(&opts.trace, "trace", false, "print OpenTelemetry spans to stderr")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	return cmd
}

// parseMode maps the --mode flag to the cell kinds to solve, in output order.
func parseMode(mode string) ([]solver.CellKind, error) {
	switch mode {
	case "indicators", "lights":
		return []solver.CellKind{solver.Indicator}, nil
	case "counters", "joltage":
		return []solver.CellKind{solver.Counter}, nil
	case "both", "":
		return []solver.CellKind{solver.Indicator, solver.Counter}, nil
	}
	return nil, fmt.Errorf("unknown mode %q (want indicators, counters or both)", mode)
}

// loadConfig merges the config file, environment and explicitly set flags.
func loadConfig(cmd *cobra.Command, opts *solveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.root.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = opts.root.logLevel
	}
	if changed("log-json") {
		cfg.Logging.JSON = opts.root.logJSON
	}
	if changed("policy") {
		cfg.Solver.Policy = opts.policy
	}
	if changed("workers") {
		cfg.Batch.Workers = opts.workers
	}
	if changed("max-nodes") {
		cfg.Solver.MaxNodes = opts.maxNodes
	}
	if changed("machine-timeout") {
		cfg.Batch.MachineTimeout = opts.machineTimeout
	}
	if changed("trace") {
		cfg.Observability.Tracing = opts.trace
	}
	if changed("metrics-file") {
		cfg.Observability.MetricsFile = opts.metricsFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func runSolve(cmd *cobra.Command, args []string, opts *solveOptions) (err error) {
	kinds, err := parseMode(opts.mode)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logCfg, err := cfg.ToLoggingConfig(serviceName)
	if err != nil {
		return err
	}
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)
	defer logger.Close()

	solverCfg, err := cfg.ToSolverConfig()
	if err != nil {
		return err
	}
	s := solver.NewSolverWithConfig(solverCfg)

	var sink *telemetry.PrometheusSink
	if cfg.Observability.MetricsFile != "" {
		sink = telemetry.NewPrometheusSink()
		s.SetDiagnostics(sink)
	}

	runnerOpts := batch.Options{
		Workers:        cfg.Batch.Workers,
		MachineTimeout: cfg.Batch.MachineTimeout,
		Logger:         logger,
	}
	if cfg.Observability.Tracing {
		tp, tpErr := telemetry.NewStdoutTracerProvider(cmd.ErrOrStderr(), serviceName)
		if tpErr != nil {
			return tpErr
		}
		defer func() {
			if shutdownErr := telemetry.Shutdown(context.Background(), tp); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
		}()
		runnerOpts.TracerProvider = tp
	}

	entries, err := readEntries(cmd, args, logger)
	if err != nil {
		return err
	}

	runner := batch.NewRunner(s, runnerOpts)
	reports := make([]*batch.Report, len(kinds))

	g, ctx := errgroup.WithContext(cmd.Context())
	for i, kind := range kinds {
		g.Go(func() error {
			report, err := runner.Run(ctx, kind, buildJobs(entries, kind))
			reports[i] = report
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	unsolved, machines := 0, 0
	for _, report := range reports {
		summary := report.Summary
		fmt.Fprintf(out, "%s: %d\n", modeName(summary.Kind), summary.TotalSteps)
		if summary.Infeasible > 0 {
			fmt.Fprintf(out, "  %d infeasible\n", summary.Infeasible)
		}
		unsolved += summary.Unknown + summary.Failed
		machines += summary.Machines
	}

	if sink != nil {
		if err := sink.WriteTextfile(cfg.Observability.MetricsFile); err != nil {
			return err
		}
		logger.Debug("metrics written", "path", cfg.Observability.MetricsFile)
	}

	if unsolved > 0 {
		return fmt.Errorf("%d of %d machine runs left unsolved", unsolved, machines)
	}
	return nil
}

func modeName(kind solver.CellKind) string {
	if kind == solver.Indicator {
		return "indicators"
	}
	return "counters"
}

// entry is one input line: a description, or the error that rejected it.
type entry struct {
	source string
	desc   notation.Description
	err    error
}

// readEntries parses every file in order, or stdin when there is none.
// Malformed lines become entries carrying their *notation.ParseError.
func readEntries(cmd *cobra.Command, paths []string, logger *logging.Logger) ([]entry, error) {
	if len(paths) == 0 {
		return readFrom("stdin", cmd.InOrStdin(), logger)
	}

	var all []entry
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		entries, err := readFrom(path, f, logger)
		f.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

func readFrom(source string, r io.Reader, logger *logging.Logger) ([]entry, error) {
	reader := notation.NewReader(r)
	var entries []entry
	for {
		d, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		var perr *notation.ParseError
		if errors.As(err, &perr) {
			logger.Warn("skipping malformed line", "source", source, "line", perr.Line, "column", perr.Column, "error", perr.Msg)
			entries = append(entries, entry{source: source, desc: notation.Description{Line: perr.Line}, err: fmt.Errorf("%s: %w", source, err)})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		entries = append(entries, entry{source: source, desc: d})
	}
}

func buildJobs(entries []entry, kind solver.CellKind) []batch.Job {
	jobs := make([]batch.Job, len(entries))
	for i, e := range entries {
		jobs[i].Line = e.desc.Line
		if e.err != nil {
			jobs[i].Err = e.err
			continue
		}
		var err error
		if kind == solver.Indicator {
			jobs[i].Machine, err = e.desc.IndicatorMachine()
		} else {
			jobs[i].Machine, err = e.desc.CounterMachine()
		}
		if err != nil {
			jobs[i].Err = fmt.Errorf("%s line %d: %w", e.source, e.desc.Line, err)
		}
	}
	return jobs
}
