// Package telemetry exports search instrumentation: Prometheus metrics through
// a solver.Diagnostics sink, and OpenTelemetry spans printed to a writer.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gitrdm/pressworks/pkg/solver"
)

const namespace = "pressworks"

// PrometheusSink is a solver.Diagnostics implementation backed by its own
// Prometheus registry. It is safe for concurrent use by a whole batch.
type PrometheusSink struct {
	registry *prometheus.Registry

	nodes      prometheus.Counter
	backtracks prometheus.Counter
	solutions  prometheus.Counter
	cellTime   prometheus.Counter
	searches   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	frontier   prometheus.Histogram
	maxDepth   prometheus.Gauge

	mu    sync.Mutex
	depth int
}

var _ solver.Diagnostics = (*PrometheusSink)(nil)

// NewPrometheusSink creates a sink with a fresh registry.
func NewPrometheusSink() *PrometheusSink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusSink{
		registry: reg,
		nodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_nodes_total",
			Help:      "Search nodes explored: BFS successors and committed press counts.",
		}),
		backtracks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_backtracks_total",
			Help:      "Abandoned branches of the equation search.",
		}),
		solutions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_solutions_total",
			Help:      "Complete solutions seen, including non-minimal ones.",
		}),
		cellTime: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cell_seconds_total",
			Help:      "Wall-clock time spent below counter cells.",
		}),
		searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Engine runs by cell kind.",
		}, []string{"kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of engine runs by cell kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		frontier: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_frontier_size",
			Help:      "Size of each BFS frontier.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		maxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_max_depth",
			Help:      "Deepest search level reached.",
		}),
	}
}

// Registry returns the sink's registry.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// RecordNode implements solver.Diagnostics.
func (s *PrometheusSink) RecordNode() {
	s.nodes.Inc()
}

// RecordBacktrack implements solver.Diagnostics.
func (s *PrometheusSink) RecordBacktrack() {
	s.backtracks.Inc()
}

// RecordDepth implements solver.Diagnostics.
func (s *PrometheusSink) RecordDepth(depth int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if depth > s.depth {
		s.depth = depth
		s.maxDepth.Set(float64(depth))
	}
}

// RecordFrontier implements solver.Diagnostics.
func (s *PrometheusSink) RecordFrontier(size int) {
	s.frontier.Observe(float64(size))
}

// RecordCellTime implements solver.Diagnostics.
func (s *PrometheusSink) RecordCellTime(_ int, elapsed time.Duration) {
	s.cellTime.Add(elapsed.Seconds())
}

// RecordSolution implements solver.Diagnostics.
func (s *PrometheusSink) RecordSolution(int) {
	s.solutions.Inc()
}

// FinishSearch implements solver.Diagnostics.
func (s *PrometheusSink) FinishSearch(kind solver.CellKind, elapsed time.Duration) {
	s.searches.WithLabelValues(kind.String()).Inc()
	s.duration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format,
// for pickup by a node exporter textfile collector.
func (s *PrometheusSink) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
