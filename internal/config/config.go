// Package config loads pressworks settings.
//
// Priority, lowest first: built-in defaults, the YAML file, PRESSWORKS_*
// environment variables. Command-line flags are applied by the caller on top of
// the loaded Config. The merged result is validated with struct tags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/pressworks/internal/logging"
	"github.com/gitrdm/pressworks/pkg/solver"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PRESSWORKS_"

// Config is the complete pressworks configuration.
type Config struct {
	Solver        SolverConfig        `yaml:"solver"`
	Batch         BatchConfig         `yaml:"batch"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// SolverConfig mirrors solver.SolverConfig with textual enums.
type SolverConfig struct {
	Policy       string `yaml:"policy" validate:"oneof=minimum first-feasible"`
	CellOrder    string `yaml:"cell_order" validate:"oneof=fewest-buttons index"`
	ButtonOrder  string `yaml:"button_order" validate:"oneof=fan-out index"`
	ValueOrder   string `yaml:"value_order" validate:"oneof=asc desc"`
	MaxNodes     int64  `yaml:"max_nodes" validate:"gte=0"`
	MaxFrontier  int    `yaml:"max_frontier" validate:"gte=0"`
	DisableDedup bool   `yaml:"disable_dedup"`
}

// BatchConfig controls how many machines are solved at once.
type BatchConfig struct {
	// Workers is the number of concurrent solves. 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0,lte=1024"`

	// MachineTimeout bounds a single solve. 0 means no limit.
	MachineTimeout time.Duration `yaml:"machine_timeout" validate:"gte=0"`
}

// LoggingConfig selects the log level and sinks.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// ObservabilityConfig enables tracing and the metrics textfile.
type ObservabilityConfig struct {
	// Tracing exports batch and machine spans to stdout.
	Tracing bool `yaml:"tracing"`

	// MetricsFile, when set, receives search metrics in the Prometheus text
	// format after every run.
	MetricsFile string `yaml:"metrics_file"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			Policy:      solver.PolicyMinimum.String(),
			CellOrder:   "fewest-buttons",
			ButtonOrder: "fan-out",
			ValueOrder:  "asc",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path
// is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decode overlays YAML onto cfg. Unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	var errs []error
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = i
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	// Solver
	str("POLICY", &c.Solver.Policy)
	str("CELL_ORDER", &c.Solver.CellOrder)
	str("BUTTON_ORDER", &c.Solver.ButtonOrder)
	str("VALUE_ORDER", &c.Solver.ValueOrder)
	if v, ok := lookup(EnvPrefix + "MAX_NODES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_NODES: %w", EnvPrefix, err))
		} else {
			c.Solver.MaxNodes = n
		}
	}
	integer("MAX_FRONTIER", &c.Solver.MaxFrontier)
	boolean("DISABLE_DEDUP", &c.Solver.DisableDedup)

	// Batch
	integer("WORKERS", &c.Batch.Workers)
	if v, ok := lookup(EnvPrefix + "MACHINE_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMACHINE_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.Batch.MachineTimeout = d
		}
	}

	// Logging
	str("LOG_LEVEL", &c.Logging.Level)
	boolean("LOG_JSON", &c.Logging.JSON)
	str("LOG_DIR", &c.Logging.Dir)

	// Observability
	boolean("TRACING", &c.Observability.Tracing)
	str("METRICS_FILE", &c.Observability.MetricsFile)

	return errors.Join(errs...)
}

// Validate checks every field against its tag.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ToSolverConfig converts the solver section into a solver.SolverConfig.
func (c *Config) ToSolverConfig() (*solver.SolverConfig, error) {
	policy, err := solver.ParsePolicy(c.Solver.Policy)
	if err != nil {
		return nil, err
	}
	cells, err := solver.ParseCellOrder(c.Solver.CellOrder)
	if err != nil {
		return nil, err
	}
	buttons, err := solver.ParseButtonOrder(c.Solver.ButtonOrder)
	if err != nil {
		return nil, err
	}
	values, err := solver.ParseValueOrder(c.Solver.ValueOrder)
	if err != nil {
		return nil, err
	}

	sc := &solver.SolverConfig{
		Policy:       policy,
		CellOrder:    cells,
		ButtonOrder:  buttons,
		ValueOrder:   values,
		MaxNodes:     c.Solver.MaxNodes,
		MaxFrontier:  c.Solver.MaxFrontier,
		DisableDedup: c.Solver.DisableDedup,
	}
	return sc, sc.Validate()
}

// ToLoggingConfig converts the logging section into a logging.Config.
func (c *Config) ToLoggingConfig(service string) (logging.Config, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:   level,
		JSON:    c.Logging.JSON,
		LogDir:  c.Logging.Dir,
		Service: service,
	}, nil
}
