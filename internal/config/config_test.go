package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitrdm/pressworks/internal/logging"
	"github.com/gitrdm/pressworks/pkg/solver"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pressworks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	sc, err := cfg.ToSolverConfig()
	require.NoError(t, err)
	assert.Equal(t, solver.DefaultSolverConfig(), sc)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "minimum", cfg.Solver.Policy)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
solver:
  policy: first-feasible
  button_order: index
  value_order: desc
  max_nodes: 5000
batch:
  workers: 3
  machine_timeout: 2s
logging:
  level: debug
  json: true
observability:
  tracing: true
  metrics_file: /tmp/pressworks.prom
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "first-feasible", cfg.Solver.Policy)
	assert.Equal(t, "fewest-buttons", cfg.Solver.CellOrder, "unset keys keep defaults")
	assert.Equal(t, int64(5000), cfg.Solver.MaxNodes)
	assert.Equal(t, 3, cfg.Batch.Workers)
	assert.Equal(t, 2*time.Second, cfg.Batch.MachineTimeout)
	assert.True(t, cfg.Logging.JSON)
	assert.True(t, cfg.Observability.Tracing)
	assert.Equal(t, "/tmp/pressworks.prom", cfg.Observability.MetricsFile)

	sc, err := cfg.ToSolverConfig()
	require.NoError(t, err)
	assert.Equal(t, solver.PolicyFirstFeasible, sc.Policy)
	assert.Equal(t, solver.ButtonOrderIndex, sc.ButtonOrder)
	assert.Equal(t, solver.ValueOrderDesc, sc.ValueOrder)
	assert.Equal(t, int64(5000), sc.MaxNodes)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "solver:\n  policy: first-feasible\nbatch:\n  workers: 2\n")
	t.Setenv("PRESSWORKS_POLICY", "minimum")
	t.Setenv("PRESSWORKS_WORKERS", "7")
	t.Setenv("PRESSWORKS_MACHINE_TIMEOUT", "150ms")
	t.Setenv("PRESSWORKS_LOG_JSON", "true")
	t.Setenv("PRESSWORKS_DISABLE_DEDUP", "1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "minimum", cfg.Solver.Policy)
	assert.Equal(t, 7, cfg.Batch.Workers)
	assert.Equal(t, 150*time.Millisecond, cfg.Batch.MachineTimeout)
	assert.True(t, cfg.Logging.JSON)
	assert.True(t, cfg.Solver.DisableDedup)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "unknown key", body: "solver:\n  polcy: minimum\n"},
		{name: "bad yaml", body: "solver: [\n"},
		{name: "bad policy", body: "solver:\n  policy: fastest\n"},
		{name: "negative nodes", body: "solver:\n  max_nodes: -1\n"},
		{name: "too many workers", body: "batch:\n  workers: 5000\n"},
		{name: "bad level", body: "logging:\n  level: loud\n"},
		{name: "bad env int", env: map[string]string{"PRESSWORKS_WORKERS": "many"}},
		{name: "bad env duration", env: map[string]string{"PRESSWORKS_MACHINE_TIMEOUT": "soon"}},
		{name: "bad env bool", env: map[string]string{"PRESSWORKS_TRACING": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeFile(t, tt.body)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConfig_ToLoggingConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.JSON = true
	cfg.Logging.Dir = "/var/log/pressworks"

	lc, err := cfg.ToLoggingConfig("pressworks")
	require.NoError(t, err)
	assert.Equal(t, logging.Config{
		Level:   logging.LevelWarn,
		JSON:    true,
		LogDir:  "/var/log/pressworks",
		Service: "pressworks",
	}, lc)
}
