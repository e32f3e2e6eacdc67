package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, entities.StrategyExact, c.Strategy())
	assert.Equal(t, 30*time.Second, c.Planner.TimeLimit)
	assert.Equal(t, 50, c.Planner.MaxIterations)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.True(t, c.Metrics.Enabled)

	planner := c.ToPlannerConfig()
	assert.Equal(t, entities.RejectLateArrivals, planner.ArrivalPolicy)
	assert.Equal(t, 1e-6, planner.Limits.Tolerance)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procure.yaml")
	yaml := `
planner:
  strategy: heuristic
  arrival_policy: clip
  time_limit: 5s
  node_limit: 200
  safety_stock_penalty: 2.5
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("PROCURE_HTTP_ADDR", ":9090")
	t.Setenv("PROCURE_PLANNER_NODE_LIMIT", "75")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, entities.StrategyHeuristic, c.Strategy())
	assert.Equal(t, "json", c.Log.Format)
	assert.Equal(t, ":9090", c.HTTP.Addr)

	planner := c.ToPlannerConfig()
	assert.Equal(t, entities.ClipLateArrivals, planner.ArrivalPolicy)
	assert.Equal(t, 5*time.Second, planner.Limits.TimeLimit)
	assert.Equal(t, 75, planner.Limits.NodeLimit)
	assert.Equal(t, 2.5, planner.SafetyStockPenalty)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown strategy", map[string]string{"PROCURE_PLANNER_STRATEGY": "random"}},
		{"unknown arrival policy", map[string]string{"PROCURE_PLANNER_ARRIVAL_POLICY": "drop"}},
		{"negative node limit", map[string]string{"PROCURE_PLANNER_NODE_LIMIT": "-1"}},
		{"gap out of range", map[string]string{"PROCURE_PLANNER_MIP_GAP": "1.5"}},
		{"negative penalty", map[string]string{"PROCURE_PLANNER_SAFETY_STOCK_PENALTY": "-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
