package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testinghelpers "github.com/vsinha/procurement/pkg/application/services/testing"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/repositories/tabular"
)

func writeScenario(t *testing.T, ds *entities.Dataset) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, tabular.NewLoader().WriteCSVDir(dir, ds))
	return dir
}

func TestPlanCommand_SingleStrategyJSON(t *testing.T) {
	dir := writeScenario(t, testinghelpers.BuildDominanceDataset())
	var buf bytes.Buffer

	err := NewPlanCommand(Config{ScenarioDir: dir, Strategy: "heuristic", Format: "json"}, &buf).
		Execute(context.Background())
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "heuristic", result["strategy"])
	assert.Equal(t, "feasible", result["status"])
}

func TestPlanCommand_CompareText(t *testing.T) {
	dir := writeScenario(t, testinghelpers.BuildDominanceDataset())
	var buf bytes.Buffer

	err := NewPlanCommand(Config{ScenarioDir: dir, Compare: true}, &buf).Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Strategy Comparison")
	assert.Contains(t, buf.String(), "Cheapest: exact")
}

func TestPlanCommand_JSONInputFile(t *testing.T) {
	data, err := json.Marshal(testinghelpers.BuildLeadTimeDataset())
	require.NoError(t, err)
	input := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(input, data, 0644))

	outDir := t.TempDir()
	err = NewPlanCommand(Config{Input: input, Format: "csv", OutputDir: outDir}, &bytes.Buffer{}).
		Execute(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "exact_orders.csv"))
	assert.NoError(t, err)
}

func TestPlanCommand_BestEffortReturnsStatus(t *testing.T) {
	dir := writeScenario(t, testinghelpers.BuildOverCapacityDataset())
	var buf bytes.Buffer

	err := NewPlanCommand(Config{ScenarioDir: dir, Strategy: "heuristic"}, &buf).Execute(context.Background())

	assert.True(t, errors.Is(err, entities.ErrInfeasibleGreedy), "got %v", err)
	assert.Contains(t, buf.String(), "heuristic plan")
}

func TestPlanCommand_InvalidDataset(t *testing.T) {
	ds := testinghelpers.BuildDominanceDataset()
	ds.Demand = append(ds.Demand, entities.DemandEntry{ProductID: "GHOST", Period: 0, Quantity: 1})
	dir := writeScenario(t, ds)

	err := NewPlanCommand(Config{ScenarioDir: dir}, &bytes.Buffer{}).Execute(context.Background())
	assert.True(t, errors.Is(err, entities.ErrDataInconsistency), "got %v", err)
}

func TestPlanCommand_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"no source", Config{}, "exactly one of -input or -scenario"},
		{"two sources", Config{Input: "a.json", ScenarioDir: "dir"}, "exactly one of -input or -scenario"},
		{"strategy with compare", Config{ScenarioDir: "dir", Compare: true, Strategy: "exact"}, "cannot be combined"},
		{"bad format", Config{ScenarioDir: "dir", Format: "pdf"}, "unsupported output format"},
		{"bad extension", Config{Input: "dataset.yaml"}, "unsupported dataset file"},
		{"bad strategy", Config{ScenarioDir: "dir", Strategy: "random"}, "invalid strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPlanCommand(tt.config, &bytes.Buffer{}).Execute(context.Background())
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestPlanCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlanCommand(Config{Help: true}, &buf).Execute(context.Background()))
	assert.Contains(t, buf.String(), "procure plan")
	assert.Contains(t, buf.String(), "PROCURE_PLANNER_STRATEGY")
}
