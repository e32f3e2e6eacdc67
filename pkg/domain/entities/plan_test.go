package entities

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
	}{
		{"exact", StrategyExact},
		{"MILP", StrategyExact},
		{"discount-aware", StrategyDiscountAware},
		{"nlp", StrategyDiscountAware},
		{" heuristic ", StrategyHeuristic},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseStrategy("annealing")
	assert.EqualError(t, err, "invalid strategy: annealing (expected exact, discount-aware or heuristic)")
}

func TestParseArrivalPolicy(t *testing.T) {
	policy, err := ParseArrivalPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RejectLateArrivals, policy)

	policy, err = ParseArrivalPolicy("CLIP")
	require.NoError(t, err)
	assert.Equal(t, ClipLateArrivals, policy)

	_, err = ParseArrivalPolicy("drop")
	assert.Error(t, err)
}

func TestPlanStatus_Err(t *testing.T) {
	assert.NoError(t, StatusOptimal.Err())
	assert.NoError(t, StatusFeasible.Err())
	assert.ErrorIs(t, StatusInfeasible.Err(), ErrInfeasible)
	assert.ErrorIs(t, StatusTimedOut.Err(), ErrSolverTimeout)
	assert.ErrorIs(t, StatusNotConverged.Err(), ErrConvergenceFailure)
	assert.ErrorIs(t, StatusInfeasibleGreedy.Err(), ErrInfeasibleGreedy)
	assert.False(t, errors.Is(StatusInfeasibleGreedy.Err(), ErrInfeasible),
		"a greedy failure is not a proof of infeasibility")

	text, err := StatusInfeasibleGreedy.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "infeasible-greedy", string(text))
}

func TestPlanError(t *testing.T) {
	err := NewPlanError(KindBalanceViolation, "normalize", "product %s period %d off by %g", "P1", 2, 3.5)

	assert.EqualError(t, err, "normalize: inventory balance violation: product P1 period 2 off by 3.5")
	assert.ErrorIs(t, err, ErrBalanceViolation)
	assert.True(t, err.Kind.Fatal())

	var planErr *PlanError
	wrapped := errors.Join(errors.New("run failed"), err)
	require.ErrorAs(t, wrapped, &planErr)
	assert.Equal(t, "normalize", planErr.Op)

	assert.False(t, KindSolverTimeout.Fatal())
}
