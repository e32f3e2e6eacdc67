package normalize

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/procurement/pkg/application/services/formulation"
	"github.com/vsinha/procurement/pkg/application/services/lookup"
	testhelpers "github.com/vsinha/procurement/pkg/application/services/testing"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

func formulate(t *testing.T, strategy entities.Strategy, ds *entities.Dataset) (*formulation.RawResult, *lookup.Lookups) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	bb := solver.NewBranchAndBound(logger)

	f, err := formulation.New(strategy, bb, solver.NewSuccessiveLinearization(bb, logger))
	require.NoError(t, err)
	l, err := lookup.Build(ds, entities.RejectLateArrivals)
	require.NoError(t, err)
	raw, err := f.Formulate(context.Background(), l, formulation.Options{})
	require.NoError(t, err)
	return raw, l
}

func TestNormalize_ExactPlan(t *testing.T) {
	raw, l := formulate(t, entities.StrategyExact, testhelpers.BuildDominanceDataset())

	result, err := Normalize(raw, l, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.NoError(t, result.Err())
	assert.True(t, result.Costs.Total.Equal(decimal.NewFromInt(220)), "total %s", result.Costs.Total)
	assert.True(t, result.Costs.Holding.IsZero())
	assert.InDelta(t, result.Objective, result.Costs.Total.InexactFloat64(), 1e-6)
	assert.Equal(t, map[entities.ProductID][]float64{"P1": {0, 0}}, result.Inventory)
	assert.Equal(t, []entities.Shipment{
		{ProductID: "P1", SupplierID: "S2", OrderPeriod: 0, ArrivalPeriod: 0, Quantity: 10},
		{ProductID: "P1", SupplierID: "S2", OrderPeriod: 1, ArrivalPeriod: 1, Quantity: 10},
	}, result.Shipments)
	assert.Equal(t, 1.0, result.KPIs.ServiceLevel)
	assert.Equal(t, 2, result.KPIs.OrderCount)
	assert.Equal(t, 0.0, result.KPIs.Obsolescence)
}

func TestNormalize_HeuristicPlan(t *testing.T) {
	raw, l := formulate(t, entities.StrategyHeuristic, testhelpers.BuildDominanceDataset())

	result, err := Normalize(raw, l, Options{})
	require.NoError(t, err)

	assert.True(t, result.Costs.Procurement.Equal(decimal.NewFromInt(500)))
	assert.True(t, result.Costs.Holding.Equal(decimal.NewFromInt(70)))
	assert.True(t, result.Costs.Total.Equal(decimal.NewFromInt(570)))
	assert.Equal(t, 30.0, result.KPIs.Obsolescence)
	assert.InDelta(t, 20.0/35.0, result.KPIs.InventoryTurnover, 1e-9)
}

func TestNormalize_DiscountBreakdown(t *testing.T) {
	raw, l := formulate(t, entities.StrategyExact, testhelpers.BuildDiscountDataset())

	result, err := Normalize(raw, l, Options{})
	require.NoError(t, err)

	assert.True(t, result.Costs.Procurement.Equal(decimal.NewFromInt(1450)), "procurement %s", result.Costs.Procurement)
	assert.True(t, result.Costs.Discount.Equal(decimal.NewFromInt(50)), "discount %s", result.Costs.Discount)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw, l := formulate(t, entities.StrategyExact, testhelpers.BuildWarehouseDataset())

	first, err := Normalize(raw, l, Options{})
	require.NoError(t, err)
	second, err := Normalize(raw, l, Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	second.RunID = first.RunID
	second.CreatedAt = first.CreatedAt
	assert.Equal(t, first, second)
}

func TestNormalize_BalanceViolation(t *testing.T) {
	raw, l := formulate(t, entities.StrategyExact, testhelpers.BuildDominanceDataset())
	raw.Inventory[0][1] = 5

	_, err := Normalize(raw, l, Options{})

	assert.ErrorIs(t, err, entities.ErrBalanceViolation)
}

func TestNormalize_BelowMOQIsAlwaysFatal(t *testing.T) {
	l, err := lookup.Build(testhelpers.BuildDominanceDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)
	raw := &formulation.RawResult{
		Strategy: entities.StrategyExact,
		Status:   entities.StatusTimedOut,
		Decisions: []entities.ProcurementDecision{
			{ProductID: "P1", SupplierID: "S1", Period: 0, Quantity: 20},
		},
		Inventory: [][]float64{{10, 0}},
	}

	_, err = Normalize(raw, l, Options{})

	assert.ErrorIs(t, err, entities.ErrInvariantViolation)
	assert.ErrorContains(t, err, "below the MOQ of 50")
}

func TestNormalize_InvariantsByStatus(t *testing.T) {
	l, err := lookup.Build(testhelpers.BuildOverCapacityDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)
	raw := func(status entities.PlanStatus) *formulation.RawResult {
		return &formulation.RawResult{
			Strategy: entities.StrategyHeuristic,
			Status:   status,
			Decisions: []entities.ProcurementDecision{
				{ProductID: "P1", SupplierID: "S1", Period: 0, Quantity: 5},
				{ProductID: "P1", SupplierID: "S1", Period: 1, Quantity: 5},
			},
			Inventory: [][]float64{{0, 0}},
		}
	}

	_, err = Normalize(raw(entities.StatusFeasible), l, Options{})
	assert.ErrorIs(t, err, entities.ErrInvariantViolation)

	result, err := Normalize(raw(entities.StatusInfeasibleGreedy), l, Options{})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err(), entities.ErrInfeasibleGreedy)
	assert.Contains(t, result.Diagnostics, "invariant: product P1 inventory 0 is below safety stock 50 in period 0")
	assert.Len(t, result.Shortfalls, 2)

	soft, err := Normalize(raw(entities.StatusFeasible), l, Options{SafetyStockPenalty: 2})
	require.NoError(t, err)
	assert.True(t, soft.Costs.Penalty.Equal(decimal.NewFromInt(200)))
}

func TestNormalize_NoPlan(t *testing.T) {
	raw, l := formulate(t, entities.StrategyExact, testhelpers.BuildOverCapacityDataset())

	result, err := Normalize(raw, l, Options{})
	require.NoError(t, err)

	assert.False(t, result.HasPlan())
	assert.Empty(t, result.Procurement)
	assert.ErrorIs(t, result.Err(), entities.ErrInfeasible)
}

func TestNormalize_ShelfLifeViolation(t *testing.T) {
	l, err := lookup.Build(testhelpers.BuildPerishableDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)
	raw := &formulation.RawResult{
		Strategy: entities.StrategyExact,
		Status:   entities.StatusOptimal,
		Decisions: []entities.ProcurementDecision{
			{ProductID: "P1", SupplierID: "S1", Period: 0, Quantity: 40},
		},
		Inventory: [][]float64{{30, 20, 10, 0}},
	}

	_, err = Normalize(raw, l, Options{})

	assert.ErrorIs(t, err, entities.ErrInvariantViolation)
	assert.ErrorContains(t, err, "only 0 arrived within its shelf life")
}
