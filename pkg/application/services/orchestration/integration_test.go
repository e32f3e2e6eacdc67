package orchestration

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	testinghelpers "github.com/vsinha/procurement/pkg/application/services/testing"
	"github.com/vsinha/procurement/pkg/domain/entities"
)

func newTestPlanner(config PlannerConfig) *Planner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewPlanner(config, logger)
}

type recordingObserver struct {
	mu       sync.Mutex
	runs     map[string]string
	failures map[string]string
}

func (o *recordingObserver) ObserveRun(strategy, status string, _ time.Duration, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs[strategy] = status
}

func (o *recordingObserver) ObserveFailure(strategy, kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[strategy] = kind
}

func TestPlanner_CompareDominance(t *testing.T) {
	planner := newTestPlanner(PlannerConfig{})

	comparison, err := planner.Compare(context.Background(), testinghelpers.BuildDominanceDataset())
	if err != nil {
		t.Fatalf("Failed to compare strategies: %v", err)
	}

	for _, result := range comparison.Results {
		t.Logf("  %s", Summary(result))
	}

	exact, _ := comparison.ByStrategy(entities.StrategyExact)
	heuristic, _ := comparison.ByStrategy(entities.StrategyHeuristic)
	discountAware, _ := comparison.ByStrategy(entities.StrategyDiscountAware)

	if got := exact.Costs.Total.StringFixed(2); got != "220.00" {
		t.Errorf("Expected exact total 220.00, got %s", got)
	}
	if got := heuristic.Costs.Total.StringFixed(2); got != "570.00" {
		t.Errorf("Expected heuristic total 570.00, got %s", got)
	}
	if got := discountAware.Costs.Total.StringFixed(2); got != "220.00" {
		t.Errorf("Expected discount-aware total 220.00, got %s", got)
	}
	if exact.Costs.Total.GreaterThan(heuristic.Costs.Total) {
		t.Errorf("Exact plan (%s) must never cost more than the heuristic (%s)", exact.Costs.Total, heuristic.Costs.Total)
	}

	cheapest, ok := comparison.Cheapest()
	if !ok || cheapest.Strategy == entities.StrategyHeuristic {
		t.Errorf("Expected an optimising strategy to be cheapest, got %v", cheapest)
	}
}

func TestPlanner_IdenticalShipmentsAcrossStrategies(t *testing.T) {
	planner := newTestPlanner(PlannerConfig{})

	comparison, err := planner.Compare(context.Background(), testinghelpers.BuildLeadTimeDataset())
	if err != nil {
		t.Fatalf("Failed to compare strategies: %v", err)
	}

	reference := comparison.Results[0].Shipments
	if len(reference) != 1 || reference[0].ArrivalPeriod != 1 || reference[0].OrderPeriod != 0 {
		t.Fatalf("Expected a single order placed in period 0 arriving in period 1, got %+v", reference)
	}
	for _, result := range comparison.Results[1:] {
		if !reflect.DeepEqual(reference, result.Shipments) {
			t.Errorf("%s shipments %+v differ from %+v", result.Strategy, result.Shipments, reference)
		}
	}
}

func TestPlanner_LongLeadRejectedIdentically(t *testing.T) {
	planner := newTestPlanner(PlannerConfig{})

	comparison, err := planner.Compare(context.Background(), testinghelpers.BuildLongLeadDataset())
	if err != nil {
		t.Fatalf("Failed to compare strategies: %v", err)
	}

	for _, result := range comparison.Results {
		for _, shipment := range result.Shipments {
			if shipment.SupplierID == "FAR" {
				t.Errorf("%s used a supplier whose lead time exceeds the horizon", result.Strategy)
			}
		}
		if got := result.Costs.Total.StringFixed(2); got != "40.00" {
			t.Errorf("%s: expected total 40.00, got %s", result.Strategy, got)
		}
	}
}

func TestPlanner_ClipPolicyFlagsLateArrivals(t *testing.T) {
	planner := newTestPlanner(PlannerConfig{ArrivalPolicy: entities.ClipLateArrivals})

	comparison, err := planner.Compare(context.Background(), testinghelpers.BuildLongLeadDataset())
	if err != nil {
		t.Fatalf("Failed to compare strategies: %v", err)
	}

	for _, result := range comparison.Results {
		if result.KPIs.LateOrders == 0 {
			t.Errorf("%s: expected the clipped supplier to be used", result.Strategy)
		}
		if got := result.Costs.Total.StringFixed(2); got != "24.00" {
			t.Errorf("%s: expected total 24.00, got %s", result.Strategy, got)
		}
	}
}

func TestPlanner_InvalidDatasetFailsFast(t *testing.T) {
	observer := &recordingObserver{runs: map[string]string{}, failures: map[string]string{}}
	planner := newTestPlanner(PlannerConfig{}).WithObserver(observer)

	ds := testinghelpers.BuildDominanceDataset()
	ds.Demand = append(ds.Demand, entities.DemandEntry{ProductID: "GHOST", Period: 0, Quantity: 1})

	_, err := planner.Plan(context.Background(), ds, entities.StrategyExact)
	if !errors.Is(err, entities.ErrDataInconsistency) {
		t.Fatalf("Expected data inconsistency, got %v", err)
	}
	if observer.failures["exact"] != "data inconsistency" {
		t.Errorf("Expected the failure to be observed, got %v", observer.failures)
	}
}

func TestPlanner_BestEffortStatus(t *testing.T) {
	observer := &recordingObserver{runs: map[string]string{}, failures: map[string]string{}}
	planner := newTestPlanner(PlannerConfig{}).WithObserver(observer)

	result, err := planner.Plan(context.Background(), testinghelpers.BuildOverCapacityDataset(), entities.StrategyHeuristic)
	if err != nil {
		t.Fatalf("Expected a best-effort result, got error %v", err)
	}
	if !errors.Is(result.Err(), entities.ErrInfeasibleGreedy) {
		t.Errorf("Expected greedy infeasibility, got %v", result.Err())
	}
	if observer.runs["heuristic"] != "infeasible-greedy" {
		t.Errorf("Expected the run to be observed, got %v", observer.runs)
	}
}

func TestPlanner_ScaledDemand(t *testing.T) {
	planner := newTestPlanner(PlannerConfig{})
	ds := testinghelpers.BuildDominanceDataset().WithDemandScaled(5)

	result, err := planner.Plan(context.Background(), ds, entities.StrategyExact)
	if err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}

	// 50 per period reaches the MOQ of the cheaper supplier in both periods
	if got := result.Costs.Total.StringFixed(2); got != "1000.00" {
		t.Errorf("Expected total 1000.00, got %s", got)
	}
}

func TestObservers_FanOut(t *testing.T) {
	first := &recordingObserver{runs: map[string]string{}, failures: map[string]string{}}
	second := &recordingObserver{runs: map[string]string{}, failures: map[string]string{}}
	planner := newTestPlanner(PlannerConfig{}).WithObserver(Observers(first, nil, second))

	if _, err := planner.Plan(context.Background(), testinghelpers.BuildDiscountDataset(), entities.StrategyDiscountAware); err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}

	for _, o := range []*recordingObserver{first, second} {
		if o.runs["discount-aware"] != "feasible" {
			t.Errorf("Expected a feasible discount-aware run, got %v", o.runs)
		}
	}
}
