package formulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

// Options tunes a formulation run
type Options struct {
	// Limits are passed to the solver backend
	Limits solver.Limits
	// SafetyStockPenalty > 0 turns safety stock into a soft constraint charged per missing unit
	SafetyStockPenalty float64
	// BigM overrides the derived MOQ big-M when positive
	BigM float64
}

// SoftSafetyStock reports whether shortfalls below safety stock are allowed
func (o Options) SoftSafetyStock() bool {
	return o.SafetyStockPenalty > 0
}

// RawResult is a formulator's plan before normalisation. Inventory is the
// formulator's own claim and is checked against an independent recomputation.
type RawResult struct {
	Strategy    entities.Strategy
	Status      entities.PlanStatus
	Decisions   []entities.ProcurementDecision
	Inventory   [][]float64
	Shortfalls  []entities.Shortfall
	Objective   float64
	Diagnostics []string
	Nodes       int
	Iterations  int
	Elapsed     time.Duration
}

// HasPlan reports whether the result carries a plan
func (r *RawResult) HasPlan() bool {
	return r.Inventory != nil
}

// Formulator turns lookups into a procurement plan. The set of formulators is
// closed: Exact, DiscountAware and Heuristic.
type Formulator interface {
	Strategy() entities.Strategy
	Formulate(ctx context.Context, lookups *lookup.Lookups, opts Options) (*RawResult, error)
	sealed()
}

// New returns the formulator for a strategy
func New(strategy entities.Strategy, backend solver.Backend, nonlinear solver.NonlinearBackend) (Formulator, error) {
	switch strategy {
	case entities.StrategyExact:
		if backend == nil {
			return nil, fmt.Errorf("exact formulator requires a solver backend")
		}
		return NewExactFormulator(backend), nil
	case entities.StrategyDiscountAware:
		if nonlinear == nil {
			return nil, fmt.Errorf("discount-aware formulator requires a nonlinear backend")
		}
		return NewDiscountAwareFormulator(nonlinear), nil
	case entities.StrategyHeuristic:
		return NewHeuristicFormulator(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %d", strategy)
	}
}

// quantityScale sets the resolution (1e-6) at which solver output is reported
const quantityScale = 1e6

func clean(v float64) float64 {
	r := math.Round(v*quantityScale) / quantityScale
	if r == 0 {
		return 0
	}
	return r
}

func emptyInventory(l *lookup.Lookups) [][]float64 {
	inv := make([][]float64, l.ProductCount())
	for p := range inv {
		inv[p] = make([]float64, l.Periods())
	}
	return inv
}
