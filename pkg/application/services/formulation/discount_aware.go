package formulation

import (
	"context"
	"fmt"

	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

// DiscountAwareFormulator keeps quantity discounts as piecewise cost terms and
// hands them to a nonlinear backend instead of linearising them.
type DiscountAwareFormulator struct {
	backend solver.NonlinearBackend
}

var _ Formulator = (*DiscountAwareFormulator)(nil)

// NewDiscountAwareFormulator creates a discount-aware formulator on the given backend
func NewDiscountAwareFormulator(backend solver.NonlinearBackend) *DiscountAwareFormulator {
	return &DiscountAwareFormulator{backend: backend}
}

// Strategy returns StrategyDiscountAware
func (f *DiscountAwareFormulator) Strategy() entities.Strategy {
	return entities.StrategyDiscountAware
}

func (f *DiscountAwareFormulator) sealed() {}

// Formulate generates the piecewise model, solves it and extracts the plan
func (f *DiscountAwareFormulator) Formulate(ctx context.Context, l *lookup.Lookups, opts Options) (*RawResult, error) {
	pm := buildPlanModel(l, opts, discountPiecewise)
	nonlinear := &solver.NonlinearModel{Model: *pm.model, Piecewise: pm.piecewise}

	sol, err := f.backend.SubmitNonlinear(ctx, nonlinear, opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("discount-aware formulation: %w", err)
	}

	result := &RawResult{
		Strategy:  entities.StrategyDiscountAware,
		Status:    sol.Status,
		Objective: sol.Objective,
		Diagnostics: []string{
			fmt.Sprintf("model has %d variables, %d constraints and %d piecewise cost terms",
				len(pm.model.Variables), len(pm.model.Constraints), len(pm.piecewise)),
			fmt.Sprintf("nonlinear search ran %d linearisation rounds", sol.Iterations),
		},
	}
	pm.extract(l, sol, result)

	switch sol.Status {
	case entities.StatusFeasible:
		result.Diagnostics = append(result.Diagnostics, "cost segments settled; the plan is a local optimum of the discounted cost")
	case entities.StatusNotConverged:
		result.Diagnostics = append(result.Diagnostics, "iteration budget exhausted before the cost segments settled")
	case entities.StatusTimedOut:
		result.Diagnostics = append(result.Diagnostics, "time budget exhausted during nonlinear search")
	}
	return result, nil
}
