package formulation

import (
	"context"
	"fmt"

	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

// ExactFormulator builds the mixed-integer model with exactly linearised
// discounts and hands it to a MILP backend.
type ExactFormulator struct {
	backend solver.Backend
}

var _ Formulator = (*ExactFormulator)(nil)

// NewExactFormulator creates an exact formulator on the given backend
func NewExactFormulator(backend solver.Backend) *ExactFormulator {
	return &ExactFormulator{backend: backend}
}

// Strategy returns StrategyExact
func (f *ExactFormulator) Strategy() entities.Strategy {
	return entities.StrategyExact
}

func (f *ExactFormulator) sealed() {}

// Formulate generates the model, solves it and extracts the plan
func (f *ExactFormulator) Formulate(ctx context.Context, l *lookup.Lookups, opts Options) (*RawResult, error) {
	pm := buildPlanModel(l, opts, discountTiered)

	sol, err := f.backend.Submit(ctx, pm.model, opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("exact formulation: %w", err)
	}

	result := &RawResult{
		Strategy:  entities.StrategyExact,
		Status:    sol.Status,
		Objective: sol.Objective,
		Diagnostics: []string{
			fmt.Sprintf("model has %d variables and %d constraints", len(pm.model.Variables), len(pm.model.Constraints)),
		},
	}
	pm.extract(l, sol, result)

	switch {
	case sol.Status == entities.StatusTimedOut && sol.HasIncumbent():
		result.Diagnostics = append(result.Diagnostics, "time budget exhausted; returning best incumbent")
	case sol.Status == entities.StatusTimedOut:
		result.Diagnostics = append(result.Diagnostics, "time budget exhausted before a feasible plan was found")
	case sol.Status == entities.StatusFeasible:
		result.Diagnostics = append(result.Diagnostics, "search ended within the gap or after dropping failed relaxations; the plan is feasible but not proven optimal")
	case sol.Status == entities.StatusNotConverged:
		result.Diagnostics = append(result.Diagnostics, "relaxations failed numerically before a feasible plan was found")
	}
	return result, nil
}
