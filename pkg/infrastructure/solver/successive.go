package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// PiecewiseTerm adds a two-segment cost of variable Var to the objective:
// SlopeBelow per unit up to Breakpoint, SlopeAbove per unit beyond it.
type PiecewiseTerm struct {
	Var        int
	Breakpoint float64
	SlopeBelow float64
	SlopeAbove float64
}

// Value returns the term's cost at x
func (p PiecewiseTerm) Value(x float64) float64 {
	if x <= p.Breakpoint {
		return p.SlopeBelow * x
	}
	return p.SlopeBelow*p.Breakpoint + p.SlopeAbove*(x-p.Breakpoint)
}

// segment returns the linear piece active at x as slope and intercept
func (p PiecewiseTerm) segment(above bool) (slope, intercept float64) {
	if !above {
		return p.SlopeBelow, 0
	}
	return p.SlopeAbove, (p.SlopeBelow - p.SlopeAbove) * p.Breakpoint
}

// NonlinearModel is a linear model plus piecewise objective terms
type NonlinearModel struct {
	Model
	Piecewise []PiecewiseTerm
}

// Evaluate returns the true objective including piecewise terms
func (m *NonlinearModel) Evaluate(values []float64) float64 {
	total := m.Model.Evaluate(values)
	for _, p := range m.Piecewise {
		total += p.Value(values[p.Var])
	}
	return total
}

// SuccessiveLinearization minimises concave piecewise costs by repeatedly
// replacing every piecewise term with the segment active at the current point
// and re-solving the resulting linear model. Each round can only lower the
// true objective, and the search stops once the active segments repeat.
type SuccessiveLinearization struct {
	inner  Backend
	logger logrus.FieldLogger
}

var _ NonlinearBackend = (*SuccessiveLinearization)(nil)

// NewSuccessiveLinearization creates a nonlinear backend on top of a linear one
func NewSuccessiveLinearization(inner Backend, logger logrus.FieldLogger) *SuccessiveLinearization {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SuccessiveLinearization{
		inner:  inner,
		logger: logger.WithField("backend", "successive-linearization"),
	}
}

// SubmitNonlinear runs the linearisation loop from two starting points, all
// terms on the lower segment and all on the upper one, and keeps the best
// point found. A settled search is a local optimum of the concave cost and is
// reported as feasible. Running out of iterations yields status not-converged
// with the best incumbent.
func (s *SuccessiveLinearization) SubmitNonlinear(ctx context.Context, model *NonlinearModel, limits Limits) (*Solution, error) {
	for _, p := range model.Piecewise {
		if p.Var < 0 || p.Var >= len(model.Variables) {
			return nil, fmt.Errorf("invalid model: piecewise term references variable %d of %d", p.Var, len(model.Variables))
		}
	}
	if limits.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
		defer cancel()
	}

	start := time.Now()
	innerLimits := limits
	innerLimits.TimeLimit = 0
	budget := limits.maxIterations()

	result := &Solution{Status: entities.StatusFeasible}
	converged := true

starts:
	for _, initial := range []bool{false, true} {
		active := make([]bool, len(model.Piecewise))
		for i := range active {
			active[i] = initial
		}
		seen := map[string]bool{segmentKey(active): true}

		for {
			if result.Iterations >= budget {
				converged = false
				break starts
			}
			result.Iterations++

			sol, err := s.inner.Submit(ctx, s.linearize(model, active), innerLimits)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					result.Status = entities.StatusTimedOut
					break starts
				}
				return nil, fmt.Errorf("linearisation round %d: %w", result.Iterations, err)
			}
			result.Nodes += sol.Nodes

			switch sol.Status {
			case entities.StatusInfeasible, entities.StatusUnbounded:
				// The feasible region does not depend on the active segments.
				return &Solution{
					Status:     sol.Status,
					Nodes:      result.Nodes,
					Iterations: result.Iterations,
					Elapsed:    time.Since(start),
				}, nil
			}

			if sol.HasIncumbent() {
				objective := model.Evaluate(sol.Values)
				if result.Values == nil || objective < result.Objective {
					result.Values = sol.Values
					result.Objective = objective
				}
			}
			if sol.Status == entities.StatusTimedOut {
				result.Status = entities.StatusTimedOut
				break starts
			}
			if !sol.HasIncumbent() {
				converged = false
				break starts
			}

			next := s.activeSegments(model, sol.Values)
			key := segmentKey(next)
			if seen[key] {
				break
			}
			seen[key] = true
			active = next
		}
	}

	if !converged && result.Status != entities.StatusTimedOut {
		result.Status = entities.StatusNotConverged
	}
	result.Elapsed = time.Since(start)

	s.logger.WithFields(logrus.Fields{
		"status":     result.Status.String(),
		"iterations": result.Iterations,
		"nodes":      result.Nodes,
		"objective":  result.Objective,
	}).Debug("successive linearisation finished")

	return result, nil
}

// linearize replaces every piecewise term by its chosen segment
func (s *SuccessiveLinearization) linearize(model *NonlinearModel, active []bool) *Model {
	linear := &Model{
		Variables:         model.Variables,
		Constraints:       model.Constraints,
		ObjectiveConstant: model.ObjectiveConstant,
		Objective:         make([]Term, len(model.Objective), len(model.Objective)+len(model.Piecewise)),
	}
	copy(linear.Objective, model.Objective)
	for i, p := range model.Piecewise {
		slope, intercept := p.segment(active[i])
		linear.AddObjective(p.Var, slope)
		linear.ObjectiveConstant += intercept
	}
	return linear
}

// activeSegments picks, for every term, the cheaper segment at the given point.
// For a concave term that is the segment the point lies on.
func (s *SuccessiveLinearization) activeSegments(model *NonlinearModel, values []float64) []bool {
	active := make([]bool, len(model.Piecewise))
	for i, p := range model.Piecewise {
		x := values[p.Var]
		belowSlope, belowIntercept := p.segment(false)
		aboveSlope, aboveIntercept := p.segment(true)
		active[i] = aboveSlope*x+aboveIntercept < belowSlope*x+belowIntercept
	}
	return active
}

func segmentKey(active []bool) string {
	key := make([]byte, len(active))
	for i, a := range active {
		if a {
			key[i] = '1'
		} else {
			key[i] = '0'
		}
	}
	return string(key)
}
