package solver

import (
	"context"
	"math"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

const (
	// boundTolerance treats a variable as fixed when its bounds are this close
	boundTolerance = 1e-9
	// zeroCoef drops coefficients that cancelled to numerical noise
	zeroCoef = 1e-12
)

// relaxation is the result of one LP relaxation
type relaxation struct {
	status    entities.PlanStatus
	values    []float64
	objective float64
}

// stdRow is a constraint rewritten over the shifted free columns
type stdRow struct {
	coefs []float64
	sense Sense
	rhs   float64
}

// solveRelaxation solves the LP relaxation of the model with binaries relaxed
// to [lower, upper]. Fixed variables are substituted out and lower bounds
// shifted to zero; finite upper bounds stay on the columns. Empty rows and
// columns are resolved up front and the rest goes to the bounded simplex.
func solveRelaxation(ctx context.Context, model *Model, lower, upper []float64) (relaxation, error) {
	n := len(model.Variables)
	values := make([]float64, n)
	column := make([]int, n)
	free := make([]int, 0, n)

	for j := 0; j < n; j++ {
		lo, hi := lower[j], upper[j]
		if hi < lo-boundTolerance {
			return relaxation{status: entities.StatusInfeasible}, nil
		}
		values[j] = lo
		if hi-lo <= boundTolerance {
			column[j] = -1
			continue
		}
		column[j] = len(free)
		free = append(free, j)
	}

	cost := make([]float64, len(free))
	for _, t := range model.Objective {
		if c := column[t.Var]; c >= 0 {
			cost[c] += t.Coef
		}
	}

	rows := make([]stdRow, 0, len(model.Constraints))
	for _, con := range model.Constraints {
		row := stdRow{coefs: make([]float64, len(free)), sense: con.Sense, rhs: con.RHS}
		for _, t := range con.Terms {
			row.rhs -= t.Coef * values[t.Var]
			if c := column[t.Var]; c >= 0 {
				row.coefs[c] += t.Coef
			}
		}
		if !isZeroRow(row.coefs) {
			rows = append(rows, row)
			continue
		}
		if !zeroRowSatisfied(row) {
			return relaxation{status: entities.StatusInfeasible}, nil
		}
	}

	// Columns that appear in no row sit at whichever bound their cost prefers.
	active := make([]int, 0, len(free))
	for c, j := range free {
		used := false
		for _, row := range rows {
			if math.Abs(row.coefs[c]) > zeroCoef {
				used = true
				break
			}
		}
		switch {
		case used:
			active = append(active, c)
		case cost[c] >= 0:
		case math.IsInf(upper[j], 1):
			return relaxation{status: entities.StatusUnbounded}, nil
		default:
			values[j] = upper[j]
		}
	}

	if len(rows) == 0 {
		return relaxation{status: entities.StatusOptimal, values: values, objective: model.Evaluate(values)}, nil
	}

	lp := newBoundedSimplex(len(rows), len(active), countInequalities(rows))
	for _, c := range active {
		j := free[c]
		lp.addColumn(cost[c], upper[j]-lower[j], func(i int) float64 { return rows[i].coefs[c] })
	}
	for i, row := range rows {
		lp.addRow(i, row.sense, row.rhs)
	}

	status, err := lp.solve(ctx)
	if err != nil {
		return relaxation{}, err
	}
	if status != entities.StatusOptimal {
		return relaxation{status: status}, nil
	}

	for k, c := range active {
		j := free[c]
		values[j] = lower[j] + lp.columnValue(k)
	}
	return relaxation{status: entities.StatusOptimal, values: values, objective: model.Evaluate(values)}, nil
}

func countInequalities(rows []stdRow) int {
	count := 0
	for _, row := range rows {
		if row.sense != Equal {
			count++
		}
	}
	return count
}

func isZeroRow(coefs []float64) bool {
	for _, v := range coefs {
		if math.Abs(v) > zeroCoef {
			return false
		}
	}
	return true
}

func zeroRowSatisfied(row stdRow) bool {
	tol := boundTolerance * math.Max(1, math.Abs(row.rhs))
	switch row.sense {
	case LessEq:
		return row.rhs >= -tol
	case GreaterEq:
		return row.rhs <= tol
	default:
		return math.Abs(row.rhs) <= tol
	}
}
