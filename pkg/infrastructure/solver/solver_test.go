package solver

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

func quietLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func knapsack() *Model {
	m := NewModel()
	a := m.AddBinary("a")
	b := m.AddBinary("b")
	c := m.AddBinary("c")
	m.AddObjective(a, -5)
	m.AddObjective(b, -4)
	m.AddObjective(c, -3)
	m.AddConstraint("weight", []Term{{a, 2}, {b, 3}, {c, 1}}, LessEq, 5)
	return m
}

func TestBranchAndBound_LinearProgram(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, 3)
	y := m.AddContinuous("y", 0, math.Inf(1))
	m.AddObjective(x, -2)
	m.AddObjective(y, -1)
	m.AddConstraint("sum", []Term{{x, 1}, {y, 1}}, LessEq, 4)

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusOptimal, sol.Status)
	assert.InDelta(t, -7.0, sol.Objective, 1e-6)
	assert.InDelta(t, 3.0, sol.Value(x), 1e-6)
	assert.InDelta(t, 1.0, sol.Value(y), 1e-6)
}

func TestBranchAndBound_EqualityOnlySystem(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, math.Inf(1))
	y := m.AddContinuous("y", 0, math.Inf(1))
	m.AddObjective(x, 1)
	m.AddObjective(y, 1)
	m.AddConstraint("sum", []Term{{x, 1}, {y, 1}}, Equal, 3)
	m.AddConstraint("diff", []Term{{x, 1}, {y, -1}}, Equal, 1)

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusOptimal, sol.Status)
	assert.InDelta(t, 2.0, sol.Value(x), 1e-6)
	assert.InDelta(t, 1.0, sol.Value(y), 1e-6)
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	m := knapsack()

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusOptimal, sol.Status)
	assert.InDelta(t, -9.0, sol.Objective, 1e-6)
	assert.Equal(t, []float64{1, 1, 0}, sol.Values)
	_, violated := m.Violation(sol.Values, 1e-6)
	assert.False(t, violated)
}

func TestBranchAndBound_MinimumOrderDisjunction(t *testing.T) {
	m := NewModel()
	q := m.AddContinuous("q", 0, 100)
	y := m.AddBinary("y")
	m.AddObjective(q, 1)
	m.AddObjective(y, 5)
	m.AddConstraint("bigM", []Term{{q, 1}, {y, -100}}, LessEq, 0)
	m.AddConstraint("moq", []Term{{q, 1}, {y, -10}}, GreaterEq, 0)
	m.AddConstraint("need", []Term{{q, 1}}, GreaterEq, 4)

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusOptimal, sol.Status)
	assert.InDelta(t, 10.0, sol.Value(q), 1e-6)
	assert.Equal(t, 1.0, sol.Value(y))
	assert.InDelta(t, 15.0, sol.Objective, 1e-6)
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, 3)
	m.AddObjective(x, 1)
	m.AddConstraint("floor", []Term{{x, 1}}, GreaterEq, 5)

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasIncumbent())
}

func TestBranchAndBound_Unbounded(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, math.Inf(1))
	m.AddObjective(x, -1)

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusUnbounded, sol.Status)
}

func TestBranchAndBound_NodeLimit(t *testing.T) {
	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), knapsack(), Limits{NodeLimit: 1})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusTimedOut, sol.Status)
	assert.False(t, sol.HasIncumbent(), "the root relaxation is fractional")
	assert.Equal(t, 1, sol.Nodes)
}

func TestBranchAndBound_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBranchAndBound(quietLogger()).Submit(ctx, knapsack(), Limits{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBranchAndBound_InvalidModel(t *testing.T) {
	m := NewModel()
	m.AddContinuous("x", 0, 1)
	m.AddConstraint("bad", []Term{{Var: 3, Coef: 1}}, LessEq, 1)

	_, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{})
	assert.ErrorContains(t, err, "references variable 3")
}

func TestSolveRelaxation_FixedVariableBreaksRow(t *testing.T) {
	m := NewModel()
	x := m.AddBinary("x")
	m.AddConstraint("cap", []Term{{x, 1}}, LessEq, 0.5)

	relax, err := solveRelaxation(context.Background(), m, []float64{1}, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInfeasible, relax.status)

	relax, err = solveRelaxation(context.Background(), m, []float64{0}, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusOptimal, relax.status)
}

func TestSolveRelaxation_BoundedColumns(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, 2)
	y := m.AddContinuous("y", 1, 5)
	m.AddObjective(x, -3)
	m.AddObjective(y, -1)
	m.AddConstraint("sum", []Term{{x, 1}, {y, 1}}, LessEq, 4)

	relax, err := solveRelaxation(context.Background(), m, []float64{0, 1}, []float64{2, 5})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusOptimal, relax.status)
	assert.InDelta(t, 2.0, relax.values[x], 1e-9)
	assert.InDelta(t, 2.0, relax.values[y], 1e-9)
	assert.InDelta(t, -8.0, relax.objective, 1e-9)
}

func TestSolveRelaxation_DependentEqualities(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, math.Inf(1))
	y := m.AddContinuous("y", 0, math.Inf(1))
	z := m.AddContinuous("z", 0, 10)
	m.AddObjective(x, 1)
	m.AddObjective(y, 2)
	m.AddObjective(z, 1)
	m.AddConstraint("balance", []Term{{x, 1}, {y, 1}, {z, -1}}, Equal, 0)
	m.AddConstraint("balance copy", []Term{{x, 1}, {y, 1}, {z, -1}}, Equal, 0)
	m.AddConstraint("doubled", []Term{{x, 2}, {y, 2}, {z, -2}}, Equal, 0)
	m.AddConstraint("need", []Term{{z, 1}}, GreaterEq, 3)

	relax, err := solveRelaxation(context.Background(), m, []float64{0, 0, 0}, []float64{math.Inf(1), math.Inf(1), 10})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusOptimal, relax.status)
	assert.InDelta(t, 3.0, relax.values[x], 1e-7)
	assert.InDelta(t, 0.0, relax.values[y], 1e-7)
	assert.InDelta(t, 3.0, relax.values[z], 1e-7)
	_, violated := m.Violation(relax.values, 1e-7)
	assert.False(t, violated)
}

func TestSolveRelaxation_InconsistentEqualities(t *testing.T) {
	m := NewModel()
	x := m.AddContinuous("x", 0, math.Inf(1))
	y := m.AddContinuous("y", 0, math.Inf(1))
	m.AddConstraint("a", []Term{{x, 1}, {y, 1}}, Equal, 2)
	m.AddConstraint("b", []Term{{x, 2}, {y, 2}}, Equal, 5)

	relax, err := solveRelaxation(context.Background(), m, []float64{0, 0}, []float64{math.Inf(1), math.Inf(1)})
	require.NoError(t, err)
	assert.Equal(t, entities.StatusInfeasible, relax.status)
}

func TestSolveRelaxation_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := knapsack()
	_, err := solveRelaxation(ctx, m, []float64{0, 0, 0}, []float64{1, 1, 1})
	assert.ErrorIs(t, err, context.Canceled)
}

// chainModel is a lot-sizing chain of n periods with a setup binary per
// period, large enough that its search outlives a short time limit.
func chainModel(n int) *Model {
	m := NewModel()
	stock := -1
	for p := 0; p < n; p++ {
		q := m.AddContinuous("q", 0, 1000)
		y := m.AddBinary("y")
		s := m.AddContinuous("s", 0, math.Inf(1))
		m.AddObjective(q, 1+float64(p%3))
		m.AddObjective(y, 40+float64(p%7))
		m.AddObjective(s, 0.5)
		m.AddConstraint("link", []Term{{q, 1}, {y, -1000}}, LessEq, 0)
		m.AddConstraint("moq", []Term{{q, 1}, {y, -15}}, GreaterEq, 0)
		terms := []Term{{q, 1}, {s, -1}}
		if stock >= 0 {
			terms = append(terms, Term{stock, 1})
		}
		m.AddConstraint("balance", terms, Equal, float64(10+(p*7)%23))
		stock = s
	}
	return m
}

func TestBranchAndBound_DiveFindsIncumbent(t *testing.T) {
	m := chainModel(12)

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), m, Limits{NodeLimit: 3})
	require.NoError(t, err)

	require.True(t, sol.HasIncumbent(), "rounding the root gives a plan")
	_, violated := m.Violation(sol.Values, 1e-6)
	assert.False(t, violated)
}

func TestBranchAndBound_TimeLimitIsHonoured(t *testing.T) {
	limit := 200 * time.Millisecond
	started := time.Now()

	sol, err := NewBranchAndBound(quietLogger()).Submit(context.Background(), chainModel(60), Limits{TimeLimit: limit})
	require.NoError(t, err)

	assert.Less(t, time.Since(started), limit+time.Second)
	assert.Contains(t, []entities.PlanStatus{entities.StatusOptimal, entities.StatusTimedOut}, sol.Status)
}

func singleOrderModel() *NonlinearModel {
	m := &NonlinearModel{Model: *NewModel()}
	q := m.AddContinuous("q", 0, 200)
	m.AddConstraint("demand", []Term{{q, 1}}, GreaterEq, 150)
	m.Piecewise = []PiecewiseTerm{{Var: q, Breakpoint: 100, SlopeBelow: 10, SlopeAbove: 9}}
	return m
}

func TestSuccessiveLinearization_DiscountedOrder(t *testing.T) {
	backend := NewSuccessiveLinearization(NewBranchAndBound(quietLogger()), quietLogger())

	sol, err := backend.SubmitNonlinear(context.Background(), singleOrderModel(), Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusFeasible, sol.Status, "a settled search is a local optimum")
	assert.InDelta(t, 1450.0, sol.Objective, 1e-6)
	assert.InDelta(t, 150.0, sol.Value(0), 1e-6)
}

func TestSuccessiveLinearization_UpperStartFindsDeepDiscount(t *testing.T) {
	m := &NonlinearModel{Model: *NewModel()}
	a := m.AddContinuous("a", 0, 200)
	b := m.AddContinuous("b", 0, 200)
	m.AddObjective(a, 10)
	m.AddConstraint("demand", []Term{{a, 1}, {b, 1}}, GreaterEq, 100)
	m.Piecewise = []PiecewiseTerm{{Var: b, Breakpoint: 50, SlopeBelow: 11, SlopeAbove: 5}}

	backend := NewSuccessiveLinearization(NewBranchAndBound(quietLogger()), quietLogger())
	sol, err := backend.SubmitNonlinear(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusFeasible, sol.Status)
	assert.InDelta(t, 800.0, sol.Objective, 1e-6)
	assert.InDelta(t, 0.0, sol.Value(a), 1e-6)
	assert.InDelta(t, 100.0, sol.Value(b), 1e-6)
}

func TestSuccessiveLinearization_IterationBudget(t *testing.T) {
	backend := NewSuccessiveLinearization(NewBranchAndBound(quietLogger()), quietLogger())

	sol, err := backend.SubmitNonlinear(context.Background(), singleOrderModel(), Limits{MaxIterations: 1})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusNotConverged, sol.Status)
	require.True(t, sol.HasIncumbent())
	assert.InDelta(t, 1450.0, sol.Objective, 1e-6, "the incumbent is scored with the true cost")
	assert.Equal(t, 1, sol.Iterations)
}

func TestSuccessiveLinearization_Infeasible(t *testing.T) {
	m := singleOrderModel()
	m.Variables[0].Upper = 100

	backend := NewSuccessiveLinearization(NewBranchAndBound(quietLogger()), quietLogger())
	sol, err := backend.SubmitNonlinear(context.Background(), m, Limits{})
	require.NoError(t, err)

	assert.Equal(t, entities.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasIncumbent())
}

func TestPiecewiseTerm_Value(t *testing.T) {
	p := PiecewiseTerm{Breakpoint: 100, SlopeBelow: 10, SlopeAbove: 9}
	assert.Equal(t, 500.0, p.Value(50))
	assert.Equal(t, 1000.0, p.Value(100))
	assert.Equal(t, 1450.0, p.Value(150))
}
