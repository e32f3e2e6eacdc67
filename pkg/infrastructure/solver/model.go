package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// VarKind distinguishes continuous from binary decision variables
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// String method for VarKind enum
func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Sense is the relation of a constraint's left-hand side to its right-hand side
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// String method for Sense enum
func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Variable is one column of a model. Lower must be finite; Upper may be +Inf.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is a coefficient applied to a variable
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear row: Σ terms (sense) RHS
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimisation problem over continuous and binary variables
type Model struct {
	Variables         []Variable
	Objective         []Term
	ObjectiveConstant float64
	Constraints       []Constraint
}

// NewModel creates an empty model
func NewModel() *Model {
	return &Model{
		Variables:   make([]Variable, 0),
		Objective:   make([]Term, 0),
		Constraints: make([]Constraint, 0),
	}
}

// AddContinuous adds a continuous variable and returns its index
func (m *Model) AddContinuous(name string, lower, upper float64) int {
	m.Variables = append(m.Variables, Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return len(m.Variables) - 1
}

// AddBinary adds a 0/1 variable and returns its index
func (m *Model) AddBinary(name string) int {
	m.Variables = append(m.Variables, Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return len(m.Variables) - 1
}

// AddObjective adds coef*x[v] to the objective
func (m *Model) AddObjective(v int, coef float64) {
	if coef == 0 {
		return
	}
	m.Objective = append(m.Objective, Term{Var: v, Coef: coef})
}

// AddConstraint appends a linear row
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// Validate checks variable bounds and term indexes
func (m *Model) Validate() error {
	n := len(m.Variables)
	for i, v := range m.Variables {
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
			return fmt.Errorf("variable %d (%s) has non-finite lower bound", i, v.Name)
		}
		if v.Upper < v.Lower {
			return fmt.Errorf("variable %d (%s) has upper bound %g below lower bound %g", i, v.Name, v.Upper, v.Lower)
		}
		if v.Kind == Binary && (v.Lower < 0 || v.Upper > 1) {
			return fmt.Errorf("binary variable %d (%s) has bounds outside [0,1]", i, v.Name)
		}
	}
	for _, t := range m.Objective {
		if t.Var < 0 || t.Var >= n {
			return fmt.Errorf("objective references variable %d of %d", t.Var, n)
		}
	}
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= n {
				return fmt.Errorf("constraint %s references variable %d of %d", c.Name, t.Var, n)
			}
		}
	}
	return nil
}

// Evaluate returns the objective value at the given point
func (m *Model) Evaluate(values []float64) float64 {
	total := m.ObjectiveConstant
	for _, t := range m.Objective {
		total += t.Coef * values[t.Var]
	}
	return total
}

// Violation returns the name of the first constraint or bound broken by more than tol
func (m *Model) Violation(values []float64, tol float64) (string, bool) {
	for i, v := range m.Variables {
		if values[i] < v.Lower-tol || values[i] > v.Upper+tol {
			return fmt.Sprintf("bounds of %s", v.Name), true
		}
	}
	for _, c := range m.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		scale := tol * math.Max(1, math.Abs(c.RHS))
		switch c.Sense {
		case LessEq:
			if lhs > c.RHS+scale {
				return c.Name, true
			}
		case GreaterEq:
			if lhs < c.RHS-scale {
				return c.Name, true
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > scale {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Limits bounds the effort a backend may spend on one submission
type Limits struct {
	// TimeLimit is the wall-clock budget; zero means no limit beyond the context
	TimeLimit time.Duration
	// NodeLimit caps branch-and-bound nodes; zero means unlimited
	NodeLimit int
	// MaxIterations caps successive linearisation rounds; zero uses the default
	MaxIterations int
	// Gap is the relative optimality gap at which search may stop
	Gap float64
	// Tolerance is the integrality tolerance for binary variables
	Tolerance float64
}

const (
	defaultTolerance     = 1e-6
	defaultMaxIterations = 50
)

func (l Limits) tolerance() float64 {
	if l.Tolerance > 0 {
		return l.Tolerance
	}
	return defaultTolerance
}

func (l Limits) maxIterations() int {
	if l.MaxIterations > 0 {
		return l.MaxIterations
	}
	return defaultMaxIterations
}

// Solution is what a backend reports for one submission. Values is nil when
// no feasible point was found.
type Solution struct {
	Status     entities.PlanStatus
	Values     []float64
	Objective  float64
	Nodes      int
	Iterations int
	Elapsed    time.Duration
}

// HasIncumbent reports whether the solution carries variable values
func (s *Solution) HasIncumbent() bool {
	return s.Values != nil
}

// Value returns the value of variable v, or zero without an incumbent
func (s *Solution) Value(v int) float64 {
	if s.Values == nil {
		return 0
	}
	return s.Values[v]
}

// Backend solves mixed-integer linear models
type Backend interface {
	Submit(ctx context.Context, model *Model, limits Limits) (*Solution, error)
}

// NonlinearBackend solves models whose objective carries piecewise-linear terms
type NonlinearBackend interface {
	SubmitNonlinear(ctx context.Context, model *NonlinearModel, limits Limits) (*Solution, error)
}
