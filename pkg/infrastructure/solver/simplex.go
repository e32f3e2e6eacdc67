package solver

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

const (
	// pivotTolerance is the smallest tableau entry accepted as a pivot
	pivotTolerance = 1e-9
	// reducedCostTolerance is the optimality tolerance on reduced costs
	reducedCostTolerance = 1e-9
	// feasibilityTolerance bounds the phase one residual of a feasible system
	feasibilityTolerance = 1e-7
	// blandAfter switches to Bland's rule after this many degenerate pivots in a row
	blandAfter = 50
	// contextCheckEvery is the number of pivots between context checks
	contextCheckEvery = 16
)

// errSimplexStalled reports a relaxation that hit the pivot cap without an answer
var errSimplexStalled = errors.New("simplex iteration limit reached")

// boundedSimplex is a dense two-phase primal simplex over columns bounded by
// [0, upper]. Nonbasic columns sit at either bound, so upper bounds need no
// rows. Every row starts with a slack or an artificial in the basis; dependent
// rows leave an artificial basic at zero instead of a singular basis.
type boundedSimplex struct {
	m, structural, n int

	tab     *mat.Dense // B⁻¹A, one row per constraint
	rhs     []float64
	sense   []Sense
	cost    []float64
	upper   []float64
	basis   []int     // basic column of each row
	value   []float64 // value of each row's basic column
	rowOf   []int     // row of a basic column, -1 when nonbasic
	atUpper []bool
	phase1  []bool // artificial columns

	reduced []float64
}

func newBoundedSimplex(rows, structural, slacks int) *boundedSimplex {
	width := structural + slacks + rows
	return &boundedSimplex{
		m:     rows,
		tab:   mat.NewDense(rows, width, nil),
		rhs:   make([]float64, rows),
		sense: make([]Sense, rows),
		cost:  make([]float64, 0, width),
		upper: make([]float64, 0, width),
	}
}

// addColumn appends a structural column with the given cost, upper bound and coefficients
func (s *boundedSimplex) addColumn(cost, upper float64, coef func(row int) float64) {
	k := s.n
	for i := 0; i < s.m; i++ {
		if v := coef(i); math.Abs(v) > zeroCoef {
			s.tab.Set(i, k, v)
		}
	}
	s.cost = append(s.cost, cost)
	s.upper = append(s.upper, upper)
	s.n++
	s.structural++
}

func (s *boundedSimplex) addRow(i int, sense Sense, rhs float64) {
	s.sense[i] = sense
	s.rhs[i] = rhs
}

func (s *boundedSimplex) row(i int) []float64 {
	return s.tab.RawRowView(i)[:s.n]
}

// solve runs both phases and reports optimal, infeasible or unbounded
func (s *boundedSimplex) solve(ctx context.Context) (entities.PlanStatus, error) {
	s.initialBasis()

	// Phase one: drive the artificial columns to zero.
	phaseCost := make([]float64, s.n)
	for j, artificial := range s.phase1 {
		if artificial {
			phaseCost[j] = 1
		}
	}
	s.priceOut(phaseCost)
	if _, err := s.iterate(ctx); err != nil {
		return 0, err
	}

	residual, scale := 0.0, 1.0
	for i, j := range s.basis {
		if s.phase1[j] {
			residual += s.value[i]
		}
		scale = math.Max(scale, s.rhs[i])
	}
	if residual > feasibilityTolerance*scale {
		return entities.StatusInfeasible, nil
	}
	s.dropArtificials()

	// Phase two: the real objective from the feasible basis.
	s.priceOut(s.cost)
	return s.iterate(ctx)
}

// initialBasis adds slacks, flips rows to a nonnegative right-hand side and
// gives every row a unit basic column
func (s *boundedSimplex) initialBasis() {
	slackOf := make([]int, s.m)
	for i := 0; i < s.m; i++ {
		slackOf[i] = -1
		switch s.sense[i] {
		case LessEq:
			slackOf[i] = s.appendColumn(i, 1, false)
		case GreaterEq:
			slackOf[i] = s.appendColumn(i, -1, false)
		}
	}

	s.basis = make([]int, s.m)
	s.value = make([]float64, s.m)
	for i := 0; i < s.m; i++ {
		if s.rhs[i] < 0 {
			floats.Scale(-1, s.tab.RawRowView(i))
			s.rhs[i] = -s.rhs[i]
		}
		if slack := slackOf[i]; slack >= 0 && s.tab.At(i, slack) > 0 {
			s.basis[i] = slack
		} else {
			s.basis[i] = s.appendColumn(i, 1, true)
		}
		s.value[i] = s.rhs[i]
	}

	s.rowOf = make([]int, s.n)
	for j := range s.rowOf {
		s.rowOf[j] = -1
	}
	for i, j := range s.basis {
		s.rowOf[j] = i
	}
	s.atUpper = make([]bool, s.n)
}

func (s *boundedSimplex) appendColumn(row int, coef float64, artificial bool) int {
	j := s.n
	s.tab.Set(row, j, coef)
	s.cost = append(s.cost, 0)
	s.upper = append(s.upper, math.Inf(1))
	for len(s.phase1) < j {
		s.phase1 = append(s.phase1, false)
	}
	s.phase1 = append(s.phase1, artificial)
	s.n++
	return j
}

// priceOut sets the reduced costs of the current basis for the given costs
func (s *boundedSimplex) priceOut(cost []float64) {
	for len(s.phase1) < s.n {
		s.phase1 = append(s.phase1, false)
	}
	s.reduced = make([]float64, s.n)
	copy(s.reduced, cost)
	for i, j := range s.basis {
		if cb := cost[j]; cb != 0 {
			floats.AddScaled(s.reduced, -cb, s.row(i))
		}
	}
}

// dropArtificials pivots basic artificials out where a real column can take
// their row, then pins every artificial to zero. A row with no such column is
// a linear combination of the others and keeps its artificial at zero.
func (s *boundedSimplex) dropArtificials() {
	for i, j := range s.basis {
		if !s.phase1[j] {
			continue
		}
		entering, best := -1, 1e-7
		for k, v := range s.row(i) {
			if s.phase1[k] || s.rowOf[k] >= 0 || s.upper[k] <= 0 {
				continue
			}
			if math.Abs(v) > best {
				entering, best = k, math.Abs(v)
			}
		}
		if entering < 0 {
			continue
		}
		enteringValue := 0.0
		if s.atUpper[entering] {
			enteringValue = s.upper[entering]
		}
		s.pivot(i, entering)
		s.value[i] = enteringValue
		s.atUpper[entering] = false
	}
	for j, artificial := range s.phase1 {
		if artificial {
			s.upper[j] = 0
			s.atUpper[j] = false
		}
	}
}

// iterate pivots until no reduced cost improves the objective
func (s *boundedSimplex) iterate(ctx context.Context) (entities.PlanStatus, error) {
	limit := 50*(s.m+s.n) + 1000
	degenerate := 0

	for iter := 0; ; iter++ {
		if iter%contextCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if iter >= limit {
			return 0, errSimplexStalled
		}

		entering, direction := s.chooseEntering(degenerate > blandAfter)
		if entering < 0 {
			return entities.StatusOptimal, nil
		}

		leaving, step := s.ratioTest(entering, direction, degenerate > blandAfter)
		flip := s.upper[entering]
		if math.IsInf(step, 1) && math.IsInf(flip, 1) {
			return entities.StatusUnbounded, nil
		}
		if step < 1e-12 {
			degenerate++
		} else {
			degenerate = 0
		}

		if flip <= step {
			s.move(entering, direction, flip)
			s.atUpper[entering] = !s.atUpper[entering]
			continue
		}

		start := 0.0
		if s.atUpper[entering] {
			start = s.upper[entering]
		}
		s.move(entering, direction, step)

		left := s.basis[leaving]
		leftValue := s.value[leaving]
		s.pivot(leaving, entering)
		s.value[leaving] = start + direction*step
		s.atUpper[entering] = false
		s.atUpper[left] = !math.IsInf(s.upper[left], 1) && leftValue >= s.upper[left]/2
		if s.atUpper[left] && s.upper[left] <= 0 {
			s.atUpper[left] = false
		}
	}
}

// chooseEntering picks an improving nonbasic column and the direction it moves:
// Dantzig's rule normally, Bland's rule while pivots stall
func (s *boundedSimplex) chooseEntering(bland bool) (int, float64) {
	entering, direction, best := -1, 0.0, 0.0
	for j, d := range s.reduced {
		if s.rowOf[j] >= 0 || s.upper[j] <= 0 {
			continue
		}
		var score, dir float64
		switch {
		case !s.atUpper[j] && d < -reducedCostTolerance:
			score, dir = -d, 1
		case s.atUpper[j] && d > reducedCostTolerance:
			score, dir = d, -1
		default:
			continue
		}
		if bland {
			return j, dir
		}
		if score > best {
			entering, direction, best = j, dir, score
		}
	}
	return entering, direction
}

// ratioTest returns the row whose basic column blocks the entering move first
// and the step length, +Inf when no row blocks
func (s *boundedSimplex) ratioTest(entering int, direction float64, bland bool) (int, float64) {
	leaving, step, pivot := -1, math.Inf(1), 0.0
	for i := 0; i < s.m; i++ {
		a := s.tab.At(i, entering) * direction
		basic := s.basis[i]
		var limit float64
		switch {
		case a > pivotTolerance:
			limit = math.Max(s.value[i], 0) / a
		case a < -pivotTolerance && !math.IsInf(s.upper[basic], 1):
			limit = math.Max(s.upper[basic]-s.value[i], 0) / -a
		default:
			continue
		}
		tie := math.Abs(limit-step) <= 1e-12
		better := limit < step && !tie
		if tie {
			if bland {
				better = basic < s.basis[leaving]
			} else {
				better = math.Abs(a) > pivot
			}
		}
		if leaving < 0 || better {
			leaving, step, pivot = i, limit, math.Abs(a)
		}
	}
	return leaving, step
}

// move shifts the basic values for the entering column moving by step
func (s *boundedSimplex) move(entering int, direction, step float64) {
	if step == 0 {
		return
	}
	for i := 0; i < s.m; i++ {
		if a := s.tab.At(i, entering); a != 0 {
			s.value[i] -= a * direction * step
		}
	}
}

// pivot makes column entering basic in row r
func (s *boundedSimplex) pivot(r, entering int) {
	pivotRow := s.row(r)
	floats.Scale(1/pivotRow[entering], pivotRow)
	pivotRow[entering] = 1

	for i := 0; i < s.m; i++ {
		if i == r {
			continue
		}
		row := s.row(i)
		if f := row[entering]; math.Abs(f) > zeroCoef {
			floats.AddScaled(row, -f, pivotRow)
		}
		row[entering] = 0
	}
	if f := s.reduced[entering]; f != 0 {
		floats.AddScaled(s.reduced, -f, pivotRow)
		s.reduced[entering] = 0
	}

	s.rowOf[s.basis[r]] = -1
	s.basis[r] = entering
	s.rowOf[entering] = r
}

// columnValue returns the value of structural column k
func (s *boundedSimplex) columnValue(k int) float64 {
	if r := s.rowOf[k]; r >= 0 {
		return math.Min(math.Max(s.value[r], 0), s.upper[k])
	}
	if s.atUpper[k] {
		return s.upper[k]
	}
	return 0
}
