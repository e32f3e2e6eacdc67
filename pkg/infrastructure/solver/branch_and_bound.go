package solver

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// BranchAndBound solves mixed-binary models by branch and bound over bounded
// simplex relaxations. It dives depth-first until the first incumbent and then
// switches to best-first search.
type BranchAndBound struct {
	logger logrus.FieldLogger
}

var _ Backend = (*BranchAndBound)(nil)

// NewBranchAndBound creates a branch-and-bound backend
func NewBranchAndBound(logger logrus.FieldLogger) *BranchAndBound {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BranchAndBound{logger: logger.WithField("backend", "branch-and-bound")}
}

type bbNode struct {
	id    int
	bound float64
	lower []float64
	upper []float64
}

// nodeQueue orders open nodes newest first while diving, otherwise by
// relaxation bound and then creation order
type nodeQueue struct {
	nodes      []*bbNode
	depthFirst bool
}

func (q *nodeQueue) Len() int { return len(q.nodes) }
func (q *nodeQueue) Less(i, j int) bool {
	a, b := q.nodes[i], q.nodes[j]
	if q.depthFirst {
		return a.id > b.id
	}
	if a.bound != b.bound {
		return a.bound < b.bound
	}
	return a.id < b.id
}
func (q *nodeQueue) Swap(i, j int) { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }
func (q *nodeQueue) Push(x any)   { q.nodes = append(q.nodes, x.(*bbNode)) }
func (q *nodeQueue) Pop() any {
	n := len(q.nodes)
	node := q.nodes[n-1]
	q.nodes = q.nodes[:n-1]
	return node
}

// bestFirst reorders the open nodes by bound
func (q *nodeQueue) bestFirst() {
	if q.depthFirst {
		q.depthFirst = false
		heap.Init(q)
	}
}

// search is the state of one Submit call
type search struct {
	model     *Model
	tol       float64
	best      float64
	incumbent []float64
	failures  int
}

// offer keeps values as the incumbent when they beat it
func (s *search) offer(values []float64) bool {
	candidate := snapBinaries(s.model, values)
	objective := s.model.Evaluate(candidate)
	if objective >= s.best {
		return false
	}
	s.best = objective
	s.incumbent = candidate
	return true
}

// Submit solves the model within the given limits. Reaching the time or node
// limit returns the best incumbent with status timed-out. A relaxation that
// fails numerically drops its node; the result is then feasible rather than
// optimal, or not-converged when no incumbent was found.
func (b *BranchAndBound) Submit(ctx context.Context, model *Model, limits Limits) (*Solution, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	if limits.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.TimeLimit)
		defer cancel()
	}

	start := time.Now()
	n := len(model.Variables)
	st := &search{model: model, tol: limits.tolerance(), best: math.Inf(1)}

	root := &bbNode{
		bound: math.Inf(-1),
		lower: make([]float64, n),
		upper: make([]float64, n),
	}
	for j, v := range model.Variables {
		root.lower[j] = v.Lower
		root.upper[j] = v.Upper
	}

	queue := &nodeQueue{nodes: []*bbNode{root}, depthFirst: true}
	nextID := 1
	nodes := 0
	stopped := false
	gapStop := false

	for queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			stopped = true
			break
		}
		if limits.NodeLimit > 0 && nodes >= limits.NodeLimit {
			stopped = true
			break
		}

		node := heap.Pop(queue).(*bbNode)
		if node.bound >= st.best-pruneTolerance(st.best) {
			continue
		}
		if !queue.depthFirst && limits.Gap > 0 && relativeGap(st.best, node.bound) <= limits.Gap {
			gapStop = true
			break
		}

		relax, err := solveRelaxation(ctx, model, node.lower, node.upper)
		nodes++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				if !errors.Is(ctxErr, context.DeadlineExceeded) {
					return nil, ctxErr
				}
				stopped = true
				break
			}
			st.failures++
			b.logger.WithError(err).WithField("node", node.id).Warn("relaxation failed; dropping node")
			continue
		}

		switch relax.status {
		case entities.StatusInfeasible:
			continue
		case entities.StatusUnbounded:
			if node.id == 0 {
				return &Solution{Status: entities.StatusUnbounded, Nodes: nodes, Elapsed: time.Since(start)}, nil
			}
			continue
		}
		if relax.objective >= st.best-pruneTolerance(st.best) {
			continue
		}

		branchVar := mostFractional(model, relax.values, st.tol)
		if branchVar < 0 {
			if st.offer(relax.values) {
				b.logger.WithFields(logrus.Fields{
					"node":      node.id,
					"objective": st.best,
				}).Debug("new incumbent")
				queue.bestFirst()
			}
			continue
		}

		if node.id == 0 && st.incumbent == nil {
			if err := b.roundRoot(ctx, st, relax.values); err != nil {
				return nil, err
			}
			if st.incumbent != nil {
				queue.bestFirst()
			}
		}

		down := &bbNode{id: nextID, bound: relax.objective, lower: clone(node.lower), upper: clone(node.upper)}
		down.upper[branchVar] = 0
		up := &bbNode{id: nextID + 1, bound: relax.objective, lower: clone(node.lower), upper: clone(node.upper)}
		up.lower[branchVar] = 1
		nextID += 2
		heap.Push(queue, down)
		heap.Push(queue, up)
	}

	solution := &Solution{Nodes: nodes, Iterations: nodes, Elapsed: time.Since(start)}
	switch {
	case stopped:
		solution.Status = entities.StatusTimedOut
	case st.incumbent == nil && st.failures > 0:
		solution.Status = entities.StatusNotConverged
	case st.incumbent == nil:
		solution.Status = entities.StatusInfeasible
	case gapStop || st.failures > 0:
		solution.Status = entities.StatusFeasible
	default:
		solution.Status = entities.StatusOptimal
	}
	if st.incumbent != nil {
		solution.Values = st.incumbent
		solution.Objective = st.best
	}

	b.logger.WithFields(logrus.Fields{
		"status":    solution.Status.String(),
		"nodes":     nodes,
		"failures":  st.failures,
		"objective": solution.Objective,
		"elapsed":   solution.Elapsed,
	}).Debug("branch and bound finished")

	return solution, nil
}

// roundRoot fixes every binary the root relaxation uses to one and the rest
// to zero, and keeps the resulting plan as the first incumbent when feasible.
// Only cancellation is reported; any other failure leaves the search as is.
func (b *BranchAndBound) roundRoot(ctx context.Context, st *search, values []float64) error {
	lower := make([]float64, len(values))
	upper := make([]float64, len(values))
	for j, v := range st.model.Variables {
		lower[j], upper[j] = v.Lower, v.Upper
		if v.Kind != Binary {
			continue
		}
		if values[j] > st.tol {
			lower[j], upper[j] = 1, 1
		} else {
			lower[j], upper[j] = 0, 0
		}
	}

	relax, err := solveRelaxation(ctx, st.model, lower, upper)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
	if relax.status == entities.StatusOptimal && st.offer(relax.values) {
		b.logger.WithField("objective", st.best).Debug("rounded root incumbent")
	}
	return nil
}

// mostFractional returns the binary variable furthest from integrality, or -1
func mostFractional(model *Model, values []float64, tol float64) int {
	chosen := -1
	worst := tol
	for j, v := range model.Variables {
		if v.Kind != Binary {
			continue
		}
		frac := values[j] - math.Floor(values[j])
		dist := math.Min(frac, 1-frac)
		if dist > worst {
			worst = dist
			chosen = j
		}
	}
	return chosen
}

func snapBinaries(model *Model, values []float64) []float64 {
	out := clone(values)
	for j, v := range model.Variables {
		if v.Kind == Binary {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

func pruneTolerance(best float64) float64 {
	if math.IsInf(best, 0) {
		return 0
	}
	return 1e-9 * math.Max(1, math.Abs(best))
}

func relativeGap(best, bound float64) float64 {
	return (best - bound) / math.Max(1, math.Abs(best))
}

func clone(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
