package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure class of a planning run. PlanError wraps
// one of these so callers can match with errors.Is.
var (
	ErrDataInconsistency  = errors.New("data inconsistency")
	ErrInfeasible         = errors.New("infeasible")
	ErrInfeasibleGreedy   = errors.New("greedy policy infeasible")
	ErrSolverTimeout      = errors.New("solver timeout")
	ErrConvergenceFailure = errors.New("convergence failure")
	ErrLateArrival        = errors.New("late arrival")
	ErrBalanceViolation   = errors.New("inventory balance violation")
	ErrInvariantViolation = errors.New("plan invariant violation")
)

// ErrorKind classifies a PlanError
type ErrorKind int

const (
	KindDataInconsistency ErrorKind = iota
	KindInfeasible
	KindInfeasibleGreedy
	KindSolverTimeout
	KindConvergenceFailure
	KindLateArrival
	KindBalanceViolation
	KindInvariantViolation
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindDataInconsistency:
		return ErrDataInconsistency
	case KindInfeasible:
		return ErrInfeasible
	case KindInfeasibleGreedy:
		return ErrInfeasibleGreedy
	case KindSolverTimeout:
		return ErrSolverTimeout
	case KindConvergenceFailure:
		return ErrConvergenceFailure
	case KindLateArrival:
		return ErrLateArrival
	case KindBalanceViolation:
		return ErrBalanceViolation
	default:
		return ErrInvariantViolation
	}
}

// String method for ErrorKind enum
func (k ErrorKind) String() string {
	return k.sentinel().Error()
}

// Fatal reports whether an error of this kind aborts the run instead of
// producing a best-effort result.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindDataInconsistency, KindBalanceViolation, KindInvariantViolation, KindLateArrival:
		return true
	default:
		return false
	}
}

// PlanError describes a planning failure with the operation that detected it
type PlanError struct {
	Kind   ErrorKind
	Op     string
	Detail string
}

// NewPlanError creates a PlanError with a formatted detail message
func NewPlanError(kind ErrorKind, op string, format string, args ...any) *PlanError {
	return &PlanError{
		Kind:   kind,
		Op:     op,
		Detail: fmt.Sprintf(format, args...),
	}
}

func (e *PlanError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Detail)
}

func (e *PlanError) Unwrap() error {
	return e.Kind.sentinel()
}
