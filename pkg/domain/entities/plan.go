package entities

import (
	"fmt"
	"strings"
)

// Strategy identifies one of the plan formulators
type Strategy int

const (
	StrategyExact Strategy = iota
	StrategyDiscountAware
	StrategyHeuristic
)

// String method for Strategy enum
func (s Strategy) String() string {
	switch s {
	case StrategyExact:
		return "exact"
	case StrategyDiscountAware:
		return "discount-aware"
	case StrategyHeuristic:
		return "heuristic"
	default:
		return "unknown"
	}
}

// MarshalText lets strategies appear by name in JSON output
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStrategy converts a strategy name to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "milp", "linear":
		return StrategyExact, nil
	case "discount-aware", "discount", "nlp", "nonlinear":
		return StrategyDiscountAware, nil
	case "heuristic", "greedy":
		return StrategyHeuristic, nil
	default:
		return StrategyExact, fmt.Errorf("invalid strategy: %s (expected exact, discount-aware or heuristic)", s)
	}
}

// AllStrategies lists every formulator in a fixed order
func AllStrategies() []Strategy {
	return []Strategy{StrategyExact, StrategyDiscountAware, StrategyHeuristic}
}

// PlanStatus represents the outcome of one formulator run
type PlanStatus int

const (
	StatusOptimal PlanStatus = iota
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
	StatusNotConverged
	StatusInfeasibleGreedy
)

// String method for PlanStatus enum
func (s PlanStatus) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimedOut:
		return "timed-out"
	case StatusNotConverged:
		return "not-converged"
	case StatusInfeasibleGreedy:
		return "infeasible-greedy"
	default:
		return "unknown"
	}
}

// MarshalText lets statuses appear by name in JSON output
func (s PlanStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Err returns the sentinel error matching a non-successful status, or nil
func (s PlanStatus) Err() error {
	switch s {
	case StatusInfeasible, StatusUnbounded:
		return ErrInfeasible
	case StatusTimedOut:
		return ErrSolverTimeout
	case StatusNotConverged:
		return ErrConvergenceFailure
	case StatusInfeasibleGreedy:
		return ErrInfeasibleGreedy
	default:
		return nil
	}
}

// Successful reports whether the plan satisfies every hard constraint
func (s PlanStatus) Successful() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// ProcurementDecision is the quantity ordered of a product from a supplier in a period
type ProcurementDecision struct {
	ProductID  ProductID  `json:"product_id"`
	SupplierID SupplierID `json:"supplier_id"`
	Period     int        `json:"period"`
	Quantity   float64    `json:"quantity"`
}

// Shipment is a procurement decision placed on the arrival timeline
type Shipment struct {
	ProductID     ProductID  `json:"product_id"`
	SupplierID    SupplierID `json:"supplier_id"`
	OrderPeriod   int        `json:"order_period"`
	ArrivalPeriod int        `json:"arrival_period"`
	Quantity      float64    `json:"quantity"`
	// Late marks an arrival that was clipped to the last period of the horizon
	Late bool `json:"late,omitempty"`
}
