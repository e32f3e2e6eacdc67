package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// PlanResult is the canonical output of one planning run. It is the only
// shape exposed to reporting and comparison; solver internals never leak here.
type PlanResult struct {
	RunID     string              `json:"run_id"`
	Strategy  entities.Strategy   `json:"strategy"`
	Status    entities.PlanStatus `json:"status"`
	Objective float64             `json:"objective"`

	Procurement []entities.ProcurementDecision   `json:"procurement"`
	Shipments   []entities.Shipment              `json:"shipments"`
	Inventory   map[entities.ProductID][]float64 `json:"inventory"`
	Shortfalls  []entities.Shortfall             `json:"shortfalls,omitempty"`

	Costs CostBreakdown `json:"costs"`
	KPIs  KPIs          `json:"kpis"`

	Diagnostics []string      `json:"diagnostics,omitempty"`
	Nodes       int           `json:"nodes,omitempty"`
	Iterations  int           `json:"iterations,omitempty"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Err returns the sentinel error for a best-effort status, or nil for a successful plan
func (r *PlanResult) Err() error {
	return r.Status.Err()
}

// HasPlan reports whether the run produced any plan, even a best-effort one
func (r *PlanResult) HasPlan() bool {
	return r.Inventory != nil
}

// CostBreakdown splits the plan's cost. Procurement is charged after discounts;
// Discount records what the discounts saved.
type CostBreakdown struct {
	Procurement decimal.Decimal `json:"procurement"`
	Discount    decimal.Decimal `json:"discount"`
	Logistics   decimal.Decimal `json:"logistics"`
	Holding     decimal.Decimal `json:"holding"`
	Penalty     decimal.Decimal `json:"penalty"`
	Total       decimal.Decimal `json:"total"`
}

// KPIs summarise plan quality
type KPIs struct {
	// ServiceLevel is the share of demand served from stock, 1 when there is no demand
	ServiceLevel float64 `json:"service_level"`
	// InventoryTurnover is total demand over average on-hand stock
	InventoryTurnover float64 `json:"inventory_turnover"`
	// Obsolescence is the stock left at the end of the horizon above its safety level
	Obsolescence float64 `json:"obsolescence"`
	OrderCount   int     `json:"order_count"`
	LateOrders   int     `json:"late_orders"`
}

// ComparisonResult holds one result per strategy in a fixed order
type ComparisonResult struct {
	Results []*PlanResult `json:"results"`
}

// Cheapest returns the successful result with the lowest total cost
func (c *ComparisonResult) Cheapest() (*PlanResult, bool) {
	var best *PlanResult
	for _, r := range c.Results {
		if r == nil || !r.Status.Successful() {
			continue
		}
		if best == nil || r.Costs.Total.LessThan(best.Costs.Total) {
			best = r
		}
	}
	return best, best != nil
}

// ByStrategy returns the result of one strategy
func (c *ComparisonResult) ByStrategy(s entities.Strategy) (*PlanResult, bool) {
	for _, r := range c.Results {
		if r != nil && r.Strategy == s {
			return r, true
		}
	}
	return nil, false
}
