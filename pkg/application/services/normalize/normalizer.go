package normalize

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/application/services/formulation"
	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/application/services/projection"
	"github.com/vsinha/procurement/pkg/domain/entities"
)

const op = "normalize"

// defaultTolerance bounds the disagreement allowed between claimed and
// recomputed quantities
const defaultTolerance = 1e-4

// costPlaces is the number of decimal places kept in cost figures
const costPlaces = 4

// Options tunes normalisation
type Options struct {
	// SafetyStockPenalty > 0 makes safety stock soft and charges each missing unit
	SafetyStockPenalty float64
	// Tolerance overrides the default quantity tolerance
	Tolerance float64
}

func (o Options) tolerance() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return defaultTolerance
}

// Normalize converts a formulator's raw result into the canonical plan. It
// recomputes inventory from the projected shipments and fails with a
// BalanceViolation when the formulator's own inventory disagrees. Invariant
// violations abort plans that claim success and become diagnostics otherwise.
func Normalize(raw *formulation.RawResult, l *lookup.Lookups, opts Options) (*dto.PlanResult, error) {
	result := &dto.PlanResult{
		RunID:       uuid.NewString(),
		Strategy:    raw.Strategy,
		Status:      raw.Status,
		Objective:   raw.Objective,
		Diagnostics: append([]string(nil), raw.Diagnostics...),
		Nodes:       raw.Nodes,
		Iterations:  raw.Iterations,
		Elapsed:     raw.Elapsed,
		CreatedAt:   time.Now(),
	}

	if !raw.HasPlan() {
		if raw.Status.Successful() {
			return nil, entities.NewPlanError(entities.KindInvariantViolation, op,
				"%s plan reported %s without a plan", raw.Strategy, raw.Status)
		}
		result.Procurement = []entities.ProcurementDecision{}
		result.Shipments = []entities.Shipment{}
		return result, nil
	}

	decisions := sortedDecisions(raw.Decisions)
	shipments, err := projection.Project(decisions, l)
	if err != nil {
		return nil, fmt.Errorf("failed to project %s plan: %w", raw.Strategy, err)
	}

	// Step 1: recompute inventory independently and check the formulator's claim
	inventory := Recompute(shipments, l)
	if err := checkBalance(raw, inventory, l, opts.tolerance()); err != nil {
		return nil, err
	}

	// Step 2: check plan invariants
	fatal, violations := checkInvariants(decisions, inventory, shipments, l, opts)
	if len(fatal) > 0 || (len(violations) > 0 && raw.Status.Successful()) {
		all := append(fatal, violations...)
		return nil, entities.NewPlanError(entities.KindInvariantViolation, op,
			"%s plan: %s", raw.Strategy, strings.Join(all, "; "))
	}
	for _, v := range violations {
		result.Diagnostics = append(result.Diagnostics, "invariant: "+v)
	}

	// Step 3: canonical output, costs and KPIs
	result.Procurement = decisions
	result.Shipments = shipments
	result.Inventory = make(map[entities.ProductID][]float64, l.ProductCount())
	for p, id := range l.ProductIDs {
		result.Inventory[id] = inventory[p]
	}
	result.Shortfalls = shortfalls(inventory, l, opts.tolerance())
	result.Costs = costBreakdown(decisions, inventory, result.Shortfalls, l, opts)
	result.KPIs = kpis(decisions, shipments, inventory, l)

	return result, nil
}

// Recompute derives inventory from shipments and demand:
// inv[t] = inv[t-1] + arrivals[t] - demand[t], inv[-1] = opening stock.
func Recompute(shipments []entities.Shipment, l *lookup.Lookups) [][]float64 {
	arrivals := projection.Arrivals(shipments, l)
	inventory := make([][]float64, l.ProductCount())
	for p := range inventory {
		inventory[p] = make([]float64, l.Periods())
		level := l.OpeningStock[p]
		for t := 0; t < l.Periods(); t++ {
			level += arrivals[p][t] - l.Demand[p][t]
			inventory[p][t] = level
		}
	}
	return inventory
}

func checkBalance(raw *formulation.RawResult, inventory [][]float64, l *lookup.Lookups, tol float64) error {
	if len(raw.Inventory) != l.ProductCount() {
		return entities.NewPlanError(entities.KindBalanceViolation, op,
			"%s claimed inventory for %d products, expected %d", raw.Strategy, len(raw.Inventory), l.ProductCount())
	}
	for p := range inventory {
		if len(raw.Inventory[p]) != l.Periods() {
			return entities.NewPlanError(entities.KindBalanceViolation, op,
				"%s claimed %d periods of inventory for product %s, expected %d",
				raw.Strategy, len(raw.Inventory[p]), l.ProductIDs[p], l.Periods())
		}
		for t, recomputed := range inventory[p] {
			claimed := raw.Inventory[p][t]
			if math.Abs(claimed-recomputed) > tol*math.Max(1, math.Abs(claimed)) {
				return entities.NewPlanError(entities.KindBalanceViolation, op,
					"%s claims inventory %g for product %s in period %d, shipments and demand give %g",
					raw.Strategy, claimed, l.ProductIDs[p], t, recomputed)
			}
		}
	}
	return nil
}

// checkInvariants returns violations that are always fatal and those that are
// fatal only for plans claiming success.
func checkInvariants(
	decisions []entities.ProcurementDecision,
	inventory [][]float64,
	shipments []entities.Shipment,
	l *lookup.Lookups,
	opts Options,
) (fatal []string, violations []string) {
	tol := opts.tolerance()

	for _, d := range decisions {
		offer, _ := l.Offer(d.ProductID, d.SupplierID)
		if d.Quantity > 0 && d.Quantity < offer.MOQ-tol {
			fatal = append(fatal, fmt.Sprintf(
				"order of %g for product %s from supplier %s in period %d is below the MOQ of %g",
				d.Quantity, d.ProductID, d.SupplierID, d.Period, offer.MOQ))
		}
	}

	arrivals := projection.Arrivals(shipments, l)
	for p, id := range l.ProductIDs {
		for t, inv := range inventory[p] {
			if inv < -tol {
				violations = append(violations, fmt.Sprintf("product %s has negative inventory %g in period %d", id, inv, t))
			} else if inv < l.SafetyStock[p][t]-tol && opts.SafetyStockPenalty <= 0 {
				violations = append(violations, fmt.Sprintf(
					"product %s inventory %g is below safety stock %g in period %d", id, inv, l.SafetyStock[p][t], t))
			}
			if inv > l.Capacity[p][t]+tol {
				violations = append(violations, fmt.Sprintf(
					"product %s inventory %g exceeds capacity %g in period %d", id, inv, l.Capacity[p][t], t))
			}
			if limit := shelfLimit(arrivals, l, p, t); inv > limit+tol {
				violations = append(violations, fmt.Sprintf(
					"product %s holds %g units in period %d but only %g arrived within its shelf life", id, inv, t, limit))
			}
		}
	}

	for t, limit := range l.Warehouse {
		var total float64
		for p := range l.ProductIDs {
			total += math.Max(inventory[p][t], 0)
		}
		if total > limit+tol {
			violations = append(violations, fmt.Sprintf(
				"warehouse holds %g units in period %d, capacity is %g", total, t, limit))
		}
	}
	return fatal, violations
}

// shelfLimit is the most stock product p may hold at the end of period t
func shelfLimit(arrivals [][]float64, l *lookup.Lookups, p, t int) float64 {
	if l.ShelfLife[p] <= 0 {
		return math.Inf(1)
	}
	var limit float64
	if l.OpeningStockUsable(p, t) {
		limit = l.OpeningStock[p]
	}
	for a := l.ShelfWindowStart(p, t); a <= t; a++ {
		limit += arrivals[p][a]
	}
	return limit
}

func shortfalls(inventory [][]float64, l *lookup.Lookups, tol float64) []entities.Shortfall {
	var out []entities.Shortfall
	for p, id := range l.ProductIDs {
		for t, inv := range inventory[p] {
			if short := l.SafetyStock[p][t] - math.Max(inv, 0); short > tol {
				out = append(out, entities.Shortfall{ProductID: id, Period: t, Quantity: short})
			}
		}
	}
	return out
}

func costBreakdown(
	decisions []entities.ProcurementDecision,
	inventory [][]float64,
	short []entities.Shortfall,
	l *lookup.Lookups,
	opts Options,
) dto.CostBreakdown {
	var procurement, discount, logistics, holding, penalty float64

	for _, d := range decisions {
		offer, _ := l.Offer(d.ProductID, d.SupplierID)
		purchase := offer.PurchaseCost(d.Quantity)
		procurement += purchase
		discount += d.Quantity*offer.UnitCost - purchase
		logistics += offer.LogisticsCost * d.Quantity
		if d.Quantity > 0 {
			logistics += offer.FixedOrderCost
		}
	}
	for p := range l.ProductIDs {
		for _, inv := range inventory[p] {
			holding += l.HoldingCost[p] * math.Max(inv, 0)
		}
	}
	if opts.SafetyStockPenalty > 0 {
		for _, s := range short {
			penalty += opts.SafetyStockPenalty * s.Quantity
		}
	}

	costs := dto.CostBreakdown{
		Procurement: money(procurement),
		Discount:    money(discount),
		Logistics:   money(logistics),
		Holding:     money(holding),
		Penalty:     money(penalty),
	}
	costs.Total = costs.Procurement.Add(costs.Logistics).Add(costs.Holding).Add(costs.Penalty)
	return costs
}

func kpis(
	decisions []entities.ProcurementDecision,
	shipments []entities.Shipment,
	inventory [][]float64,
	l *lookup.Lookups,
) dto.KPIs {
	k := dto.KPIs{OrderCount: len(decisions)}
	for _, s := range shipments {
		if s.Late {
			k.LateOrders++
		}
	}

	var totalDemand, served, onHand float64
	for p := range l.ProductIDs {
		for t, inv := range inventory[p] {
			demand := l.Demand[p][t]
			totalDemand += demand
			// Demand is served unless this period pushed stock further below zero.
			prior := l.OpeningStock[p]
			if t > 0 {
				prior = inventory[p][t-1]
			}
			unmet := math.Max(0, -inv) - math.Max(0, -prior)
			served += demand - math.Max(0, math.Min(demand, unmet))
			onHand += math.Max(inv, 0)
		}
		last := l.Periods() - 1
		k.Obsolescence += math.Max(0, inventory[p][last]-l.SafetyStock[p][last])
	}

	k.ServiceLevel = 1
	if totalDemand > 0 {
		k.ServiceLevel = served / totalDemand
	}
	if average := onHand / float64(l.Periods()*l.ProductCount()); average > 0 {
		k.InventoryTurnover = totalDemand / average
	}
	return k
}

func sortedDecisions(decisions []entities.ProcurementDecision) []entities.ProcurementDecision {
	out := make([]entities.ProcurementDecision, 0, len(decisions))
	for _, d := range decisions {
		if d.Quantity != 0 {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.SupplierID != b.SupplierID {
			return a.SupplierID < b.SupplierID
		}
		return a.Period < b.Period
	})
	return out
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(costPlaces)
}
