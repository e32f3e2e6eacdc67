package formulation

import (
	"fmt"
	"math"

	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/solver"
)

// discountMode selects how quantity discounts enter the model
type discountMode int

const (
	// discountTiered linearises discounts exactly with a tier binary per order
	discountTiered discountMode = iota
	// discountPiecewise leaves discounts as piecewise objective terms
	discountPiecewise
)

// orderVars are the columns of one (offer, order period) pair
type orderVars struct {
	offer       *lookup.Offer
	orderPeriod int
	arrival     int
	quantity    int
	indicator   int // -1 when the order has no MOQ or fixed cost
}

// planModel is the mixed-integer model shared by the exact and discount-aware formulators
type planModel struct {
	model     *solver.Model
	piecewise []solver.PiecewiseTerm
	orders    []orderVars
	// arriving lists, per product and arrival period, the orders landing there
	arriving  [][][]int
	inventory [][]int
	shortfall [][]int
}

// buildPlanModel generates variables, constraints and objective for a lookup set
func buildPlanModel(l *lookup.Lookups, opts Options, mode discountMode) *planModel {
	pm := &planModel{
		model:     solver.NewModel(),
		arriving:  make([][][]int, l.ProductCount()),
		inventory: make([][]int, l.ProductCount()),
		shortfall: make([][]int, l.ProductCount()),
	}

	for p := range l.ProductIDs {
		pm.arriving[p] = make([][]int, l.Periods())
		pm.addOrders(l, opts, p, mode)
		pm.addInventory(l, opts, p)
	}
	pm.addWarehouseLimits(l)

	return pm
}

// addOrders creates quantity and indicator columns with the MOQ disjunction
func (pm *planModel) addOrders(l *lookup.Lookups, opts Options, p int, mode discountMode) {
	m := pm.model
	for _, offer := range l.OffersFor(p) {
		for _, t := range offer.OrderPeriods {
			arrival, _, _ := l.ArrivalOf(offer, t)
			bigM := orderBound(l, opts, offer, arrival)
			if bigM <= 0 || bigM < offer.MOQ {
				continue
			}

			tag := fmt.Sprintf("%s,%s,%d", offer.ProductID, offer.SupplierID, t)
			q := m.AddContinuous("q["+tag+"]", 0, bigM)
			m.AddObjective(q, offer.LogisticsCost)
			pm.addPurchaseCost(offer, q, bigM, tag, mode)

			// Without an MOQ or fixed cost the indicator would be free to take any
			// value, so it is only created when it constrains or costs something.
			y := -1
			if offer.MOQ > 0 || offer.FixedOrderCost > 0 {
				y = m.AddBinary("y[" + tag + "]")
				m.AddObjective(y, offer.FixedOrderCost)
				m.AddConstraint("bigm["+tag+"]", []solver.Term{{Var: q, Coef: 1}, {Var: y, Coef: -bigM}}, solver.LessEq, 0)
				if offer.MOQ > 0 {
					m.AddConstraint("moq["+tag+"]", []solver.Term{{Var: q, Coef: 1}, {Var: y, Coef: -offer.MOQ}}, solver.GreaterEq, 0)
				}
			}

			pm.orders = append(pm.orders, orderVars{
				offer:       offer,
				orderPeriod: t,
				arrival:     arrival,
				quantity:    q,
				indicator:   y,
			})
			pm.arriving[p][arrival] = append(pm.arriving[p][arrival], q)
		}
	}
}

// addPurchaseCost charges unit cost on an order column, honouring the discount rule
func (pm *planModel) addPurchaseCost(offer *lookup.Offer, q int, bigM float64, tag string, mode discountMode) {
	m := pm.model
	d := offer.Discount
	discounted := offer.UnitCost
	if d != nil {
		discounted = offer.UnitCost * (1 - d.Rate)
	}

	switch {
	case d == nil || d.Threshold >= bigM:
		m.AddObjective(q, offer.UnitCost)
	case d.Threshold <= 0:
		m.AddObjective(q, discounted)
	case mode == discountPiecewise:
		pm.piecewise = append(pm.piecewise, solver.PiecewiseTerm{
			Var:        q,
			Breakpoint: d.Threshold,
			SlopeBelow: offer.UnitCost,
			SlopeAbove: discounted,
		})
	default:
		// q = base + extra; the tier binary lets extra be positive only once
		// base reaches the threshold, because the cheaper extra units would
		// otherwise be used first.
		base := m.AddContinuous("base["+tag+"]", 0, d.Threshold)
		extra := m.AddContinuous("extra["+tag+"]", 0, bigM-d.Threshold)
		z := m.AddBinary("tier[" + tag + "]")
		m.AddConstraint("split["+tag+"]",
			[]solver.Term{{Var: q, Coef: 1}, {Var: base, Coef: -1}, {Var: extra, Coef: -1}}, solver.Equal, 0)
		m.AddConstraint("tierbase["+tag+"]",
			[]solver.Term{{Var: base, Coef: 1}, {Var: z, Coef: -d.Threshold}}, solver.GreaterEq, 0)
		m.AddConstraint("tierextra["+tag+"]",
			[]solver.Term{{Var: extra, Coef: 1}, {Var: z, Coef: -(bigM - d.Threshold)}}, solver.LessEq, 0)
		m.AddObjective(base, offer.UnitCost)
		m.AddObjective(extra, discounted)
	}
}

// addInventory creates inventory columns with balance, safety stock and shelf-life rows
func (pm *planModel) addInventory(l *lookup.Lookups, opts Options, p int) {
	m := pm.model
	id := l.ProductIDs[p]
	pm.inventory[p] = make([]int, l.Periods())
	pm.shortfall[p] = make([]int, l.Periods())

	for t := 0; t < l.Periods(); t++ {
		tag := fmt.Sprintf("%s,%d", id, t)
		inv := m.AddContinuous("inv["+tag+"]", 0, l.Capacity[p][t])
		pm.inventory[p][t] = inv
		pm.shortfall[p][t] = -1
		m.AddObjective(inv, l.HoldingCost[p])

		// inv[t] - inv[t-1] - arrivals[t] = -demand[t]
		terms := []solver.Term{{Var: inv, Coef: 1}}
		rhs := -l.Demand[p][t]
		if t == 0 {
			rhs += l.OpeningStock[p]
		} else {
			terms = append(terms, solver.Term{Var: pm.inventory[p][t-1], Coef: -1})
		}
		for _, q := range pm.arriving[p][t] {
			terms = append(terms, solver.Term{Var: q, Coef: -1})
		}
		m.AddConstraint("balance["+tag+"]", terms, solver.Equal, rhs)

		if safety := l.SafetyStock[p][t]; safety > 0 {
			terms := []solver.Term{{Var: inv, Coef: 1}}
			if opts.SoftSafetyStock() {
				short := m.AddContinuous("short["+tag+"]", 0, safety)
				pm.shortfall[p][t] = short
				m.AddObjective(short, opts.SafetyStockPenalty)
				terms = append(terms, solver.Term{Var: short, Coef: 1})
			}
			m.AddConstraint("safety["+tag+"]", terms, solver.GreaterEq, safety)
		}

		pm.addShelfLife(l, p, t, inv, tag)
	}
}

// addShelfLife keeps on-hand stock within what arrived during the shelf-life window.
// The row is implied by the balance while the window still reaches period 0.
func (pm *planModel) addShelfLife(l *lookup.Lookups, p, t, inv int, tag string) {
	if l.ShelfLife[p] <= 0 {
		return
	}
	start := l.ShelfWindowStart(p, t)
	if start == 0 && l.OpeningStockUsable(p, t) {
		return
	}

	terms := []solver.Term{{Var: inv, Coef: 1}}
	for a := start; a <= t; a++ {
		for _, q := range pm.arriving[p][a] {
			terms = append(terms, solver.Term{Var: q, Coef: -1})
		}
	}
	var rhs float64
	if l.OpeningStockUsable(p, t) {
		rhs = l.OpeningStock[p]
	}
	pm.model.AddConstraint("shelf["+tag+"]", terms, solver.LessEq, rhs)
}

// addWarehouseLimits caps total on-hand stock per period
func (pm *planModel) addWarehouseLimits(l *lookup.Lookups) {
	for t, limit := range l.Warehouse {
		if math.IsInf(limit, 1) {
			continue
		}
		terms := make([]solver.Term, 0, l.ProductCount())
		for p := range l.ProductIDs {
			terms = append(terms, solver.Term{Var: pm.inventory[p][t], Coef: 1})
		}
		pm.model.AddConstraint(fmt.Sprintf("warehouse[%d]", t), terms, solver.LessEq, limit)
	}
}

// orderBound is the big-M of one order: no more than fits on the shelf in its
// arrival period, and no more than the rest of the horizon can use unless the
// MOQ forces it.
func orderBound(l *lookup.Lookups, opts Options, offer *lookup.Offer, arrival int) float64 {
	if opts.BigM > 0 {
		return math.Max(opts.BigM, offer.MOQ)
	}
	p := offer.ProductIndex
	fit := math.Min(l.Capacity[p][arrival], l.Warehouse[arrival]) + l.Demand[p][arrival]
	need := l.TotalDemand(p, arrival) + l.MaxSafetyStock(p)
	return math.Min(fit, math.Max(offer.MOQ, need))
}

// extract reads a backend solution back into a raw result
func (pm *planModel) extract(l *lookup.Lookups, sol *solver.Solution, result *RawResult) {
	result.Nodes = sol.Nodes
	result.Iterations = sol.Iterations
	result.Elapsed = sol.Elapsed
	if !sol.HasIncumbent() {
		return
	}

	for _, o := range pm.orders {
		qty := clean(sol.Value(o.quantity))
		if qty <= 0 {
			continue
		}
		result.Decisions = append(result.Decisions, entities.ProcurementDecision{
			ProductID:  o.offer.ProductID,
			SupplierID: o.offer.SupplierID,
			Period:     o.orderPeriod,
			Quantity:   qty,
		})
	}

	result.Inventory = emptyInventory(l)
	for p := range pm.inventory {
		for t, v := range pm.inventory[p] {
			result.Inventory[p][t] = clean(sol.Value(v))
			if s := pm.shortfall[p][t]; s >= 0 {
				if short := clean(sol.Value(s)); short > 0 {
					result.Shortfalls = append(result.Shortfalls, entities.Shortfall{
						ProductID: l.ProductIDs[p],
						Period:    t,
						Quantity:  short,
					})
				}
			}
		}
	}
}
