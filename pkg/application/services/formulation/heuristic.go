package formulation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/domain/entities"
)

// greedyEpsilon absorbs float noise when comparing stock levels
const greedyEpsilon = 1e-9

// HeuristicFormulator places orders in a single forward pass over arrival
// periods, covering each safety-stock shortfall at the cheapest supplier whose
// MOQ-rounded order still fits. It never backtracks and never proves optimality.
type HeuristicFormulator struct{}

var _ Formulator = (*HeuristicFormulator)(nil)

// NewHeuristicFormulator creates a heuristic formulator
func NewHeuristicFormulator() *HeuristicFormulator {
	return &HeuristicFormulator{}
}

// Strategy returns StrategyHeuristic
func (f *HeuristicFormulator) Strategy() entities.Strategy {
	return entities.StrategyHeuristic
}

func (f *HeuristicFormulator) sealed() {}

// candidate is one supplier's bid to cover a shortfall
type candidate struct {
	offer       *lookup.Offer
	orderPeriod int
	quantity    float64
	unitCost    float64
}

// greedyState tracks planned arrivals while the pass moves forward
type greedyState struct {
	lookups   *lookup.Lookups
	arrivals  [][]float64
	decisions []entities.ProcurementDecision
	cost      float64
}

// Formulate runs the forward pass
func (f *HeuristicFormulator) Formulate(ctx context.Context, l *lookup.Lookups, opts Options) (*RawResult, error) {
	start := time.Now()
	state := &greedyState{lookups: l, arrivals: emptyInventory(l)}
	result := &RawResult{
		Strategy: entities.StrategyHeuristic,
		Status:   entities.StatusFeasible,
	}

	for t := 0; t < l.Periods(); t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("heuristic formulation: %w", err)
		}
		for p := range l.ProductIDs {
			level := state.onHand(p, t)
			required := l.SafetyStock[p][t]
			if level >= required-greedyEpsilon {
				continue
			}
			if state.cover(p, t, required-level) {
				continue
			}
			// Soft mode tolerates stock below the safety level, never below zero.
			if opts.SoftSafetyStock() && level >= -greedyEpsilon {
				continue
			}
			result.Status = entities.StatusInfeasibleGreedy
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf(
				"no supplier can cover shortfall of %g for product %s in period %d",
				required-level, l.ProductIDs[p], t))
		}
	}

	for p := range l.ProductIDs {
		if expired := state.expiredUnits(p, -1, 0); expired > greedyEpsilon {
			result.Status = entities.StatusInfeasibleGreedy
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf(
				"%g units of product %s exceed their shelf life", expired, l.ProductIDs[p]))
		}
	}

	result.Decisions = state.decisions
	result.Inventory = emptyInventory(l)
	result.Objective = state.cost
	for p := range l.ProductIDs {
		for t := 0; t < l.Periods(); t++ {
			inv := state.onHand(p, t)
			result.Inventory[p][t] = inv
			if inv > 0 {
				result.Objective += l.HoldingCost[p] * inv
			}
			if short := l.SafetyStock[p][t] - math.Max(inv, 0); short > greedyEpsilon {
				result.Shortfalls = append(result.Shortfalls, entities.Shortfall{
					ProductID: l.ProductIDs[p],
					Period:    t,
					Quantity:  short,
				})
				if opts.SoftSafetyStock() {
					result.Objective += opts.SafetyStockPenalty * short
				}
			}
		}
	}
	result.Iterations = l.Periods()
	result.Elapsed = time.Since(start)

	return result, nil
}

// cover orders enough of product p to arrive in period t, trying suppliers
// from cheapest effective cost. It reports whether an order was placed.
func (s *greedyState) cover(p, t int, shortfall float64) bool {
	l := s.lookups
	candidates := make([]candidate, 0, len(l.OffersFor(p)))
	for _, offer := range l.OffersFor(p) {
		orderPeriod, ok := l.OrderPeriodFor(offer, t)
		if !ok {
			continue
		}
		qty := math.Max(shortfall, offer.MOQ)
		candidates = append(candidates, candidate{
			offer:       offer,
			orderPeriod: orderPeriod,
			quantity:    qty,
			unitCost:    offer.EffectiveUnitCost(qty),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if math.Abs(a.unitCost-b.unitCost) > greedyEpsilon {
			return a.unitCost < b.unitCost
		}
		if a.offer.LeadTime != b.offer.LeadTime {
			return a.offer.LeadTime < b.offer.LeadTime
		}
		return a.offer.SupplierID < b.offer.SupplierID
	})

	for _, c := range candidates {
		if !s.fits(p, t, c.quantity) {
			continue
		}
		if s.expiredUnits(p, t, c.quantity) > s.expiredUnits(p, -1, 0)+greedyEpsilon {
			continue
		}
		s.arrivals[p][t] += c.quantity
		s.cost += c.offer.OrderCost(c.quantity)
		s.decisions = append(s.decisions, entities.ProcurementDecision{
			ProductID:  c.offer.ProductID,
			SupplierID: c.offer.SupplierID,
			Period:     c.orderPeriod,
			Quantity:   c.quantity,
		})
		return true
	}
	return false
}

// onHand projects the end-of-period stock of product p from planned arrivals
func (s *greedyState) onHand(p, t int) float64 {
	l := s.lookups
	level := l.OpeningStock[p]
	for a := 0; a <= t; a++ {
		level += s.arrivals[p][a] - l.Demand[p][a]
	}
	return level
}

// fits checks product and warehouse capacity from period t to the end of the horizon
func (s *greedyState) fits(p, t int, qty float64) bool {
	l := s.lookups
	for u := t; u < l.Periods(); u++ {
		level := s.onHand(p, u) + qty
		if level > l.Capacity[p][u]+greedyEpsilon {
			return false
		}
		if math.IsInf(l.Warehouse[u], 1) {
			continue
		}
		total := math.Max(level, 0)
		for other := range l.ProductIDs {
			if other != p {
				total += math.Max(s.onHand(other, u), 0)
			}
		}
		if total > l.Warehouse[u]+greedyEpsilon {
			return false
		}
	}
	return true
}

type lot struct {
	arrived  int
	quantity float64
}

// expiredUnits replays product p first-in first-out, optionally with an extra
// arrival, and returns how many units stay on hand past their shelf life.
func (s *greedyState) expiredUnits(p, extraAt int, extraQty float64) float64 {
	l := s.lookups
	shelfLife := l.ShelfLife[p]
	if shelfLife <= 0 {
		return 0
	}

	lots := make([]lot, 0, l.Periods()+1)
	if l.OpeningStock[p] > 0 {
		lots = append(lots, lot{arrived: 0, quantity: l.OpeningStock[p]})
	}

	var expired float64
	for t := 0; t < l.Periods(); t++ {
		arriving := s.arrivals[p][t]
		if t == extraAt {
			arriving += extraQty
		}
		if arriving > 0 {
			lots = append(lots, lot{arrived: t, quantity: arriving})
		}

		demand := l.Demand[p][t]
		for demand > 0 && len(lots) > 0 {
			take := math.Min(demand, lots[0].quantity)
			lots[0].quantity -= take
			demand -= take
			if lots[0].quantity <= greedyEpsilon {
				lots = lots[1:]
			}
		}

		for len(lots) > 0 && t-lots[0].arrived >= shelfLife {
			expired += lots[0].quantity
			lots = lots[1:]
		}
	}
	return expired
}
