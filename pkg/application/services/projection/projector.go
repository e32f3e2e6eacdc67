package projection

import (
	"sort"

	"github.com/vsinha/procurement/pkg/application/services/lookup"
	"github.com/vsinha/procurement/pkg/domain/entities"
)

const op = "project"

// Project shifts every procurement decision by its supplier's lead time. It is
// the only producer of shipments, so all strategies share one arrival rule.
// Orders that cannot arrive inside the horizon fail with a LateArrival error
// unless the lookups were built with the clip policy.
func Project(decisions []entities.ProcurementDecision, l *lookup.Lookups) ([]entities.Shipment, error) {
	shipments := make([]entities.Shipment, 0, len(decisions))

	for _, d := range decisions {
		offer, ok := l.Offer(d.ProductID, d.SupplierID)
		if !ok {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"supplier %s does not offer product %s", d.SupplierID, d.ProductID)
		}
		if d.Quantity < 0 {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"negative order of %g for product %s from supplier %s", d.Quantity, d.ProductID, d.SupplierID)
		}
		if !l.Horizon.Contains(d.Period) {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"order period %d lies outside the horizon", d.Period)
		}

		arrival, late, ok := l.ArrivalOf(offer, d.Period)
		if !ok {
			return nil, entities.NewPlanError(entities.KindLateArrival, op,
				"order of product %s from supplier %s in period %d arrives in period %d, after the horizon",
				d.ProductID, d.SupplierID, d.Period, d.Period+offer.LeadTime)
		}

		shipments = append(shipments, entities.Shipment{
			ProductID:     d.ProductID,
			SupplierID:    d.SupplierID,
			OrderPeriod:   d.Period,
			ArrivalPeriod: arrival,
			Quantity:      d.Quantity,
			Late:          late,
		})
	}

	sort.SliceStable(shipments, func(i, j int) bool {
		a, b := shipments[i], shipments[j]
		if a.ArrivalPeriod != b.ArrivalPeriod {
			return a.ArrivalPeriod < b.ArrivalPeriod
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		if a.SupplierID != b.SupplierID {
			return a.SupplierID < b.SupplierID
		}
		return a.OrderPeriod < b.OrderPeriod
	})

	return shipments, nil
}

// Arrivals sums shipments per product and arrival period
func Arrivals(shipments []entities.Shipment, l *lookup.Lookups) [][]float64 {
	arrivals := make([][]float64, l.ProductCount())
	for p := range arrivals {
		arrivals[p] = make([]float64, l.Periods())
	}
	for _, s := range shipments {
		if p, ok := l.ProductIndex(s.ProductID); ok {
			arrivals[p][s.ArrivalPeriod] += s.Quantity
		}
	}
	return arrivals
}
