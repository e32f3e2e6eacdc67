package lookup

import (
	"math"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

const op = "lookup"

// Build derives the read-only indexes used by every formulator. It fails with
// a DataInconsistency error when the dataset cannot be indexed consistently.
func Build(ds *entities.Dataset, policy entities.ArrivalPolicy) (*Lookups, error) {
	if ds == nil {
		return nil, entities.NewPlanError(entities.KindDataInconsistency, op, "dataset is nil")
	}
	periods := ds.Horizon.Periods
	if periods < 1 {
		return nil, entities.NewPlanError(entities.KindDataInconsistency, op, "horizon must have at least one period, got %d", periods)
	}

	products := sortedProducts(ds.Products)
	suppliers := sortedSuppliers(ds.Suppliers)

	l := &Lookups{
		Horizon:         ds.Horizon,
		Policy:          policy,
		ProductIDs:      make([]entities.ProductID, len(products)),
		SupplierIDs:     make([]entities.SupplierID, len(suppliers)),
		Demand:          make([][]float64, len(products)),
		SafetyStock:     make([][]float64, len(products)),
		Capacity:        make([][]float64, len(products)),
		HoldingCost:     make([]float64, len(products)),
		ShelfLife:       make([]int, len(products)),
		OpeningStock:    make([]float64, len(products)),
		productIndex:    make(map[entities.ProductID]int, len(products)),
		offersByProduct: make([][]int, len(products)),
		offerIndex:      make(map[offerKey]int),
	}

	for i, product := range products {
		if _, exists := l.productIndex[product.ID]; exists {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op, "duplicate product %s", product.ID)
		}
		l.productIndex[product.ID] = i
		l.ProductIDs[i] = product.ID
		l.HoldingCost[i] = product.HoldingCost
		l.ShelfLife[i] = product.ShelfLife
		l.OpeningStock[i] = product.OpeningStock
		l.Demand[i] = make([]float64, periods)

		safety, ok := expandPeriodic(product.SafetyStock, periods, 0)
		if !ok {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"product %s safety stock has %d values for %d periods", product.ID, len(product.SafetyStock), periods)
		}
		capacity, ok := expandPeriodic(product.Capacity, periods, math.Inf(1))
		if !ok {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"product %s capacity has %d values for %d periods", product.ID, len(product.Capacity), periods)
		}
		l.SafetyStock[i] = safety
		l.Capacity[i] = capacity
	}

	warehouse, ok := expandPeriodic(ds.WarehouseCapacity, periods, math.Inf(1))
	if !ok {
		return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
			"warehouse capacity has %d values for %d periods", len(ds.WarehouseCapacity), periods)
	}
	l.Warehouse = warehouse

	for _, entry := range ds.Demand {
		idx, ok := l.productIndex[entry.ProductID]
		if !ok {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"demand references unknown product %s", entry.ProductID)
		}
		if !ds.Horizon.Contains(entry.Period) {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"demand for product %s in period %d lies outside the horizon", entry.ProductID, entry.Period)
		}
		if entry.Quantity < 0 {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"demand for product %s in period %d is negative", entry.ProductID, entry.Period)
		}
		l.Demand[idx][entry.Period] += entry.Quantity
	}

	for i, supplier := range suppliers {
		if i > 0 && suppliers[i-1].ID == supplier.ID {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op, "duplicate supplier %s", supplier.ID)
		}
		l.SupplierIDs[i] = supplier.ID
		if supplier.LeadTime < 0 {
			return nil, entities.NewPlanError(entities.KindDataInconsistency, op,
				"supplier %s has negative lead time %d", supplier.ID, supplier.LeadTime)
		}
		if err := l.addOffers(&supplier); err != nil {
			return nil, err
		}
	}

	// Offers were appended supplier by supplier; regroup them by product so
	// every formulator walks products in id order and suppliers in id order.
	l.reindexOffers()

	return l, nil
}

// addOffers flattens one supplier's per-product terms into offers
func (l *Lookups) addOffers(supplier *entities.Supplier) error {
	for productID := range supplier.UnitCost {
		if !supplier.Offers(productID) {
			return entities.NewPlanError(entities.KindDataInconsistency, op,
				"supplier %s prices product %s it does not offer", supplier.ID, productID)
		}
	}

	for _, productID := range supplier.Products {
		productIdx, ok := l.productIndex[productID]
		if !ok {
			return entities.NewPlanError(entities.KindDataInconsistency, op,
				"supplier %s references unknown product %s", supplier.ID, productID)
		}
		unitCost, ok := supplier.UnitCost[productID]
		if !ok {
			return entities.NewPlanError(entities.KindDataInconsistency, op,
				"supplier %s offers product %s lacking cost data", supplier.ID, productID)
		}
		key := offerKey{productID, supplier.ID}
		if _, exists := l.offerIndex[key]; exists {
			return entities.NewPlanError(entities.KindDataInconsistency, op,
				"supplier %s lists product %s twice", supplier.ID, productID)
		}

		offer := Offer{
			ProductIndex:   productIdx,
			ProductID:      productID,
			SupplierID:     supplier.ID,
			UnitCost:       unitCost,
			LogisticsCost:  supplier.LogisticsCost[productID],
			FixedOrderCost: supplier.FixedOrderCost[productID],
			MOQ:            supplier.EffectiveMOQ(productID),
			LeadTime:       supplier.LeadTime,
		}
		if discount, ok := supplier.Discounts[productID]; ok && discount.Rate > 0 {
			d := discount
			offer.Discount = &d
		}
		for t := 0; t < l.Periods(); t++ {
			if _, _, ok := l.ArrivalOf(&offer, t); ok {
				offer.OrderPeriods = append(offer.OrderPeriods, t)
			}
		}

		l.offerIndex[key] = len(l.Offers)
		l.Offers = append(l.Offers, offer)
	}
	return nil
}

func (l *Lookups) reindexOffers() {
	grouped := make([]Offer, 0, len(l.Offers))
	for product := range l.ProductIDs {
		for _, supplierID := range l.SupplierIDs {
			idx, ok := l.offerIndex[offerKey{l.ProductIDs[product], supplierID}]
			if !ok {
				continue
			}
			grouped = append(grouped, l.Offers[idx])
		}
	}

	l.offerIndex = make(map[offerKey]int, len(grouped))
	for i := range grouped {
		grouped[i].Index = i
		offer := &grouped[i]
		l.offerIndex[offerKey{offer.ProductID, offer.SupplierID}] = i
		l.offersByProduct[offer.ProductIndex] = append(l.offersByProduct[offer.ProductIndex], i)
	}
	l.Offers = grouped
}

// expandPeriodic broadcasts an empty or single-value array over the horizon
func expandPeriodic(values []float64, periods int, fill float64) ([]float64, bool) {
	out := make([]float64, periods)
	switch len(values) {
	case 0:
		for t := range out {
			out[t] = fill
		}
	case 1:
		for t := range out {
			out[t] = values[0]
		}
	case periods:
		copy(out, values)
	default:
		return nil, false
	}
	return out, true
}
