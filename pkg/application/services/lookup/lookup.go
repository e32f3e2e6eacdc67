package lookup

import (
	"math"
	"sort"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// Offer is one supplier's terms for one product, flattened for fast access
type Offer struct {
	Index        int
	ProductIndex int
	ProductID    entities.ProductID
	SupplierID   entities.SupplierID

	UnitCost       float64
	LogisticsCost  float64
	FixedOrderCost float64
	// MOQ is the effective minimum order, including the supplier's minimum order value
	MOQ      float64
	LeadTime int
	Discount *entities.Discount

	// OrderPeriods lists the periods in which an order can be placed under the arrival policy
	OrderPeriods []int
}

// PurchaseCost returns the unit-cost part of an order, applying the discount rule
func (o *Offer) PurchaseCost(qty float64) float64 {
	if o.Discount != nil {
		return o.Discount.Cost(qty, o.UnitCost)
	}
	return qty * o.UnitCost
}

// OrderCost returns the full cost of ordering qty units in one period
func (o *Offer) OrderCost(qty float64) float64 {
	if qty <= 0 {
		return 0
	}
	return o.PurchaseCost(qty) + o.LogisticsCost*qty + o.FixedOrderCost
}

// EffectiveUnitCost returns the average cost per unit of an order of qty units
func (o *Offer) EffectiveUnitCost(qty float64) float64 {
	if qty <= 0 {
		return o.UnitCost + o.LogisticsCost
	}
	return o.OrderCost(qty) / qty
}

// Lookups holds read-only indexes over a dataset shared by every formulator
type Lookups struct {
	Horizon entities.Horizon
	Policy  entities.ArrivalPolicy

	ProductIDs  []entities.ProductID
	SupplierIDs []entities.SupplierID
	Offers      []Offer

	// Per product, per period matrices
	Demand      [][]float64
	SafetyStock [][]float64
	Capacity    [][]float64

	Warehouse    []float64
	HoldingCost  []float64
	ShelfLife    []int
	OpeningStock []float64

	productIndex    map[entities.ProductID]int
	offersByProduct [][]int
	offerIndex      map[offerKey]int
}

type offerKey struct {
	product  entities.ProductID
	supplier entities.SupplierID
}

// ProductCount returns the number of products
func (l *Lookups) ProductCount() int {
	return len(l.ProductIDs)
}

// Periods returns the horizon length
func (l *Lookups) Periods() int {
	return l.Horizon.Periods
}

// ProductIndex returns the row of a product in the per-product matrices
func (l *Lookups) ProductIndex(id entities.ProductID) (int, bool) {
	idx, ok := l.productIndex[id]
	return idx, ok
}

// OffersFor returns the offers for a product, ordered by supplier id
func (l *Lookups) OffersFor(product int) []*Offer {
	indexes := l.offersByProduct[product]
	offers := make([]*Offer, len(indexes))
	for i, idx := range indexes {
		offers[i] = &l.Offers[idx]
	}
	return offers
}

// Offer returns the terms of a supplier for a product
func (l *Lookups) Offer(productID entities.ProductID, supplierID entities.SupplierID) (*Offer, bool) {
	idx, ok := l.offerIndex[offerKey{productID, supplierID}]
	if !ok {
		return nil, false
	}
	return &l.Offers[idx], true
}

// ArrivalOf maps an order period to its arrival period. late is set when the
// arrival was clipped to the last period; ok is false when the order cannot
// be placed under the arrival policy.
func (l *Lookups) ArrivalOf(offer *Offer, orderPeriod int) (arrival int, late bool, ok bool) {
	if !l.Horizon.Contains(orderPeriod) {
		return 0, false, false
	}
	arrival = orderPeriod + offer.LeadTime
	if arrival <= l.Horizon.Last() {
		return arrival, false, true
	}
	if l.Policy == entities.ClipLateArrivals {
		return l.Horizon.Last(), true, true
	}
	return 0, false, false
}

// OrderPeriodFor returns the order period whose delivery lands in the arrival
// period. When several order periods clip onto the last period the earliest is
// returned, so an on-time order is preferred over a late one.
func (l *Lookups) OrderPeriodFor(offer *Offer, arrival int) (int, bool) {
	if !l.Horizon.Contains(arrival) {
		return 0, false
	}
	orderPeriod := arrival - offer.LeadTime
	if orderPeriod >= 0 {
		return orderPeriod, true
	}
	if l.Policy == entities.ClipLateArrivals && arrival == l.Horizon.Last() {
		return 0, true
	}
	return 0, false
}

// HasWarehouseLimit reports whether any period has a finite warehouse capacity
func (l *Lookups) HasWarehouseLimit() bool {
	for _, w := range l.Warehouse {
		if !math.IsInf(w, 1) {
			return true
		}
	}
	return false
}

// TotalDemand returns a product's demand from period `from` to the end of the horizon
func (l *Lookups) TotalDemand(product, from int) float64 {
	var total float64
	for t := from; t < l.Periods(); t++ {
		total += l.Demand[product][t]
	}
	return total
}

// MaxSafetyStock returns the largest safety stock requirement of a product
func (l *Lookups) MaxSafetyStock(product int) float64 {
	var max float64
	for _, s := range l.SafetyStock[product] {
		max = math.Max(max, s)
	}
	return max
}

// ShelfWindowStart returns the first arrival period whose units may still be on
// hand at the end of period t. It is 0 for products that do not expire.
func (l *Lookups) ShelfWindowStart(product, t int) int {
	if l.ShelfLife[product] <= 0 {
		return 0
	}
	start := t - l.ShelfLife[product] + 1
	if start < 0 {
		return 0
	}
	return start
}

// OpeningStockUsable reports whether opening stock may still be on hand at the end of period t.
// Opening stock ages as if it arrived in period 0.
func (l *Lookups) OpeningStockUsable(product, t int) bool {
	return l.ShelfLife[product] <= 0 || t < l.ShelfLife[product]
}

func sortedProducts(products []entities.Product) []entities.Product {
	sorted := make([]entities.Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func sortedSuppliers(suppliers []entities.Supplier) []entities.Supplier {
	sorted := make([]entities.Supplier, len(suppliers))
	copy(sorted, suppliers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
