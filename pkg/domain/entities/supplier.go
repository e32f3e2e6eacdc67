package entities

import "math"

// SupplierID represents a unique supplier identifier
type SupplierID string

// Discount is a quantity break: units above Threshold in a single order are
// charged at UnitCost * (1 - Rate).
type Discount struct {
	Threshold float64 `json:"threshold" validate:"gte=0"`
	Rate      float64 `json:"rate" validate:"gte=0,lt=1"`
}

// Cost returns the purchase cost of qty units at the given unit cost.
// Only the units above the threshold receive the reduced rate.
func (d Discount) Cost(qty, unitCost float64) float64 {
	if qty <= d.Threshold {
		return qty * unitCost
	}
	return d.Threshold*unitCost + (qty-d.Threshold)*unitCost*(1-d.Rate)
}

// Supplier represents a vendor with per-product commercial terms
type Supplier struct {
	ID   SupplierID `json:"id" validate:"required"`
	Name string     `json:"name"`
	// LeadTime is the number of periods between placing an order and its arrival
	LeadTime      int     `json:"lead_time" validate:"gte=0"`
	MinOrderValue float64 `json:"min_order_value" validate:"gte=0"`

	Products       []ProductID            `json:"products" validate:"dive,required"`
	UnitCost       map[ProductID]float64  `json:"unit_cost" validate:"dive,gte=0"`
	LogisticsCost  map[ProductID]float64  `json:"logistics_cost,omitempty" validate:"dive,gte=0"`
	FixedOrderCost map[ProductID]float64  `json:"fixed_order_cost,omitempty" validate:"dive,gte=0"`
	MOQ            map[ProductID]float64  `json:"moq,omitempty" validate:"dive,gte=0"`
	Discounts      map[ProductID]Discount `json:"discounts,omitempty" validate:"dive"`
}

// Offers reports whether the supplier lists the product
func (s *Supplier) Offers(productID ProductID) bool {
	for _, p := range s.Products {
		if p == productID {
			return true
		}
	}
	return false
}

// EffectiveMOQ is the smallest nonzero order the supplier accepts for a product.
// A minimum order value is converted to units at the product's unit cost.
func (s *Supplier) EffectiveMOQ(productID ProductID) float64 {
	moq := s.MOQ[productID]
	unitCost := s.UnitCost[productID]
	if s.MinOrderValue > 0 && unitCost > 0 {
		moq = math.Max(moq, math.Ceil(s.MinOrderValue/unitCost))
	}
	return moq
}

// PurchaseCost returns the unit-cost part of ordering qty units of a product,
// applying the product's discount rule when one exists.
func (s *Supplier) PurchaseCost(productID ProductID, qty float64) float64 {
	unitCost := s.UnitCost[productID]
	if discount, ok := s.Discounts[productID]; ok {
		return discount.Cost(qty, unitCost)
	}
	return qty * unitCost
}
