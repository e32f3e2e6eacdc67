package entities

import "fmt"

// ProductID represents a unique product identifier
type ProductID string

// Product represents a procurable product and its stocking rules
type Product struct {
	ID          ProductID `json:"id" validate:"required"`
	Name        string    `json:"name"`
	HoldingCost float64   `json:"holding_cost" validate:"gte=0"`
	// ShelfLife is the number of periods a unit may stay on hand after it arrives.
	// Zero means the product does not expire.
	ShelfLife    int     `json:"shelf_life" validate:"gte=0"`
	OpeningStock float64 `json:"opening_stock" validate:"gte=0"`
	// SafetyStock and Capacity are either empty, a single value applied to every
	// period, or one value per period of the horizon.
	SafetyStock []float64 `json:"safety_stock,omitempty" validate:"dive,gte=0"`
	Capacity    []float64 `json:"capacity,omitempty" validate:"dive,gte=0"`
}

// NewProduct creates a validated Product with scalar safety stock and no capacity limit
func NewProduct(id ProductID, holdingCost float64, shelfLife int, safetyStock float64) (*Product, error) {
	if string(id) == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if holdingCost < 0 {
		return nil, fmt.Errorf("holding cost cannot be negative, got %g", holdingCost)
	}
	if shelfLife < 0 {
		return nil, fmt.Errorf("shelf life cannot be negative, got %d", shelfLife)
	}
	if safetyStock < 0 {
		return nil, fmt.Errorf("safety stock cannot be negative, got %g", safetyStock)
	}

	product := &Product{
		ID:          id,
		HoldingCost: holdingCost,
		ShelfLife:   shelfLife,
	}
	if safetyStock > 0 {
		product.SafetyStock = []float64{safetyStock}
	}
	return product, nil
}

// Perishable reports whether on-hand stock of the product ages out
func (p *Product) Perishable() bool {
	return p.ShelfLife > 0
}
