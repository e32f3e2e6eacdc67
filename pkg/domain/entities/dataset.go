package entities

import (
	"fmt"
	"strings"
)

// ArrivalPolicy decides what happens to orders whose arrival falls past the horizon
type ArrivalPolicy int

const (
	// RejectLateArrivals never allows an order that cannot arrive inside the horizon
	RejectLateArrivals ArrivalPolicy = iota
	// ClipLateArrivals books such orders on the last period and flags them late
	ClipLateArrivals
)

// String method for ArrivalPolicy enum
func (p ArrivalPolicy) String() string {
	switch p {
	case RejectLateArrivals:
		return "reject"
	case ClipLateArrivals:
		return "clip"
	default:
		return "unknown"
	}
}

// ParseArrivalPolicy converts a configuration value to an ArrivalPolicy
func ParseArrivalPolicy(s string) (ArrivalPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return RejectLateArrivals, nil
	case "clip":
		return ClipLateArrivals, nil
	default:
		return RejectLateArrivals, fmt.Errorf("invalid arrival policy: %s (expected reject or clip)", s)
	}
}

// Dataset is the complete, immutable input of one planning run
type Dataset struct {
	Horizon   Horizon       `json:"horizon"`
	Products  []Product     `json:"products" validate:"required,min=1,dive"`
	Suppliers []Supplier    `json:"suppliers" validate:"dive"`
	Demand    []DemandEntry `json:"demand" validate:"dive"`
	// WarehouseCapacity caps the total on-hand stock of all products per period.
	// Empty means unlimited; a single value applies to every period.
	WarehouseCapacity []float64 `json:"warehouse_capacity,omitempty" validate:"dive,gte=0"`
}

// Product returns the product with the given id
func (d *Dataset) Product(id ProductID) (*Product, bool) {
	for i := range d.Products {
		if d.Products[i].ID == id {
			return &d.Products[i], true
		}
	}
	return nil, false
}

// Supplier returns the supplier with the given id
func (d *Dataset) Supplier(id SupplierID) (*Supplier, bool) {
	for i := range d.Suppliers {
		if d.Suppliers[i].ID == id {
			return &d.Suppliers[i], true
		}
	}
	return nil, false
}

// TotalDemand returns the demand of a product summed over the horizon
func (d *Dataset) TotalDemand(id ProductID) float64 {
	var total float64
	for _, entry := range d.Demand {
		if entry.ProductID == id {
			total += entry.Quantity
		}
	}
	return total
}

// WithDemandScaled returns a copy of the dataset with every demand entry multiplied by factor
func (d *Dataset) WithDemandScaled(factor float64) *Dataset {
	scaled := *d
	scaled.Demand = make([]DemandEntry, len(d.Demand))
	for i, entry := range d.Demand {
		entry.Quantity *= factor
		scaled.Demand[i] = entry
	}
	return &scaled
}
