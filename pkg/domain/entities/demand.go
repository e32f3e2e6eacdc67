package entities

// Horizon is the contiguous sequence of planning periods 0..Periods-1
type Horizon struct {
	Periods int `json:"periods" validate:"gte=1"`
}

// Contains reports whether period t lies inside the horizon
func (h Horizon) Contains(t int) bool {
	return t >= 0 && t < h.Periods
}

// Last returns the final period of the horizon
func (h Horizon) Last() int {
	return h.Periods - 1
}

// DemandEntry represents forecast demand for a product in one period
type DemandEntry struct {
	ProductID ProductID `json:"product_id" validate:"required"`
	Period    int       `json:"period" validate:"gte=0"`
	Quantity  float64   `json:"quantity" validate:"gte=0"`
}

// Shortfall represents stock missing below the safety level in one period
type Shortfall struct {
	ProductID ProductID `json:"product_id"`
	Period    int       `json:"period"`
	Quantity  float64   `json:"quantity"`
}
