package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscount_Cost(t *testing.T) {
	discount := Discount{Threshold: 100, Rate: 0.1}

	tests := []struct {
		name     string
		qty      float64
		expected float64
	}{
		{"below threshold", 50, 500},
		{"at threshold", 100, 1000},
		// 100*10 + 50*10*0.9, not 150*10*0.9 and not 150*10
		{"above threshold", 150, 1450},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, discount.Cost(tt.qty, 10), 1e-9)
		})
	}
}

func TestSupplier_EffectiveMOQ(t *testing.T) {
	supplier := Supplier{
		ID:            "S1",
		MinOrderValue: 95,
		Products:      []ProductID{"P1", "P2"},
		UnitCost:      map[ProductID]float64{"P1": 10, "P2": 1},
		MOQ:           map[ProductID]float64{"P1": 5, "P2": 200},
	}

	// 95 / 10 rounds up to 10 units, which beats the MOQ of 5
	assert.Equal(t, 10.0, supplier.EffectiveMOQ("P1"))
	assert.Equal(t, 200.0, supplier.EffectiveMOQ("P2"))
	assert.True(t, supplier.Offers("P2"))
	assert.False(t, supplier.Offers("P3"))
}

func TestSupplier_PurchaseCost(t *testing.T) {
	supplier := Supplier{
		ID:        "S1",
		Products:  []ProductID{"P1", "P2"},
		UnitCost:  map[ProductID]float64{"P1": 10, "P2": 10},
		Discounts: map[ProductID]Discount{"P1": {Threshold: 100, Rate: 0.1}},
	}

	assert.InDelta(t, 1450.0, supplier.PurchaseCost("P1", 150), 1e-9)
	assert.InDelta(t, 1500.0, supplier.PurchaseCost("P2", 150), 1e-9)
}
