package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Validation(t *testing.T) {
	validProduct, err := NewProduct("P1", 0.5, 3, 10)
	require.NoError(t, err, "expected valid product creation to succeed")
	assert.Equal(t, ProductID("P1"), validProduct.ID)
	assert.Equal(t, []float64{10}, validProduct.SafetyStock)
	assert.True(t, validProduct.Perishable())

	testCases := []struct {
		name        string
		id          ProductID
		holdingCost float64
		shelfLife   int
		safetyStock float64
		expectError string
	}{
		{"empty id", "", 1, 0, 0, "product id cannot be empty"},
		{"negative holding cost", "P", -1, 0, 0, "holding cost cannot be negative, got -1"},
		{"negative shelf life", "P", 1, -2, 0, "shelf life cannot be negative, got -2"},
		{"negative safety stock", "P", 1, 0, -5, "safety stock cannot be negative, got -5"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProduct(tc.id, tc.holdingCost, tc.shelfLife, tc.safetyStock)
			require.Error(t, err)
			assert.Equal(t, tc.expectError, err.Error())
		})
	}
}

func TestProduct_NonPerishableWithoutSafetyStock(t *testing.T) {
	product, err := NewProduct("P2", 0, 0, 0)
	require.NoError(t, err)
	assert.False(t, product.Perishable())
	assert.Empty(t, product.SafetyStock)
}

func TestHorizon(t *testing.T) {
	h := Horizon{Periods: 4}
	assert.True(t, h.Contains(0))
	assert.True(t, h.Contains(3))
	assert.False(t, h.Contains(4))
	assert.False(t, h.Contains(-1))
	assert.Equal(t, 3, h.Last())
}

func TestDataset_WithDemandScaled(t *testing.T) {
	ds := &Dataset{
		Horizon:  Horizon{Periods: 2},
		Products: []Product{{ID: "P1"}},
		Demand: []DemandEntry{
			{ProductID: "P1", Period: 0, Quantity: 10},
			{ProductID: "P1", Period: 1, Quantity: 20},
		},
	}

	scaled := ds.WithDemandScaled(1.5)

	assert.InDelta(t, 45.0, scaled.TotalDemand("P1"), 1e-9)
	assert.InDelta(t, 30.0, ds.TotalDemand("P1"), 1e-9, "original dataset must stay untouched")
}
