package lookup

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

func twoSupplierDataset() *entities.Dataset {
	return &entities.Dataset{
		Horizon: entities.Horizon{Periods: 4},
		Products: []entities.Product{
			{ID: "P2", HoldingCost: 2, ShelfLife: 2},
			{ID: "P1", HoldingCost: 1, SafetyStock: []float64{3}, Capacity: []float64{10, 20, 30, 40}},
		},
		Suppliers: []entities.Supplier{
			{
				ID:            "S2",
				LeadTime:      2,
				MinOrderValue: 95,
				Products:      []entities.ProductID{"P1"},
				UnitCost:      map[entities.ProductID]float64{"P1": 10},
			},
			{
				ID:             "S1",
				LeadTime:       0,
				Products:       []entities.ProductID{"P1", "P2"},
				UnitCost:       map[entities.ProductID]float64{"P1": 12, "P2": 5},
				LogisticsCost:  map[entities.ProductID]float64{"P1": 1},
				FixedOrderCost: map[entities.ProductID]float64{"P2": 7},
				MOQ:            map[entities.ProductID]float64{"P1": 4},
				Discounts:      map[entities.ProductID]entities.Discount{"P2": {Threshold: 10, Rate: 0.5}},
			},
		},
		Demand: []entities.DemandEntry{
			{ProductID: "P1", Period: 1, Quantity: 6},
			{ProductID: "P1", Period: 3, Quantity: 4},
			{ProductID: "P2", Period: 2, Quantity: 9},
		},
		WarehouseCapacity: []float64{50},
	}
}

func TestBuild_IndexesInIDOrder(t *testing.T) {
	l, err := Build(twoSupplierDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)

	assert.Equal(t, []entities.ProductID{"P1", "P2"}, l.ProductIDs)
	assert.Equal(t, []entities.SupplierID{"S1", "S2"}, l.SupplierIDs)

	require.Len(t, l.Offers, 3)
	assert.Equal(t, entities.SupplierID("S1"), l.Offers[0].SupplierID)
	assert.Equal(t, entities.SupplierID("S2"), l.Offers[1].SupplierID)
	assert.Equal(t, entities.ProductID("P2"), l.Offers[2].ProductID)
	for i, offer := range l.Offers {
		assert.Equal(t, i, offer.Index)
	}

	p1, ok := l.ProductIndex("P1")
	require.True(t, ok)
	offers := l.OffersFor(p1)
	require.Len(t, offers, 2)
	assert.Equal(t, entities.SupplierID("S1"), offers[0].SupplierID)
}

func TestBuild_Matrices(t *testing.T) {
	l, err := Build(twoSupplierDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 6, 0, 4}, l.Demand[0])
	assert.Equal(t, []float64{0, 0, 9, 0}, l.Demand[1])
	assert.Equal(t, []float64{3, 3, 3, 3}, l.SafetyStock[0])
	assert.Equal(t, []float64{0, 0, 0, 0}, l.SafetyStock[1])
	assert.Equal(t, []float64{10, 20, 30, 40}, l.Capacity[0])
	assert.True(t, math.IsInf(l.Capacity[1][2], 1))
	assert.Equal(t, []float64{50, 50, 50, 50}, l.Warehouse)
	assert.True(t, l.HasWarehouseLimit())
	assert.Equal(t, 10.0, l.TotalDemand(0, 0))
	assert.Equal(t, 4.0, l.TotalDemand(0, 2))
	assert.Equal(t, 3.0, l.MaxSafetyStock(0))
}

func TestBuild_OfferTerms(t *testing.T) {
	l, err := Build(twoSupplierDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)

	s2, ok := l.Offer("P1", "S2")
	require.True(t, ok)
	assert.Equal(t, 10.0, s2.MOQ, "minimum order value converts to units")
	assert.Equal(t, []int{0, 1}, s2.OrderPeriods)

	s1, ok := l.Offer("P2", "S1")
	require.True(t, ok)
	require.NotNil(t, s1.Discount)
	assert.Equal(t, []int{0, 1, 2, 3}, s1.OrderPeriods)
	// 10*5 + 10*2.5 + fixed 7
	assert.InDelta(t, 82.0, s1.OrderCost(20), 1e-9)
	assert.Equal(t, 0.0, s1.OrderCost(0))

	_, ok = l.Offer("P2", "S2")
	assert.False(t, ok)
}

func TestArrivalOf_RejectPolicy(t *testing.T) {
	l, err := Build(twoSupplierDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)
	offer, _ := l.Offer("P1", "S2")

	arrival, late, ok := l.ArrivalOf(offer, 1)
	assert.True(t, ok)
	assert.False(t, late)
	assert.Equal(t, 3, arrival)

	_, _, ok = l.ArrivalOf(offer, 2)
	assert.False(t, ok)

	_, ok = l.OrderPeriodFor(offer, 1)
	assert.False(t, ok)
	o, ok := l.OrderPeriodFor(offer, 3)
	assert.True(t, ok)
	assert.Equal(t, 1, o)
}

func TestArrivalOf_ClipPolicy(t *testing.T) {
	l, err := Build(twoSupplierDataset(), entities.ClipLateArrivals)
	require.NoError(t, err)
	offer, _ := l.Offer("P1", "S2")

	arrival, late, ok := l.ArrivalOf(offer, 3)
	assert.True(t, ok)
	assert.True(t, late)
	assert.Equal(t, 3, arrival)
	assert.Equal(t, []int{0, 1, 2, 3}, offer.OrderPeriods)

	o, ok := l.OrderPeriodFor(offer, 3)
	assert.True(t, ok)
	assert.Equal(t, 1, o, "the on-time order period is preferred")
}

func TestArrivalOf_LeadTimeBeyondHorizon(t *testing.T) {
	ds := twoSupplierDataset()
	ds.Suppliers[0].LeadTime = 4

	l, err := Build(ds, entities.RejectLateArrivals)
	require.NoError(t, err)
	offer, _ := l.Offer("P1", "S2")
	assert.Empty(t, offer.OrderPeriods)

	l, err = Build(ds, entities.ClipLateArrivals)
	require.NoError(t, err)
	offer, _ = l.Offer("P1", "S2")
	o, ok := l.OrderPeriodFor(offer, 3)
	assert.True(t, ok)
	assert.Equal(t, 0, o)
	_, ok = l.OrderPeriodFor(offer, 2)
	assert.False(t, ok)
}

func TestShelfWindow(t *testing.T) {
	l, err := Build(twoSupplierDataset(), entities.RejectLateArrivals)
	require.NoError(t, err)

	assert.Equal(t, 0, l.ShelfWindowStart(0, 3), "non-perishable product keeps everything")
	assert.Equal(t, 0, l.ShelfWindowStart(1, 1))
	assert.Equal(t, 2, l.ShelfWindowStart(1, 3))
	assert.True(t, l.OpeningStockUsable(1, 1))
	assert.False(t, l.OpeningStockUsable(1, 2))
}

func TestBuild_DataInconsistency(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ds *entities.Dataset)
	}{
		{"missing unit cost", func(ds *entities.Dataset) { delete(ds.Suppliers[1].UnitCost, "P2") }},
		{"unknown product", func(ds *entities.Dataset) {
			ds.Suppliers[0].Products = append(ds.Suppliers[0].Products, "P9")
		}},
		{"ragged capacity", func(ds *entities.Dataset) { ds.Products[1].Capacity = []float64{1, 2} }},
		{"ragged warehouse", func(ds *entities.Dataset) { ds.WarehouseCapacity = []float64{1, 2} }},
		{"demand outside horizon", func(ds *entities.Dataset) { ds.Demand[0].Period = 4 }},
		{"duplicate supplier", func(ds *entities.Dataset) { ds.Suppliers[1].ID = "S2" }},
		{"negative lead time", func(ds *entities.Dataset) { ds.Suppliers[0].LeadTime = -1 }},
		{"priced but not offered", func(ds *entities.Dataset) { ds.Suppliers[0].UnitCost["P2"] = 3 }},
		{"empty horizon", func(ds *entities.Dataset) { ds.Horizon.Periods = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := twoSupplierDataset()
			tt.mutate(ds)

			_, err := Build(ds, entities.RejectLateArrivals)
			assert.ErrorIs(t, err, entities.ErrDataInconsistency)
		})
	}
}
