package testing

import (
	"github.com/vsinha/procurement/pkg/domain/entities"
)

// mustCreateProduct is a helper for tests - panics on validation error
func mustCreateProduct(id string, holdingCost float64, shelfLife int, safetyStock float64) entities.Product {
	product, err := entities.NewProduct(entities.ProductID(id), holdingCost, shelfLife, safetyStock)
	if err != nil {
		panic(err)
	}
	return *product
}

// supplier builds a single-product supplier with the given terms
func supplier(id, product string, leadTime int, unitCost, moq float64) entities.Supplier {
	pid := entities.ProductID(product)
	return entities.Supplier{
		ID:             entities.SupplierID(id),
		LeadTime:       leadTime,
		Products:       []entities.ProductID{pid},
		UnitCost:       map[entities.ProductID]float64{pid: unitCost},
		LogisticsCost:  map[entities.ProductID]float64{},
		FixedOrderCost: map[entities.ProductID]float64{},
		MOQ:            map[entities.ProductID]float64{pid: moq},
		Discounts:      map[entities.ProductID]entities.Discount{},
	}
}

func demandSeries(product string, quantities ...float64) []entities.DemandEntry {
	entries := make([]entities.DemandEntry, 0, len(quantities))
	for t, q := range quantities {
		if q == 0 {
			continue
		}
		entries = append(entries, entities.DemandEntry{ProductID: entities.ProductID(product), Period: t, Quantity: q})
	}
	return entries
}

// BuildDominanceDataset has a closed-form optimum of 220: S2 covers each
// period's 10 units, while a greedy pick of the cheaper S1 is forced up to its
// MOQ of 50 and costs 500 plus 70 holding.
func BuildDominanceDataset() *entities.Dataset {
	p1 := mustCreateProduct("P1", 1, 0, 0)
	p1.Capacity = []float64{100}
	return &entities.Dataset{
		Horizon:  entities.Horizon{Periods: 2},
		Products: []entities.Product{p1},
		Suppliers: []entities.Supplier{
			supplier("S1", "P1", 0, 10, 50),
			supplier("S2", "P1", 0, 11, 0),
		},
		Demand: demandSeries("P1", 10, 10),
	}
}

// BuildLeadTimeDataset needs 20 units in period 1 from a supplier with lead
// time 1, so the only plan orders 20 in period 0 for 20 * (10 + 2) = 240.
func BuildLeadTimeDataset() *entities.Dataset {
	s1 := supplier("S1", "P1", 1, 10, 5)
	s1.LogisticsCost["P1"] = 2
	return &entities.Dataset{
		Horizon:   entities.Horizon{Periods: 2},
		Products:  []entities.Product{mustCreateProduct("P1", 1, 0, 0)},
		Suppliers: []entities.Supplier{s1},
		Demand:    demandSeries("P1", 0, 20),
	}
}

// BuildDiscountDataset orders 150 units above a threshold of 100 at 10% off:
// 100 * 10 + 50 * 9 = 1450.
func BuildDiscountDataset() *entities.Dataset {
	s1 := supplier("S1", "P1", 0, 10, 0)
	s1.Discounts["P1"] = entities.Discount{Threshold: 100, Rate: 0.1}
	return &entities.Dataset{
		Horizon:   entities.Horizon{Periods: 1},
		Products:  []entities.Product{mustCreateProduct("P1", 0, 0, 0)},
		Suppliers: []entities.Supplier{s1},
		Demand:    demandSeries("P1", 150),
	}
}

// BuildPerishableDataset has a fixed order cost that favours one big order,
// but a shelf life of 2 periods forces a second order: the optimum orders 20
// in periods 0 and 2 for 40 + 10 fixed + 2 holding = 52.
func BuildPerishableDataset() *entities.Dataset {
	s1 := supplier("S1", "P1", 0, 1, 0)
	s1.FixedOrderCost["P1"] = 5
	return &entities.Dataset{
		Horizon:   entities.Horizon{Periods: 4},
		Products:  []entities.Product{mustCreateProduct("P1", 0.1, 2, 0)},
		Suppliers: []entities.Supplier{s1},
		Demand:    demandSeries("P1", 10, 10, 10, 10),
	}
}

// BuildLongLeadDataset offers a cheap supplier whose lead time spans the whole
// horizon next to a dearer one that can deliver.
func BuildLongLeadDataset() *entities.Dataset {
	return &entities.Dataset{
		Horizon:  entities.Horizon{Periods: 3},
		Products: []entities.Product{mustCreateProduct("P1", 1, 0, 0)},
		Suppliers: []entities.Supplier{
			supplier("FAR", "P1", 3, 1, 0),
			supplier("NEAR", "P1", 0, 5, 0),
		},
		Demand: demandSeries("P1", 0, 4, 4),
	}
}

// BuildOverCapacityDataset asks for more safety stock than the shelf holds
func BuildOverCapacityDataset() *entities.Dataset {
	p1 := mustCreateProduct("P1", 1, 0, 50)
	p1.Capacity = []float64{10}
	return &entities.Dataset{
		Horizon:   entities.Horizon{Periods: 2},
		Products:  []entities.Product{p1},
		Suppliers: []entities.Supplier{supplier("S1", "P1", 0, 1, 0)},
		Demand:    demandSeries("P1", 5, 5),
	}
}

// BuildZeroDemandDataset has suppliers and products but nothing to buy
func BuildZeroDemandDataset() *entities.Dataset {
	ds := BuildDominanceDataset()
	ds.Demand = nil
	return ds
}

// BuildWarehouseDataset runs two products with safety stock through a shared
// warehouse capacity.
func BuildWarehouseDataset() *entities.Dataset {
	p1 := mustCreateProduct("P1", 0.5, 0, 5)
	p2 := mustCreateProduct("P2", 0.5, 0, 5)
	s1 := supplier("S1", "P1", 1, 4, 10)
	s1.Products = append(s1.Products, "P2")
	s1.UnitCost["P2"] = 6
	s1.MOQ["P2"] = 10
	s1.FixedOrderCost["P1"] = 3
	s1.FixedOrderCost["P2"] = 3
	s2 := supplier("S2", "P2", 0, 7, 0)
	s2.LogisticsCost["P2"] = 0.5

	ds := &entities.Dataset{
		Horizon:   entities.Horizon{Periods: 4},
		Products:  []entities.Product{p1, p2},
		Suppliers: []entities.Supplier{s1, s2},
		Demand: append(
			demandSeries("P1", 0, 6, 6, 6),
			demandSeries("P2", 3, 3, 3, 3)...,
		),
		WarehouseCapacity: []float64{40},
	}
	ds.Products[0].OpeningStock = 5
	ds.Products[1].OpeningStock = 8
	return ds
}
