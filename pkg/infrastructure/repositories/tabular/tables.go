package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// Table names double as CSV file stems and workbook sheet names
const (
	HorizonTable   = "horizon"
	ProductsTable  = "products"
	SuppliersTable = "suppliers"
	OffersTable    = "offers"
	DemandTable    = "demand"
)

var headers = map[string][]string{
	HorizonTable:   {"periods", "warehouse_capacity"},
	ProductsTable:  {"id", "name", "holding_cost", "shelf_life", "opening_stock", "safety_stock", "capacity"},
	SuppliersTable: {"id", "name", "lead_time", "min_order_value"},
	OffersTable: {"supplier_id", "product_id", "unit_cost", "logistics_cost", "fixed_order_cost", "moq",
		"discount_threshold", "discount_rate"},
	DemandTable: {"product_id", "period", "quantity"},
}

// requiredTables must be present; a missing demand table means zero demand
var requiredTables = []string{HorizonTable, ProductsTable, SuppliersTable, OffersTable}

// buildDataset assembles a dataset from header-first record tables
func buildDataset(tables map[string][][]string) (*entities.Dataset, error) {
	for _, name := range requiredTables {
		if _, ok := tables[name]; !ok {
			return nil, fmt.Errorf("missing %s table", name)
		}
	}
	for name, records := range tables {
		expected, ok := headers[name]
		if !ok {
			continue
		}
		if len(records) == 0 || !validateHeader(records[0], expected) {
			var got []string
			if len(records) > 0 {
				got = records[0]
			}
			return nil, fmt.Errorf("%s header mismatch. Expected: %v, Got: %v", name, expected, got)
		}
		for i, record := range records[1:] {
			if len(record) != len(expected) {
				return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", name, i+2, len(expected), len(record))
			}
		}
	}

	ds := &entities.Dataset{}
	if err := parseHorizon(ds, tables[HorizonTable]); err != nil {
		return nil, err
	}

	// Step 1: products
	for i, record := range tables[ProductsTable][1:] {
		product, err := parseProduct(record)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", ProductsTable, i+2, err)
		}
		ds.Products = append(ds.Products, product)
	}

	// Step 2: suppliers, then their per-product offers
	index := make(map[entities.SupplierID]int)
	for i, record := range tables[SuppliersTable][1:] {
		supplier, err := parseSupplier(record)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SuppliersTable, i+2, err)
		}
		index[supplier.ID] = len(ds.Suppliers)
		ds.Suppliers = append(ds.Suppliers, supplier)
	}
	for i, record := range tables[OffersTable][1:] {
		pos, ok := index[entities.SupplierID(record[0])]
		if !ok {
			return nil, fmt.Errorf("%s row %d: unknown supplier %s", OffersTable, i+2, record[0])
		}
		if err := parseOffer(&ds.Suppliers[pos], record); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", OffersTable, i+2, err)
		}
	}

	// Step 3: demand
	if records, ok := tables[DemandTable]; ok {
		for i, record := range records[1:] {
			entry, err := parseDemand(record)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: %w", DemandTable, i+2, err)
			}
			ds.Demand = append(ds.Demand, entry)
		}
	}
	return ds, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range actual {
		if strings.TrimSpace(strings.ToLower(col)) != expected[i] {
			return false
		}
	}
	return true
}

func parseHorizon(ds *entities.Dataset, records [][]string) error {
	if len(records) != 2 {
		return fmt.Errorf("%s must have a header and exactly one data row, got %d rows", HorizonTable, len(records))
	}
	periods, err := parseInt(records[1][0], "periods")
	if err != nil {
		return fmt.Errorf("%s row 2: %w", HorizonTable, err)
	}
	warehouse, err := parseSeries(records[1][1], "warehouse_capacity")
	if err != nil {
		return fmt.Errorf("%s row 2: %w", HorizonTable, err)
	}
	ds.Horizon = entities.Horizon{Periods: periods}
	ds.WarehouseCapacity = warehouse
	return nil
}

func parseProduct(record []string) (entities.Product, error) {
	holdingCost, err := parseFloat(record[2], "holding_cost")
	if err != nil {
		return entities.Product{}, err
	}
	shelfLife, err := parseInt(record[3], "shelf_life")
	if err != nil {
		return entities.Product{}, err
	}
	openingStock, err := parseFloat(record[4], "opening_stock")
	if err != nil {
		return entities.Product{}, err
	}
	safetyStock, err := parseSeries(record[5], "safety_stock")
	if err != nil {
		return entities.Product{}, err
	}
	capacity, err := parseSeries(record[6], "capacity")
	if err != nil {
		return entities.Product{}, err
	}

	return entities.Product{
		ID:           entities.ProductID(strings.TrimSpace(record[0])),
		Name:         record[1],
		HoldingCost:  holdingCost,
		ShelfLife:    shelfLife,
		OpeningStock: openingStock,
		SafetyStock:  safetyStock,
		Capacity:     capacity,
	}, nil
}

func parseSupplier(record []string) (entities.Supplier, error) {
	leadTime, err := parseInt(record[2], "lead_time")
	if err != nil {
		return entities.Supplier{}, err
	}
	minOrderValue, err := parseFloat(record[3], "min_order_value")
	if err != nil {
		return entities.Supplier{}, err
	}

	return entities.Supplier{
		ID:             entities.SupplierID(strings.TrimSpace(record[0])),
		Name:           record[1],
		LeadTime:       leadTime,
		MinOrderValue:  minOrderValue,
		UnitCost:       map[entities.ProductID]float64{},
		LogisticsCost:  map[entities.ProductID]float64{},
		FixedOrderCost: map[entities.ProductID]float64{},
		MOQ:            map[entities.ProductID]float64{},
		Discounts:      map[entities.ProductID]entities.Discount{},
	}, nil
}

func parseOffer(supplier *entities.Supplier, record []string) error {
	product := entities.ProductID(strings.TrimSpace(record[1]))

	values := make([]float64, 0, 4)
	for i, column := range []string{"unit_cost", "logistics_cost", "fixed_order_cost", "moq"} {
		v, err := parseFloat(record[i+2], column)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	supplier.Products = append(supplier.Products, product)
	supplier.UnitCost[product] = values[0]
	supplier.LogisticsCost[product] = values[1]
	supplier.FixedOrderCost[product] = values[2]
	supplier.MOQ[product] = values[3]

	if strings.TrimSpace(record[6]) == "" && strings.TrimSpace(record[7]) == "" {
		return nil
	}
	threshold, err := parseFloat(record[6], "discount_threshold")
	if err != nil {
		return err
	}
	rate, err := parseFloat(record[7], "discount_rate")
	if err != nil {
		return err
	}
	supplier.Discounts[product] = entities.Discount{Threshold: threshold, Rate: rate}
	return nil
}

func parseDemand(record []string) (entities.DemandEntry, error) {
	period, err := parseInt(record[1], "period")
	if err != nil {
		return entities.DemandEntry{}, err
	}
	quantity, err := parseFloat(record[2], "quantity")
	if err != nil {
		return entities.DemandEntry{}, err
	}
	return entities.DemandEntry{
		ProductID: entities.ProductID(strings.TrimSpace(record[0])),
		Period:    period,
		Quantity:  quantity,
	}, nil
}

// parseFloat treats an empty cell as zero
func parseFloat(s, column string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", column, s)
	}
	return v, nil
}

func parseInt(s, column string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", column, s)
	}
	return v, nil
}

// parseSeries reads an empty cell, a single value or semicolon-separated
// per-period values.
func parseSeries(s, column string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	series := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", column, s)
		}
		series = append(series, v)
	}
	return series, nil
}
