package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vsinha/procurement/pkg/domain/entities"
)

// WriteCSVDir writes ds as the CSV tables LoadCSVDir reads
func (l *Loader) WriteCSVDir(dir string, ds *entities.Dataset) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for name, records := range datasetTables(ds) {
		filename := filepath.Join(dir, name+".csv")
		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", filename, err)
		}
		writer := csv.NewWriter(file)
		err = writer.WriteAll(records)
		file.Close()
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}
	return nil
}

func datasetTables(ds *entities.Dataset) map[string][][]string {
	tables := map[string][][]string{
		HorizonTable: {
			headers[HorizonTable],
			{strconv.Itoa(ds.Horizon.Periods), formatSeries(ds.WarehouseCapacity)},
		},
		ProductsTable:  {headers[ProductsTable]},
		SuppliersTable: {headers[SuppliersTable]},
		OffersTable:    {headers[OffersTable]},
		DemandTable:    {headers[DemandTable]},
	}

	for _, p := range ds.Products {
		tables[ProductsTable] = append(tables[ProductsTable], []string{
			string(p.ID), p.Name, formatFloat(p.HoldingCost), strconv.Itoa(p.ShelfLife),
			formatFloat(p.OpeningStock), formatSeries(p.SafetyStock), formatSeries(p.Capacity),
		})
	}
	for _, s := range ds.Suppliers {
		tables[SuppliersTable] = append(tables[SuppliersTable], []string{
			string(s.ID), s.Name, strconv.Itoa(s.LeadTime), formatFloat(s.MinOrderValue),
		})
		for _, p := range s.Products {
			threshold, rate := "", ""
			if d, ok := s.Discounts[p]; ok {
				threshold, rate = formatFloat(d.Threshold), formatFloat(d.Rate)
			}
			tables[OffersTable] = append(tables[OffersTable], []string{
				string(s.ID), string(p), formatFloat(s.UnitCost[p]), formatFloat(s.LogisticsCost[p]),
				formatFloat(s.FixedOrderCost[p]), formatFloat(s.MOQ[p]), threshold, rate,
			})
		}
	}

	demand := append([]entities.DemandEntry(nil), ds.Demand...)
	sort.SliceStable(demand, func(i, j int) bool {
		if demand[i].ProductID != demand[j].ProductID {
			return demand[i].ProductID < demand[j].ProductID
		}
		return demand[i].Period < demand[j].Period
	})
	for _, d := range demand {
		tables[DemandTable] = append(tables[DemandTable], []string{
			string(d.ProductID), strconv.Itoa(d.Period), formatFloat(d.Quantity),
		})
	}
	return tables
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatSeries(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ";")
}
