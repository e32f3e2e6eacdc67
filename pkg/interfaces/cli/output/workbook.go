package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/procurement/pkg/application/dto"
)

// generateWorkbookOutput writes plan_results.xlsx with a summary sheet and
// orders and inventory sheets per strategy
func generateWorkbookOutput(results []*dto.PlanResult, config Config, w io.Writer) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for XLSX format")
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(defaultSheet, "summary"); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if err := writeSheet(f, "summary", summaryRows(results)); err != nil {
		return err
	}
	for _, r := range results {
		orders := r.Strategy.String() + " orders"
		inventory := r.Strategy.String() + " inventory"
		for _, sheet := range []string{orders, inventory} {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
			}
		}
		if err := writeSheet(f, orders, shipmentRows(r)); err != nil {
			return err
		}
		if err := writeSheet(f, inventory, inventoryRows(r)); err != nil {
			return err
		}
	}

	filename := filepath.Join(config.OutputDir, "plan_results.xlsx")
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(w, "Workbook saved to: %s\n", filename)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
	}
	return nil
}
