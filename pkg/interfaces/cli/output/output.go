package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/application/services/orchestration"
	"github.com/vsinha/procurement/pkg/domain/entities"
)

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
}

// Formats lists the supported output formats
var Formats = []string{"text", "json", "csv", "xlsx", "svg"}

// Generate writes results in the configured format. Text and JSON go to w
// unless an output directory is set; the file formats require one.
func Generate(results []*dto.PlanResult, config Config, w io.Writer) error {
	switch config.Format {
	case "text":
		return generateTextOutput(results, config, w)
	case "json":
		return generateJSONOutput(results, config, w)
	case "csv":
		return generateCSVOutput(results, config, w)
	case "xlsx":
		return generateWorkbookOutput(results, config, w)
	case "svg":
		return generateSVGOutput(results, config, w)
	default:
		return fmt.Errorf("unsupported output format: %s (expected one of %s)", config.Format, strings.Join(Formats, ", "))
	}
}

// generateTextOutput creates human-readable text output
func generateTextOutput(results []*dto.PlanResult, config Config, w io.Writer) error {
	var b strings.Builder

	if len(results) > 1 {
		writeComparison(&b, results)
	}
	for _, result := range results {
		writeResult(&b, result)
	}

	if config.OutputDir == "" {
		_, err := io.WriteString(w, b.String())
		return err
	}
	filename := filepath.Join(config.OutputDir, "plan_results.txt")
	if err := writeFile(filename, []byte(b.String())); err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(w, "Results saved to: %s\n", filename)
	}
	return nil
}

func writeComparison(b *strings.Builder, results []*dto.PlanResult) {
	fmt.Fprintf(b, "Strategy Comparison\n")
	fmt.Fprintf(b, "===================\n\n")
	fmt.Fprintf(b, "%-16s %-18s %12s %8s %10s\n", "Strategy", "Status", "Total Cost", "Orders", "Service")
	fmt.Fprintf(b, "%-16s %-18s %12s %8s %10s\n",
		"----------------", "------------------", "------------", "--------", "----------")
	for _, r := range results {
		fmt.Fprintf(b, "%-16s %-18s %12s %8d %9.1f%%\n",
			r.Strategy, r.Status, r.Costs.Total.StringFixed(2), r.KPIs.OrderCount, r.KPIs.ServiceLevel*100)
	}
	comparison := dto.ComparisonResult{Results: results}
	if cheapest, ok := comparison.Cheapest(); ok {
		fmt.Fprintf(b, "\nCheapest: %s\n", cheapest.Strategy)
	}
	fmt.Fprintln(b)
}

func writeResult(b *strings.Builder, r *dto.PlanResult) {
	title := fmt.Sprintf("%s plan (%s)", r.Strategy, r.RunID)
	fmt.Fprintf(b, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	fmt.Fprintf(b, "%s\n\n", orchestration.Summary(r))

	if len(r.Shipments) > 0 {
		fmt.Fprintf(b, "Orders:\n")
		fmt.Fprintf(b, "%-12s %-12s %8s %8s %12s\n", "Product", "Supplier", "Ordered", "Arrives", "Quantity")
		fmt.Fprintf(b, "%-12s %-12s %8s %8s %12s\n", "------------", "------------", "--------", "--------", "------------")
		for _, s := range r.Shipments {
			late := ""
			if s.Late {
				late = " (late)"
			}
			fmt.Fprintf(b, "%-12s %-12s %8d %8d %12s%s\n",
				s.ProductID, s.SupplierID, s.OrderPeriod, s.ArrivalPeriod, formatQty(s.Quantity), late)
		}
		fmt.Fprintln(b)
	}

	if len(r.Inventory) > 0 {
		fmt.Fprintf(b, "Inventory:\n")
		for _, product := range sortedProducts(r.Inventory) {
			levels := make([]string, len(r.Inventory[product]))
			for t, v := range r.Inventory[product] {
				levels[t] = formatQty(v)
			}
			fmt.Fprintf(b, "  %-12s %s\n", product, strings.Join(levels, " "))
		}
		fmt.Fprintln(b)
	}

	if r.HasPlan() {
		c := r.Costs
		fmt.Fprintf(b, "Costs: procurement %s, logistics %s, holding %s, penalty %s, total %s (discounts saved %s)\n",
			c.Procurement.StringFixed(2), c.Logistics.StringFixed(2), c.Holding.StringFixed(2),
			c.Penalty.StringFixed(2), c.Total.StringFixed(2), c.Discount.StringFixed(2))
		fmt.Fprintf(b, "KPIs: service level %.1f%%, turnover %.2f, obsolescence %s, late orders %d\n\n",
			r.KPIs.ServiceLevel*100, r.KPIs.InventoryTurnover, formatQty(r.KPIs.Obsolescence), r.KPIs.LateOrders)
	}

	if len(r.Shortfalls) > 0 {
		fmt.Fprintf(b, "Safety stock shortfalls:\n")
		for _, s := range r.Shortfalls {
			fmt.Fprintf(b, "  %-12s period %d: %s\n", s.ProductID, s.Period, formatQty(s.Quantity))
		}
		fmt.Fprintln(b)
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(b, "note: %s\n", d)
	}
	if len(r.Diagnostics) > 0 {
		fmt.Fprintln(b)
	}
}

// generateJSONOutput writes a single result as an object and several as a comparison
func generateJSONOutput(results []*dto.PlanResult, config Config, w io.Writer) error {
	var payload any = dto.ComparisonResult{Results: results}
	if len(results) == 1 {
		payload = results[0]
	}
	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		_, err := fmt.Fprintln(w, string(jsonData))
		return err
	}
	filename := filepath.Join(config.OutputDir, "plan_results.json")
	if err := writeFile(filename, jsonData); err != nil {
		return err
	}
	if config.Verbose {
		fmt.Fprintf(w, "JSON results saved to: %s\n", filename)
	}
	return nil
}

// generateCSVOutput writes summary.csv plus orders and inventory per strategy
func generateCSVOutput(results []*dto.PlanResult, config Config, w io.Writer) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for CSV format")
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := map[string][][]string{"summary.csv": summaryRows(results)}
	for _, r := range results {
		files[r.Strategy.String()+"_orders.csv"] = shipmentRows(r)
		files[r.Strategy.String()+"_inventory.csv"] = inventoryRows(r)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		filename := filepath.Join(config.OutputDir, name)
		if err := writeCSV(filename, files[name]); err != nil {
			return err
		}
		if config.Verbose {
			fmt.Fprintf(w, "CSV saved to: %s\n", filename)
		}
	}
	return nil
}

// generateSVGOutput writes one shipment chart per strategy
func generateSVGOutput(results []*dto.PlanResult, config Config, w io.Writer) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for SVG format")
	}
	for _, r := range results {
		chart := NewGanttChart(r, periodsOf(r))
		filename := filepath.Join(config.OutputDir, r.Strategy.String()+"_shipments.svg")
		if err := writeFile(filename, []byte(chart.GenerateSVG(r))); err != nil {
			return err
		}
		if config.Verbose {
			fmt.Fprintf(w, "Chart saved to: %s\n", filename)
		}
	}
	return nil
}

func summaryRows(results []*dto.PlanResult) [][]string {
	rows := [][]string{{"run_id", "strategy", "status", "procurement", "discount", "logistics", "holding",
		"penalty", "total", "service_level", "inventory_turnover", "obsolescence", "orders", "late_orders"}}
	for _, r := range results {
		c := r.Costs
		rows = append(rows, []string{
			r.RunID, r.Strategy.String(), r.Status.String(),
			c.Procurement.String(), c.Discount.String(), c.Logistics.String(), c.Holding.String(),
			c.Penalty.String(), c.Total.String(),
			formatQty(r.KPIs.ServiceLevel), formatQty(r.KPIs.InventoryTurnover), formatQty(r.KPIs.Obsolescence),
			strconv.Itoa(r.KPIs.OrderCount), strconv.Itoa(r.KPIs.LateOrders),
		})
	}
	return rows
}

func shipmentRows(r *dto.PlanResult) [][]string {
	rows := [][]string{{"product_id", "supplier_id", "order_period", "arrival_period", "quantity", "late"}}
	for _, s := range r.Shipments {
		rows = append(rows, []string{
			string(s.ProductID), string(s.SupplierID), strconv.Itoa(s.OrderPeriod), strconv.Itoa(s.ArrivalPeriod),
			formatQty(s.Quantity), strconv.FormatBool(s.Late),
		})
	}
	return rows
}

func inventoryRows(r *dto.PlanResult) [][]string {
	rows := [][]string{{"product_id", "period", "inventory"}}
	for _, product := range sortedProducts(r.Inventory) {
		for t, v := range r.Inventory[product] {
			rows = append(rows, []string{string(product), strconv.Itoa(t), formatQty(v)})
		}
	}
	return rows
}

func writeCSV(filename string, rows [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func writeFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

func sortedProducts(inventory map[entities.ProductID][]float64) []entities.ProductID {
	products := make([]entities.ProductID, 0, len(inventory))
	for p := range inventory {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	return products
}

// periodsOf recovers the horizon length from a result
func periodsOf(r *dto.PlanResult) int {
	periods := 0
	for _, series := range r.Inventory {
		periods = max(periods, len(series))
	}
	for _, s := range r.Shipments {
		periods = max(periods, s.ArrivalPeriod+1)
	}
	return periods
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
