package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/repositories/tabular"
)

// GenerateConfig holds configuration for dataset generation
type GenerateConfig struct {
	Products  int     // Number of products
	Suppliers int     // Number of suppliers
	Periods   int     // Planning horizon length
	Coverage  float64 // Share of products each supplier offers, in (0, 1]
	OutputDir string  // Output directory for generated files
	Format    string  // csv or json
	Seed      int64   // Random seed for reproducible generation
	Help      bool
	Verbose   bool
}

// GenerateCommand writes random datasets for trying the planner out
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig, out io.Writer) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.Coverage <= 0 || config.Coverage > 1 {
		config.Coverage = 0.5
	}
	if config.Format == "" {
		config.Format = "csv"
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		out:    out,
	}
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(_ context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if err := cmd.validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "Generating %d products, %d suppliers over %d periods\n",
			cmd.config.Products, cmd.config.Suppliers, cmd.config.Periods)
	}
	ds := cmd.Generate()

	switch cmd.config.Format {
	case "csv":
		if err := tabular.NewLoader().WriteCSVDir(cmd.config.OutputDir, ds); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
	case "json":
		data, err := json.MarshalIndent(ds, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal dataset: %w", err)
		}
		if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(filepath.Join(cmd.config.OutputDir, "dataset.json"), data, 0644); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "Dataset generated in %s\n", cmd.config.OutputDir)
	}
	return nil
}

func (cmd *GenerateCommand) validate() error {
	switch {
	case cmd.config.Products < 1:
		return fmt.Errorf("-products must be at least 1")
	case cmd.config.Suppliers < 1:
		return fmt.Errorf("-suppliers must be at least 1")
	case cmd.config.Periods < 1:
		return fmt.Errorf("-periods must be at least 1")
	case cmd.config.OutputDir == "":
		return fmt.Errorf("-output is required")
	case cmd.config.Format != "csv" && cmd.config.Format != "json":
		return fmt.Errorf("unsupported dataset format: %s (expected csv or json)", cmd.config.Format)
	}
	return nil
}

// Generate builds the dataset. Every product gets at least one supplier that
// can deliver within the horizon, and capacities leave room for peak demand
// plus the largest minimum order. Perishable products carry no safety stock,
// opening stock or minimum order, so nothing forces stock to outlive its
// shelf life. Discounts and warehouse limits can still make a dataset
// infeasible for the greedy strategy.
func (cmd *GenerateCommand) Generate() *entities.Dataset {
	periods := cmd.config.Periods
	ds := &entities.Dataset{Horizon: entities.Horizon{Periods: periods}}

	// Step 1: products and their demand
	var totalPeak float64
	for i := 0; i < cmd.config.Products; i++ {
		id := entities.ProductID(fmt.Sprintf("P%03d", i+1))
		base := float64(10 + cmd.rand.Intn(90))

		var peak float64
		for t := 0; t < periods; t++ {
			q := math.Round(base * (0.5 + cmd.rand.Float64()))
			if cmd.rand.Float64() < 0.15 {
				continue
			}
			ds.Demand = append(ds.Demand, entities.DemandEntry{ProductID: id, Period: t, Quantity: q})
			peak = math.Max(peak, q)
		}

		product := entities.Product{
			ID:          id,
			Name:        fmt.Sprintf("Product %d", i+1),
			HoldingCost: math.Round((0.1+cmd.rand.Float64())*100) / 100,
		}
		var safety float64
		if cmd.rand.Float64() < 0.2 {
			product.ShelfLife = 2 + cmd.rand.Intn(3)
		} else {
			product.OpeningStock = math.Round(base * cmd.rand.Float64())
			safety = math.Round(base * 0.2 * cmd.rand.Float64())
		}
		if safety > 0 {
			product.SafetyStock = []float64{safety}
		}
		product.Capacity = []float64{math.Ceil(4*(peak+safety) + product.OpeningStock + maxGeneratedMOQ)}
		totalPeak += product.Capacity[0]
		ds.Products = append(ds.Products, product)
	}
	if cmd.rand.Float64() < 0.5 {
		ds.WarehouseCapacity = []float64{math.Ceil(totalPeak * 0.8)}
	}

	// Step 2: suppliers
	for j := 0; j < cmd.config.Suppliers; j++ {
		ds.Suppliers = append(ds.Suppliers, entities.Supplier{
			ID:             entities.SupplierID(fmt.Sprintf("S%02d", j+1)),
			Name:           fmt.Sprintf("Supplier %d", j+1),
			LeadTime:       cmd.rand.Intn(max(periods/3, 1)),
			UnitCost:       map[entities.ProductID]float64{},
			LogisticsCost:  map[entities.ProductID]float64{},
			FixedOrderCost: map[entities.ProductID]float64{},
			MOQ:            map[entities.ProductID]float64{},
			Discounts:      map[entities.ProductID]entities.Discount{},
		})
	}

	// Step 3: offers, with a zero-lead fallback supplier per product
	for i := range ds.Products {
		id := ds.Products[i].ID
		perishable := ds.Products[i].ShelfLife > 0
		listCost := float64(5 + cmd.rand.Intn(45))
		offered := false
		for j := range ds.Suppliers {
			if cmd.rand.Float64() >= cmd.config.Coverage {
				continue
			}
			cmd.addOffer(&ds.Suppliers[j], id, listCost, perishable)
			offered = offered || ds.Suppliers[j].LeadTime == 0
		}
		if !offered {
			fallback := &ds.Suppliers[cmd.rand.Intn(len(ds.Suppliers))]
			fallback.LeadTime = 0
			if !fallback.Offers(id) {
				cmd.addOffer(fallback, id, listCost, perishable)
			}
		}
	}
	return ds
}

// maxGeneratedMOQ is the largest minimum order addOffer draws
const maxGeneratedMOQ = 30

func (cmd *GenerateCommand) addOffer(s *entities.Supplier, product entities.ProductID, listCost float64, perishable bool) {
	s.Products = append(s.Products, product)
	s.UnitCost[product] = math.Round(listCost*(0.8+0.4*cmd.rand.Float64())*100) / 100
	s.LogisticsCost[product] = math.Round(cmd.rand.Float64()*100) / 100

	switch roll := cmd.rand.Float64(); {
	case roll < 0.3 && !perishable:
		s.MOQ[product] = float64(5 * (1 + cmd.rand.Intn(maxGeneratedMOQ/5)))
	case roll < 0.5:
		s.FixedOrderCost[product] = float64(10 + cmd.rand.Intn(40))
	}
	if cmd.rand.Float64() < 0.25 {
		s.Discounts[product] = entities.Discount{
			Threshold: float64(50 + 10*cmd.rand.Intn(10)),
			Rate:      float64(5+cmd.rand.Intn(11)) / 100,
		}
	}
}

// printHelp shows usage information
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.out, `Procurement Dataset Generator

USAGE:
    procure generate [OPTIONS]

OPTIONS:
    -products <N>       Number of products (default 10)
    -suppliers <N>      Number of suppliers (default 4)
    -periods <N>        Planning horizon length (default 12)
    -coverage <F>       Share of products each supplier offers (default 0.5)
    -output <DIR>       Output directory for generated files (required)
    -format <FMT>       csv or json (default csv)
    -seed <N>           Random seed for reproducible generation
    -verbose            Enable verbose output
    -help               Show this help message

EXAMPLES:
    # Generate a small CSV scenario
    procure generate -products 5 -suppliers 3 -periods 6 -output ./scenarios/small

    # Generate a reproducible JSON dataset
    procure generate -products 40 -suppliers 8 -periods 24 -format json -output ./scenarios/large -seed 12345`)
}
