package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/procurement/pkg/application/dto"
	"github.com/vsinha/procurement/pkg/application/services/orchestration"
	"github.com/vsinha/procurement/pkg/domain/entities"
	"github.com/vsinha/procurement/pkg/infrastructure/config"
	"github.com/vsinha/procurement/pkg/infrastructure/logging"
	"github.com/vsinha/procurement/pkg/infrastructure/repositories/tabular"
	"github.com/vsinha/procurement/pkg/interfaces/cli/output"
)

// Config holds configuration for the plan command
type Config struct {
	Input       string // JSON or XLSX dataset file
	ScenarioDir string // Directory of CSV tables
	Strategy    string // Overrides planner.strategy from the config file
	Compare     bool
	ConfigFile  string
	Format      string
	OutputDir   string
	Verbose     bool
	Help        bool
}

// PlanCommand loads a dataset, runs one or all strategies and writes the results
type PlanCommand struct {
	config Config
	out    io.Writer
}

// NewPlanCommand creates a new plan command with the given configuration
func NewPlanCommand(config Config, out io.Writer) *PlanCommand {
	if config.Format == "" {
		config.Format = "text"
	}
	return &PlanCommand{config: config, out: out}
}

// Execute runs the plan command. A best-effort plan is still written out
// before its status is returned as the error.
func (c *PlanCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}
	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	settings, err := config.Load(c.config.ConfigFile)
	if err != nil {
		return err
	}
	level := settings.Log.Level
	if c.config.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, settings.Log.Format)
	if err != nil {
		return err
	}

	strategy := settings.Strategy()
	if c.config.Strategy != "" {
		if strategy, err = entities.ParseStrategy(c.config.Strategy); err != nil {
			return fmt.Errorf("validation error: %w", err)
		}
	}

	ds, source, err := c.loadDataset()
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"source":    source,
		"products":  len(ds.Products),
		"suppliers": len(ds.Suppliers),
		"periods":   ds.Horizon.Periods,
	}).Info("Dataset loaded")

	planner := orchestration.NewPlanner(settings.ToPlannerConfig(), logger)

	startTime := time.Now()
	var results []*dto.PlanResult
	if c.config.Compare {
		comparison, err := planner.Compare(ctx, ds)
		if err != nil {
			return fmt.Errorf("error comparing strategies: %w", err)
		}
		results = comparison.Results
	} else {
		result, err := planner.Plan(ctx, ds, strategy)
		if err != nil {
			return fmt.Errorf("error planning with %s: %w", strategy, err)
		}
		results = []*dto.PlanResult{result}
	}
	logger.WithField("elapsed", time.Since(startTime)).Debug("Planning finished")

	outputConfig := output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
	}
	if err := output.Generate(results, outputConfig, c.out); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if !c.config.Compare {
		return results[0].Err()
	}
	return nil
}

// validateInputs validates the command configuration
func (c *PlanCommand) validateInputs() error {
	if (c.config.Input == "") == (c.config.ScenarioDir == "") {
		return fmt.Errorf("must specify exactly one of -input or -scenario")
	}
	if c.config.Compare && c.config.Strategy != "" {
		return fmt.Errorf("-strategy cannot be combined with -compare")
	}
	for _, format := range output.Formats {
		if format == c.config.Format {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format: %s (expected one of %s)", c.config.Format, strings.Join(output.Formats, ", "))
}

// loadDataset reads the dataset from whichever source was configured
func (c *PlanCommand) loadDataset() (*entities.Dataset, string, error) {
	loader := tabular.NewLoader()
	if c.config.ScenarioDir != "" {
		ds, err := loader.LoadCSVDir(c.config.ScenarioDir)
		return ds, c.config.ScenarioDir, err
	}

	switch strings.ToLower(filepath.Ext(c.config.Input)) {
	case ".json":
		ds, err := loader.LoadJSON(c.config.Input)
		return ds, c.config.Input, err
	case ".xlsx":
		ds, err := loader.LoadWorkbook(c.config.Input)
		return ds, c.config.Input, err
	default:
		return nil, "", fmt.Errorf("unsupported dataset file %s (expected .json or .xlsx)", c.config.Input)
	}
}

// showHelp displays the help message
func (c *PlanCommand) showHelp() {
	fmt.Fprintf(c.out, `Procurement Planner - multi-period purchasing plans across suppliers

USAGE:
    procure plan -scenario <directory>     # CSV tables in a directory
    procure plan -input <file>             # JSON or XLSX dataset

OPTIONS:
    -scenario <dir>     Directory containing horizon, products, suppliers, offers and demand CSV files
    -input <file>       Dataset file (.json or .xlsx workbook with one sheet per table)
    -strategy <name>    exact, discount-aware or heuristic (default from config)
    -compare            Run every strategy on the same dataset
    -config <file>      Planner configuration file (YAML, JSON or TOML)
    -output <dir>       Output directory for results (optional for text and json)
    -format <fmt>       Output format: %s (default: text)
    -verbose            Enable verbose output
    -help               Show this help message

ENVIRONMENT:
    %s_PLANNER_STRATEGY, %s_PLANNER_ARRIVAL_POLICY, %s_PLANNER_TIME_LIMIT, %s_LOG_LEVEL, ...

EXAMPLES:
    # Plan with the exact formulation
    procure plan -scenario scenarios/small

    # Compare all strategies and write a workbook
    procure plan -input dataset.json -compare -format xlsx -output results/

    # Greedy plan with late arrivals clipped to the last period
    PROCURE_PLANNER_ARRIVAL_POLICY=clip procure plan -scenario scenarios/small -strategy heuristic
`, strings.Join(output.Formats, ", "), config.EnvPrefix, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
}
