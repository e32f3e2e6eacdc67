package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vsinha/procurement/pkg/interfaces/cli/commands"
)

type command interface {
	Execute(ctx context.Context) error
}

func main() {
	// A missing .env is fine; PROCURE_* variables may come from the shell
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var cmd command
	switch os.Args[1] {
	case "plan":
		cmd = parsePlan(os.Args[2:])
	case "generate":
		cmd = parseGenerate(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parsePlan(args []string) command {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	var (
		scenarioDir = fs.String("scenario", "", "Directory containing the dataset CSV tables")
		input       = fs.String("input", "", "Dataset file (.json or .xlsx)")
		strategy    = fs.String("strategy", "", "exact, discount-aware or heuristic")
		compare     = fs.Bool("compare", false, "Run every strategy and compare")
		configFile  = fs.String("config", "", "Planner configuration file")
		outputDir   = fs.String("output", "", "Output directory for results (optional)")
		format      = fs.String("format", "text", "Output format: text, json, csv, xlsx, svg")
		verbose     = fs.Bool("verbose", false, "Enable verbose output")
		help        = fs.Bool("help", false, "Show help message")
	)
	_ = fs.Parse(args)

	return commands.NewPlanCommand(commands.Config{
		Input:       *input,
		ScenarioDir: *scenarioDir,
		Strategy:    *strategy,
		Compare:     *compare,
		ConfigFile:  *configFile,
		Format:      *format,
		OutputDir:   *outputDir,
		Verbose:     *verbose,
		Help:        *help,
	}, os.Stdout)
}

func parseGenerate(args []string) command {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		products  = fs.Int("products", 10, "Number of products")
		suppliers = fs.Int("suppliers", 4, "Number of suppliers")
		periods   = fs.Int("periods", 12, "Planning horizon length")
		coverage  = fs.Float64("coverage", 0.5, "Share of products each supplier offers")
		outputDir = fs.String("output", "", "Output directory for generated files")
		format    = fs.String("format", "csv", "Dataset format: csv or json")
		seed      = fs.Int64("seed", 0, "Random seed (0 for time-based)")
		verbose   = fs.Bool("verbose", false, "Enable verbose output")
		help      = fs.Bool("help", false, "Show help message")
	)
	_ = fs.Parse(args)

	return commands.NewGenerateCommand(commands.GenerateConfig{
		Products:  *products,
		Suppliers: *suppliers,
		Periods:   *periods,
		Coverage:  *coverage,
		OutputDir: *outputDir,
		Format:    *format,
		Seed:      *seed,
		Verbose:   *verbose,
		Help:      *help,
	}, os.Stdout)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: procure <command> [options]

Commands:
    plan        Build purchasing plans from a dataset
    generate    Write a random dataset

Run "procure <command> -help" for command options.`)
}
