// Package main implements the tabload binary.
// It loads every tabular file of a folder under one of three execution
// strategies and reports how long each file and the whole run took.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/arkilian/tabload/internal/app"
	"github.com/arkilian/tabload/internal/config"
	loaderr "github.com/arkilian/tabload/internal/errors"
	"github.com/arkilian/tabload/pkg/types"
)

var (
	version = "dev"
	commit  = "unknown"
)

// flags holds raw command-line values; set records which ones were given.
type flags struct {
	configFile  string
	folder      string
	extensions  string
	concurrent  bool
	multicore   bool
	parallelism int
	failFast    bool
	reportPath  string
	set         map[string]bool
}

func main() {
	var (
		f           flags
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&f.folder, "folder", "", "Folder (or object key prefix) holding the files to load")
	flag.StringVar(&f.folder, "f", "", "Shorthand for -folder")
	flag.BoolVar(&f.concurrent, "concurrent", false, "Load files concurrently, one goroutine per file")
	flag.BoolVar(&f.concurrent, "s", false, "Shorthand for -concurrent")
	flag.BoolVar(&f.multicore, "multicore", false, "With -concurrent: split files over -parallelism workers")
	flag.BoolVar(&f.multicore, "m", false, "Shorthand for -multicore")
	flag.IntVar(&f.parallelism, "parallelism", 0, "Worker count for -multicore (default: number of CPUs)")
	flag.StringVar(&f.extensions, "ext", "", "Comma-separated file extensions to load (default: csv)")
	flag.BoolVar(&f.failFast, "fail-fast", false, "Abort the run at the first file that fails to load")
	flag.StringVar(&f.reportPath, "report", "", "Write a run report to this .json, .yaml or .yml file")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tabload - tabular file loading benchmark\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tabload [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nStrategies:\n")
		fmt.Fprintf(os.Stderr, "  (default)        sequential, one file after another\n")
		fmt.Fprintf(os.Stderr, "  -s               concurrent, one goroutine per file, unbounded\n")
		fmt.Fprintf(os.Stderr, "  -s -m            multicore, contiguous chunks over -parallelism workers\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tabload -f ./data\n")
		fmt.Fprintf(os.Stderr, "  tabload -f ./data -s -m -parallelism 8 -report run.json\n")
		fmt.Fprintf(os.Stderr, "  tabload -config /etc/tabload/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		fmt.Fprintf(os.Stderr, "  TABLOAD_FOLDER        Folder or object key prefix\n")
		fmt.Fprintf(os.Stderr, "  TABLOAD_CONCURRENT    Enable a concurrent strategy (true/false)\n")
		fmt.Fprintf(os.Stderr, "  TABLOAD_MULTICORE     Select the partitioned strategy (true/false)\n")
		fmt.Fprintf(os.Stderr, "  TABLOAD_PARALLELISM   Worker count for multicore\n")
		fmt.Fprintf(os.Stderr, "  TABLOAD_SOURCE_TYPE   Dataset source (dir, local, s3)\n")
		fmt.Fprintf(os.Stderr, "  TABLOAD_S3_BUCKET     Bucket for the s3 source\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("tabload version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	f.set = make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	runner, err := app.New(cfg, app.WithObserver(newLogObserver(log.Default())))
	if err != nil {
		log.Fatalf("Failed to create runner: %v", err)
	}

	printBanner(cfg)

	// Interrupts only reach object-store staging; dispatch runs to completion.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	rep, err := runner.Run(ctx)
	if err != nil {
		log.Printf("Run failed: %v", err)
		if loaderr.IsRetryable(err) {
			log.Printf("The object store failure may be transient; rerunning can succeed")
		}
		stop()
		os.Exit(1)
	}
	if rep.Failed > 0 {
		stop()
		os.Exit(2)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(f flags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if f.configFile != "" {
		cfg, err = config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if f.folder != "" {
		cfg.Folder = f.folder
	}
	if f.extensions != "" {
		cfg.Extensions = config.SplitList(f.extensions)
	}
	if f.set["concurrent"] || f.set["s"] {
		cfg.Concurrent = f.concurrent
	}
	if f.set["multicore"] || f.set["m"] {
		cfg.MultiCore = f.multicore
	}
	if f.set["parallelism"] {
		cfg.Parallelism = f.parallelism
	}
	if f.set["fail-fast"] {
		cfg.FailFast = f.failFast
	}
	if f.reportPath != "" {
		cfg.ReportPath = f.reportPath
	}

	return cfg, nil
}

// printBanner prints the configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("tabload %s", version)
	log.Printf("Configuration:")
	log.Printf("  Folder:     %s", cfg.Folder)
	log.Printf("  Source:     %s", cfg.Source.Type)
	log.Printf("  Extensions: %v", cfg.Extensions)
	log.Printf("  Strategy:   %s", cfg.Strategy())
	if cfg.MultiCore && !cfg.Concurrent {
		log.Printf("  (multicore has no effect without -concurrent)")
	}
	if cfg.Strategy() == types.StrategyMulticore {
		log.Printf("  Workers:    %d", cfg.Parallelism)
	}
	if cfg.FailFast {
		log.Printf("  Fail fast:  on")
	}
	log.Printf("")
}
