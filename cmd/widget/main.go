package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/logging"
	"github.com/fenilsonani/folder-cleaner/internal/widget"
	"github.com/fenilsonani/folder-cleaner/pkg/utils"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"

	configPath  string
	once        bool
	click       bool
	testConfig  bool
	showVersion bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&once, "once", false, "Print the cleaning list size and exit")
	flag.BoolVar(&click, "click", false, "Clean the cleaning list, print the new size and exit")
	flag.BoolVar(&testConfig, "test-config", false, "Test configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("Cleaner Widget v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if testConfig {
		fmt.Println("Configuration is valid")
		fmt.Printf("Cleaning list: %s\n", cfg.Explorer.SelectionFile)
		fmt.Printf("Poll interval: %s\n", cfg.Widget.PollInterval)
		fmt.Printf("Schedules: %d\n", len(cfg.Widget.Schedules))
		for _, sched := range cfg.Widget.Schedules {
			fmt.Printf("  - %s: %s (%s)\n", sched.Name, sched.Schedule, sched.Action)
		}
		os.Exit(0)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := widget.New(cfg, logger.Logger, os.Stdout)

	switch {
	case once:
		if _, err := w.RefreshSize(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case click:
		result, err := w.Click(ctx)
		if errors.Is(err, widget.ErrNothingToClean) {
			fmt.Println("Nothing to clean")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Freed %s\n", utils.FormatSize(result.FreedSize))
		if len(result.Failed) > 0 {
			fmt.Fprintf(os.Stderr, "%d paths could not be removed\n", len(result.Failed))
			os.Exit(1)
		}
	default:
		logger.Info("starting widget", zap.String("version", Version))
		if err := w.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}

	cfgPath, err := config.GetConfigPath()
	if err != nil {
		return nil, err
	}

	return config.Load(cfgPath)
}
