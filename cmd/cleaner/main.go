package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/explorer"
	"github.com/fenilsonani/folder-cleaner/internal/logging"
	"github.com/fenilsonani/folder-cleaner/internal/notify"
	"github.com/fenilsonani/folder-cleaner/internal/progress"
	"github.com/fenilsonani/folder-cleaner/internal/reporter"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/selection"
	"github.com/fenilsonani/folder-cleaner/internal/sorting"
	"github.com/fenilsonani/folder-cleaner/internal/state"
	"github.com/fenilsonani/folder-cleaner/internal/ui"
	"github.com/fenilsonani/folder-cleaner/pkg/utils"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"

	configPath string
	verbose    bool
	dryRun     bool
	force      bool
	outputFmt  string
	outputFile string
	manifest   string
)

var rootCmd = &cobra.Command{
	Use:   "cleaner",
	Short: "Browse a storage root and clean the folders you pick",
	Long: `Cleaner lists the top-level folders and files of a storage root with their
sizes, keeps a persisted cleaning list you build by toggling entries, and
deletes everything on that list on request.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the root's entries with sizes",
	Long:  `Scans the storage root and prints every visible entry in the saved sort order, marking the ones on the cleaning list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.scan(); err != nil {
			return err
		}

		listing := a.listing()
		if outputFile != "" {
			if err := reporter.SaveToFile(listing, outputFile, format); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
			fmt.Printf("Report saved to: %s\n", outputFile)
			return nil
		}

		if err := reporter.New(os.Stdout, format).Report(listing); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <path>...",
	Short: "Add or remove entries from the cleaning list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.scan(); err != nil {
			return err
		}

		for _, rel := range args {
			rel = strings.Trim(rel, "/")
			if err := a.session.Toggle(rel); err != nil {
				return fmt.Errorf("failed to toggle %s: %w", rel, err)
			}
		}
		a.session.Wait()

		for _, rel := range args {
			rel = strings.Trim(rel, "/")
			mark := "removed from"
			if contains(a.session.Selected(), rel) {
				mark = "added to"
			}
			fmt.Printf("%s %s the cleaning list\n", rel, mark)
		}
		a.printSelectedSize()
		return nil
	},
}

var deselectAllCmd = &cobra.Command{
	Use:   "deselect-all",
	Short: "Empty the cleaning list",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.DeselectAll(); err != nil {
			return fmt.Errorf("failed to clear cleaning list: %w", err)
		}
		a.session.Wait()

		fmt.Println("Cleaning list cleared")
		return nil
	},
}

var sortCmd = &cobra.Command{
	Use:   "sort [name|size]",
	Short: "Show, cycle or set the sort order",
	Long:  `Without an argument the sort order advances to the next mode. The choice is remembered across runs.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var want sorting.Mode
		if len(args) == 1 {
			want, err = sorting.ParseMode(args[0])
			if err != nil {
				return err
			}
			if want == a.session.Mode() {
				fmt.Printf("Sorting by %s\n", want)
				return nil
			}
		}

		mode, err := a.session.ChangeSort()
		if err != nil {
			return fmt.Errorf("failed to change sort order: %w", err)
		}
		if len(args) == 1 && mode != want {
			if mode, err = a.session.ChangeSort(); err != nil {
				return fmt.Errorf("failed to change sort order: %w", err)
			}
		}
		a.session.Wait()

		fmt.Printf("Sorting by %s\n", mode)
		return nil
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the total size of the cleaning list",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.session.AggregateSize(); err != nil {
			return fmt.Errorf("failed to size cleaning list: %w", err)
		}
		a.session.Wait()

		a.printSelectedSize()
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete everything on the cleaning list",
	Long: `Deletes every path on the cleaning list, then rescans the root.
Use --dry-run to see what would be freed without deleting anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reporter.ParseFormat(outputFmt)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.cleaner.SetDryRun(dryRun || a.cfg.DryRun)

		paths := a.store.Load()
		if len(paths) == 0 {
			fmt.Println("Nothing to clean.")
			return nil
		}

		plan := a.cleaner.Plan(paths)
		fmt.Printf("\n📋 Cleaning list (%d paths, %s):\n", len(plan.Items), humanize.IBytes(uint64(plan.TotalSize)))
		for _, item := range plan.Items {
			switch {
			case item.Blocked != nil:
				fmt.Printf("  ✗ %s (%v)\n", item.RelPath, item.Blocked)
			case !item.Exists:
				fmt.Printf("  - %s (already gone)\n", item.RelPath)
			default:
				fmt.Printf("  • %s (%s)\n", item.RelPath, humanize.IBytes(uint64(item.Size)))
			}
		}

		if !dryRun && !force {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("refusing to clean without confirmation; pass --force")
			}
			fmt.Print("\nProceed with cleanup? (y/N): ")
			var response string
			fmt.Scanln(&response)
			if response != "y" && response != "Y" {
				fmt.Println("Cleanup cancelled")
				return nil
			}
		}

		result, err := a.clean()
		if err != nil {
			return err
		}

		if manifest != "" && !result.DryRun {
			if err := a.cleaner.SaveManifest(manifest); err != nil {
				return fmt.Errorf("failed to save manifest: %w", err)
			}
			fmt.Printf("Manifest saved to: %s\n", manifest)
		}

		fmt.Println()
		return reporter.New(os.Stdout, format).ReportClean(result)
	},
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Browse and clean in a terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return ui.RunInteractive(a.session, a.reporter, a.cfg.Explorer.Root)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display current configuration",
	Long:  `Shows the config file location and the configuration being used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, err := resolveConfigPath()
		if err != nil {
			return err
		}

		fmt.Printf("Config file: %s\n", cfgPath)
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			fmt.Println("Config file does not exist. Using default configuration.")
			fmt.Println("\nTo create a config file:")
			fmt.Println("  cleaner config init")
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Printf("\nRoot:           %s\n", cfg.Explorer.Root)
		fmt.Printf("Cleaning list:  %s\n", cfg.Explorer.SelectionFile)
		fmt.Printf("State:          %s\n", cfg.Explorer.StateFile)
		fmt.Printf("Protected:      %d paths\n", len(cfg.ProtectedPaths))
		fmt.Printf("Widget jobs:    %d\n", len(cfg.Widget.Schedules))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the example configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			path, err := config.EnsureConfigExists()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Printf("Config file: %s\n", path)
			return nil
		}

		if _, err := os.Stat(configPath); err == nil && !force {
			return fmt.Errorf("%s already exists; pass --force to overwrite", configPath)
		}
		if err := os.WriteFile(configPath, []byte(config.GetExampleConfig()), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Config file: %s\n", configPath)
		return nil
	},
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print an example configuration",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(config.GetExampleConfig())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	// Scan command flags
	scanCmd.Flags().StringVar(&outputFmt, "output", "table", "output format (summary, table, json, yaml)")
	scanCmd.Flags().StringVar(&outputFile, "file", "", "save report to file")

	// Clean command flags
	cleanCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without actually deleting")
	cleanCmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompts")
	cleanCmd.Flags().StringVar(&outputFmt, "output", "summary", "output format (summary, json, yaml)")
	cleanCmd.Flags().StringVar(&manifest, "manifest", "", "write a manifest of deleted paths to this file")

	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configExampleCmd)

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(deselectAllCmd)
	rootCmd.AddCommand(sortCmd)
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(interactiveCmd)
	rootCmd.AddCommand(configCmd)
}

// app is one wired explorer session for a single command
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	modes    interface{ Close() error }
	store    *selection.Store
	cleaner  *cleaner.Cleaner
	reporter *progress.ProgressReporter
	session  *explorer.Session
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	if verbose {
		logger.SetLevel("debug")
	}

	var modes explorer.ModeStore
	var closer interface{ Close() error }
	if db, err := state.Open(cfg.Explorer.StateFile, logger.Logger); err != nil {
		logger.Warn("state unavailable, sort order will not be remembered", zap.Error(err))
		mem := state.NewMemory()
		modes, closer = mem, mem
	} else {
		modes, closer = db, db
	}

	pr := progress.NewProgressReporter()

	scnr := scanner.New(cfg, logger.Logger)
	scnr.SetProgressReporter(pr)

	clnr := cleaner.New(cfg, logger.Logger)
	clnr.SetProgressReporter(pr)

	store := selection.NewStore(cfg.Explorer.SelectionFile, cfg.Explorer.Root, logger.Logger)

	session := explorer.NewSession(explorer.Deps{
		Scanner: scnr,
		Store:   store,
		Sorter:  sorting.New(cfg.Explorer.CollationLanguage),
		Cleaner: clnr,
		Modes:   modes,
		Signal: notify.Multi{
			notify.ReporterSignal{Reporter: pr},
			notify.NewFileSignal(notify.PathFor(cfg.Explorer.SelectionFile)),
		},
		Logger: logger.Logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		modes:    closer,
		store:    store,
		cleaner:  clnr,
		reporter: pr,
		session:  session,
	}, nil
}

// scan refreshes the listing and waits for it and its size to arrive
func (a *app) scan() error {
	live := ui.NewLiveProgress()
	stop := live.Follow(a.reporter)
	defer stop()

	if err := a.session.Refresh(); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	a.session.Wait()
	return nil
}

// clean runs CleanSelected and waits for its result and the follow-up scan
func (a *app) clean() (*cleaner.CleanResult, error) {
	results := make(chan *cleaner.CleanResult, 1)
	sub := a.session.Subscribe(explorer.ListenerFuncs{
		Cleaned: func(r *cleaner.CleanResult) {
			select {
			case results <- r:
			default:
			}
		},
	})
	defer sub.Cancel()

	live := ui.NewLiveProgress()
	stop := live.Follow(a.reporter)
	defer stop()

	if !a.session.CleanSelected() {
		return nil, fmt.Errorf("nothing to clean")
	}
	a.session.Wait()

	select {
	case r := <-results:
		return r, nil
	default:
		return nil, fmt.Errorf("clean did not complete")
	}
}

func (a *app) listing() *reporter.Listing {
	return &reporter.Listing{
		Root:         a.cfg.Explorer.Root,
		SortMode:     a.session.Mode().String(),
		Entries:      a.session.Entries(),
		SelectedSize: a.session.LastSize(),
	}
}

func (a *app) Close() error {
	err := a.session.Close()
	if cerr := a.modes.Close(); err == nil {
		err = cerr
	}
	a.logger.Close()
	return err
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfgPath, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(cfgPath)
}

func (a *app) printSelectedSize() {
	fmt.Printf("Selected: %d, %s\n", len(a.store.Load()), utils.FormatSize(a.session.LastSize()))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
