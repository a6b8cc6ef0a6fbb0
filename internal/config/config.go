package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Explorer       ExplorerConfig `yaml:"explorer"`
	ProtectedPaths []string       `yaml:"protected_paths"`
	DryRun         bool           `yaml:"dry_run"`
	Logging        LoggingConfig  `yaml:"logging"`
	Widget         WidgetConfig   `yaml:"widget"`
}

// ExplorerConfig describes the storage root and where explorer state is persisted
type ExplorerConfig struct {
	Root              string   `yaml:"root"`
	SelectionFile     string   `yaml:"selection_file"`
	StateFile         string   `yaml:"state_file"`
	ReservedNames     []string `yaml:"reserved_names"`
	ExcludeNames      []string `yaml:"exclude_names"` // app-specific folders hidden from the list
	CollationLanguage string   `yaml:"collation_language"`
	Workers           int      `yaml:"workers"` // 0 means one per CPU
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// WidgetConfig holds settings for the widget process
type WidgetConfig struct {
	PollInterval time.Duration    `yaml:"poll_interval"`
	Schedules    []WidgetSchedule `yaml:"schedules"`
}

// WidgetSchedule runs a widget action on a cron expression
type WidgetSchedule struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // Cron expression
	Action   string `yaml:"action"`   // "size" or "clean"
}

const (
	ActionSize  = "size"
	ActionClean = "clean"
)

// Load loads configuration from a file
func Load(configPath string) (*Config, error) {
	// If config doesn't exist, return default config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := GetDefault()
		if err := cfg.Resolve(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefault()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Resolve(); err != nil {
		return nil, err
	}

	// Validate config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Resolve fills in the paths that default relative to the home directory or the root.
func (c *Config) Resolve() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.Explorer.Root == "" {
		c.Explorer.Root = homeDir
	}
	c.Explorer.Root = expandHome(c.Explorer.Root, homeDir)

	if c.Explorer.SelectionFile == "" {
		c.Explorer.SelectionFile = filepath.Join(c.Explorer.Root, DefaultSelectionDir, DefaultSelectionName)
	}
	c.Explorer.SelectionFile = expandHome(c.Explorer.SelectionFile, homeDir)

	if c.Explorer.StateFile == "" {
		c.Explorer.StateFile = filepath.Join(homeDir, ".config", appDirName, "state.db")
	}
	c.Explorer.StateFile = expandHome(c.Explorer.StateFile, homeDir)

	for i, p := range c.ProtectedPaths {
		c.ProtectedPaths[i] = expandHome(p, homeDir)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.Explorer.Root) {
		return fmt.Errorf("explorer root must be absolute: %s", c.Explorer.Root)
	}
	if !filepath.IsAbs(c.Explorer.SelectionFile) {
		return fmt.Errorf("selection file must be absolute: %s", c.Explorer.SelectionFile)
	}
	if !filepath.IsAbs(c.Explorer.StateFile) {
		return fmt.Errorf("state file must be absolute: %s", c.Explorer.StateFile)
	}

	if c.Explorer.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}

	// Names are matched against single path elements
	for _, name := range append(append([]string{}, c.Explorer.ReservedNames...), c.Explorer.ExcludeNames...) {
		if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") {
			return fmt.Errorf("invalid folder name %q: must be a single path element", name)
		}
	}

	// Validate protected paths are absolute
	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format: %s", c.Logging.Format)
	}

	if c.Widget.PollInterval < 0 {
		return fmt.Errorf("widget poll interval must be >= 0")
	}
	for _, sched := range c.Widget.Schedules {
		if sched.Schedule == "" {
			return fmt.Errorf("widget schedule %q has no cron expression", sched.Name)
		}
		if sched.Action != ActionSize && sched.Action != ActionClean {
			return fmt.Errorf("widget schedule %q has unknown action %q", sched.Name, sched.Action)
		}
	}

	return nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", appDirName)
	return filepath.Join(configDir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	// Check if config exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config
		defaultConfig := GetDefault()
		if err := Save(defaultConfig, configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}

func expandHome(path, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
