package config

import "time"

const (
	appDirName = "folder-cleaner"

	// DefaultSelectionDir is the folder under the root holding the cleaning list,
	// shared with the widget process.
	DefaultSelectionDir  = "cleaner_widget"
	DefaultSelectionName = "cleaning_list"
)

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		Explorer: ExplorerConfig{
			// Root, SelectionFile and StateFile are filled in by Resolve
			ReservedNames: []string{
				"Android", // platform-reserved application data
			},
			ExcludeNames:      []string{},
			CollationLanguage: "und",
			Workers:           0,
		},
		ProtectedPaths: []string{
			"/",
			"/System",
			"/Applications",
			"/Library/System",
			"/bin",
			"/sbin",
			"/usr",
			"/etc",
			"/var",
			"/dev",
			"/boot",
			"/lib",
			"/lib64",
			"/opt",
			"/proc",
			"/run",
			"/srv",
			"/sys",
		},
		DryRun: false,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Widget: WidgetConfig{
			PollInterval: 2 * time.Second,
			Schedules:    []WidgetSchedule{},
		},
	}
}

// GetExampleConfig returns an example configuration with comments
func GetExampleConfig() string {
	return `# Folder Cleaner Configuration File
# Location: ~/.config/folder-cleaner/config.yaml

explorer:
  root: ~                      # storage root whose top-level folders are listed
  # selection_file: ~/cleaner_widget/cleaning_list
  # state_file: ~/.config/folder-cleaner/state.db
  reserved_names:              # never listed
    - Android
  exclude_names: []            # extra app-specific folders to hide
  collation_language: und      # BCP 47 tag used for name sorting
  workers: 0                   # 0 = one per CPU

# Paths that are never deleted, even when selected
protected_paths:
  - /
  - /usr
  - /etc

dry_run: false

logging:
  level: info
  format: console              # json or console
  output: stderr

widget:
  poll_interval: 2s
  schedules:
    - name: nightly
      schedule: "0 3 * * *"
      action: size              # size or clean
`
}
