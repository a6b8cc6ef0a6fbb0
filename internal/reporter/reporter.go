package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/pkg/utils"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a format name
func ParseFormat(name string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(name)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", name)
	}
}

// Listing is one ordered view of the root
type Listing struct {
	Root         string
	SortMode     string
	Entries      []scanner.Entry
	SelectedSize int64
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
	now    func() time.Time
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
		now:    time.Now,
	}
}

// Report writes a listing
func (r *Reporter) Report(listing *Listing) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(listing)
	case FormatJSON:
		return r.encodeJSON(r.listingDocument(listing))
	case FormatYAML:
		return r.encodeYAML(r.listingDocument(listing))
	case FormatSummary:
		return r.reportSummary(listing)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// reportSummary generates a summary report
func (r *Reporter) reportSummary(listing *Listing) error {
	selected := 0
	for _, e := range listing.Entries {
		if e.Selected {
			selected++
		}
	}

	fmt.Fprintf(r.writer, "=== Folder Summary ===\n")
	fmt.Fprintf(r.writer, "Root: %s\n", listing.Root)
	fmt.Fprintf(r.writer, "Entries: %d (sorted by %s)\n", len(listing.Entries), listing.SortMode)
	fmt.Fprintf(r.writer, "Total Size: %s\n", humanize.IBytes(uint64(scanner.TotalSize(listing.Entries))))
	fmt.Fprintf(r.writer, "Selected: %d, %s\n", selected, utils.FormatSize(listing.SelectedSize))
	return nil
}

// reportTable generates a table report
func (r *Reporter) reportTable(listing *Listing) error {
	rule := strings.Repeat("-", 84)

	fmt.Fprintf(r.writer, "%-3s %-56s | %-12s | %s\n", "", "Path", "Size", "Type")
	fmt.Fprintln(r.writer, rule)

	for _, e := range listing.Entries {
		mark := "[ ]"
		if e.Selected {
			mark = "[x]"
		}
		path := e.RelPath
		if len(path) > 56 {
			path = "..." + path[len(path)-53:]
		}
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(r.writer, "%-3s %-56s | %-12s | %s\n", mark, path, humanize.IBytes(uint64(e.Size)), kind)
	}

	fmt.Fprintln(r.writer, rule)
	fmt.Fprintf(r.writer, "Total: %d entries, %s; selected %s\n",
		len(listing.Entries),
		humanize.IBytes(uint64(scanner.TotalSize(listing.Entries))),
		utils.FormatSize(listing.SelectedSize))
	return nil
}

type listingDocument struct {
	Timestamp             string          `json:"timestamp" yaml:"timestamp"`
	Root                  string          `json:"root" yaml:"root"`
	SortMode              string          `json:"sort_mode" yaml:"sort_mode"`
	TotalEntries          int             `json:"total_entries" yaml:"total_entries"`
	TotalSize             int64           `json:"total_size" yaml:"total_size"`
	SelectedSize          int64           `json:"selected_size" yaml:"selected_size"`
	SelectedSizeFormatted string          `json:"selected_size_formatted" yaml:"selected_size_formatted"`
	Entries               []scanner.Entry `json:"entries" yaml:"entries"`
}

func (r *Reporter) listingDocument(listing *Listing) listingDocument {
	entries := listing.Entries
	if entries == nil {
		entries = []scanner.Entry{}
	}
	return listingDocument{
		Timestamp:             r.now().Format(time.RFC3339),
		Root:                  listing.Root,
		SortMode:              listing.SortMode,
		TotalEntries:          len(entries),
		TotalSize:             scanner.TotalSize(entries),
		SelectedSize:          listing.SelectedSize,
		SelectedSizeFormatted: utils.FormatSize(listing.SelectedSize),
		Entries:               entries,
	}
}

// ReportClean writes the outcome of a clean
func (r *Reporter) ReportClean(result *cleaner.CleanResult) error {
	switch r.format {
	case FormatJSON:
		return r.encodeJSON(cleanDocument(result))
	case FormatYAML:
		return r.encodeYAML(cleanDocument(result))
	case FormatTable, FormatSummary:
		return r.reportCleanSummary(result)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) reportCleanSummary(result *cleaner.CleanResult) error {
	title := "=== Clean Summary ==="
	verb := "Freed"
	if result.DryRun {
		title = "=== Clean Preview (dry run) ==="
		verb = "Would free"
	}

	fmt.Fprintln(r.writer, title)
	fmt.Fprintf(r.writer, "Cleaned: %d\n", len(result.Cleaned))
	if len(result.Missing) > 0 {
		fmt.Fprintf(r.writer, "Already gone: %d\n", len(result.Missing))
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(r.writer, "Skipped: %d\n", len(result.Skipped))
	}
	fmt.Fprintf(r.writer, "%s: %s (%d items)\n", verb, humanize.IBytes(uint64(result.FreedSize)), result.RemovedItems)

	if len(result.Failed) > 0 {
		fmt.Fprintf(r.writer, "\nFailed: %s\n", strings.Join(result.Failed, ", "))
		fmt.Fprint(r.writer, cleaner.FormatErrorSummary(result.Errors))
	}
	return nil
}

type cleanError struct {
	Path    string `json:"path" yaml:"path"`
	Reason  string `json:"reason" yaml:"reason"`
	Message string `json:"message" yaml:"message"`
}

type cleanReport struct {
	DryRun       bool         `json:"dry_run" yaml:"dry_run"`
	Cleaned      []string     `json:"cleaned" yaml:"cleaned"`
	Missing      []string     `json:"missing" yaml:"missing"`
	Failed       []string     `json:"failed" yaml:"failed"`
	Skipped      []string     `json:"skipped" yaml:"skipped"`
	FreedSize    int64        `json:"freed_size" yaml:"freed_size"`
	RemovedItems int          `json:"removed_items" yaml:"removed_items"`
	Errors       []cleanError `json:"errors" yaml:"errors"`
}

func cleanDocument(result *cleaner.CleanResult) cleanReport {
	errs := make([]cleanError, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, cleanError{Path: e.Path, Reason: e.Reason.String(), Message: e.UserMessage()})
	}
	return cleanReport{
		DryRun:       result.DryRun,
		Cleaned:      result.Cleaned,
		Missing:      result.Missing,
		Failed:       result.Failed,
		Skipped:      result.Skipped,
		FreedSize:    result.FreedSize,
		RemovedItems: result.RemovedItems,
		Errors:       errs,
	}
}

func (r *Reporter) encodeJSON(v any) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Reporter) encodeYAML(v any) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(v)
}

// SaveToFile saves the report to a file
func SaveToFile(listing *Listing, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return New(file, format).Report(listing)
}
