package reporter

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
)

func sampleListing() *Listing {
	return &Listing{
		Root:     "/storage",
		SortMode: "size",
		Entries: []scanner.Entry{
			{RelPath: "Movies", Size: 3 << 20, IsDir: true, Selected: true},
			{RelPath: "notes.txt", Size: 512},
		},
		SelectedSize: 3 << 20,
	}
}

func newTestReporter(buf *bytes.Buffer, format OutputFormat) *Reporter {
	r := New(buf, format)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return r
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"summary", FormatSummary, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestReportTable(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(&buf, FormatTable).Report(sampleListing()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"[x] Movies", "[ ] notes.txt", "3.0 MiB", "dir", "selected 3.0 MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestReportSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(&buf, FormatSummary).Report(sampleListing()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Root: /storage", "Entries: 2 (sorted by size)", "Selected: 1, 3.0 MB"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestReportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(&buf, FormatJSON).Report(sampleListing()); err != nil {
		t.Fatal(err)
	}

	var doc listingDocument
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc.TotalEntries != 2 || doc.TotalSize != 3<<20+512 {
		t.Errorf("doc = %+v", doc)
	}
	if doc.Timestamp != "2024-01-02T03:04:05Z" {
		t.Errorf("timestamp = %q", doc.Timestamp)
	}
	if !doc.Entries[0].Selected || doc.Entries[0].RelPath != "Movies" {
		t.Errorf("first entry = %+v", doc.Entries[0])
	}
}

func TestReportYAMLEmptyListing(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(&buf, FormatYAML).Report(&Listing{Root: "/r", SortMode: "name"}); err != nil {
		t.Fatal(err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if doc["selected_size_formatted"] != "0.0 MB" {
		t.Errorf("selected_size_formatted = %v", doc["selected_size_formatted"])
	}
	if entries, ok := doc["entries"].([]any); !ok || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty list", doc["entries"])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, "xml").Report(sampleListing()); err == nil {
		t.Error("expected error")
	}
}

func sampleClean() *cleaner.CleanResult {
	return &cleaner.CleanResult{
		Cleaned:      []string{"Movies"},
		Missing:      []string{},
		Failed:       []string{"Locked"},
		Skipped:      []string{},
		Errors: []*cleaner.DeletionError{
			cleaner.CategorizeError("/s/Locked/f", &os.PathError{Op: "unlinkat", Path: "/s/Locked/f", Err: syscall.EACCES}),
		},
		FreedSize:    2048,
		RemovedItems: 3,
	}
}

func TestReportCleanSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(&buf, FormatSummary).ReportClean(sampleClean()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{"Cleaned: 1", "Freed: 2.0 KiB (3 items)", "Failed: Locked", "Permission denied: 1 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("clean summary missing %q:\n%s", want, out)
		}
	}
}

func TestReportCleanDryRun(t *testing.T) {
	var buf bytes.Buffer
	result := &cleaner.CleanResult{Cleaned: []string{"Cache"}, FreedSize: 1024, DryRun: true}
	if err := newTestReporter(&buf, FormatTable).ReportClean(result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Would free: 1.0 KiB") {
		t.Errorf("dry run output:\n%s", buf.String())
	}
}

func TestReportCleanJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestReporter(&buf, FormatJSON).ReportClean(sampleClean()); err != nil {
		t.Fatal(err)
	}

	var doc cleanReport
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(doc.Errors) != 1 || doc.Errors[0].Reason != cleaner.ErrorPermissionDenied.String() {
		t.Errorf("errors = %+v", doc.Errors)
	}
	if doc.FreedSize != 2048 || doc.Cleaned[0] != "Movies" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestSaveToFile(t *testing.T) {
	path := t.TempDir() + "/report.json"
	if err := SaveToFile(sampleListing(), path, FormatJSON); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Errorf("saved report is not json: %s", data)
	}
}
