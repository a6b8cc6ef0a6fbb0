package models

import (
	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/progress"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/sorting"
)

// EntriesMsg carries a new ordered listing
type EntriesMsg struct {
	Entries []scanner.Entry
}

// SizeMsg carries the aggregate size of the selection
type SizeMsg struct {
	Bytes int64
}

// CleanedMsg is sent when a clean has finished
type CleanedMsg struct {
	Result *cleaner.CleanResult
}

// ScanProgressMsg wraps scanner progress
type ScanProgressMsg struct {
	Progress *progress.ScanProgress
}

// CleanProgressMsg wraps cleaner progress
type CleanProgressMsg struct {
	Progress *progress.CleanProgress
}

// ModeMsg reports the sort mode after a change
type ModeMsg struct {
	Mode sorting.Mode
}

type nothingToCleanMsg struct{}

// ErrMsg reports a failed command
type ErrMsg struct {
	Err error
}

// FromProgress converts a progress reporter update into a message. Unknown
// updates return nil.
func FromProgress(update interface{}) interface{} {
	switch u := update.(type) {
	case *progress.ScanProgress:
		return ScanProgressMsg{Progress: u}
	case *progress.CleanProgress:
		return CleanProgressMsg{Progress: u}
	default:
		return nil
	}
}
