package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase represents the current phase of operation
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseCleaning Phase = "cleaning"
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// ScanProgress represents progress while the root's children are sized
type ScanProgress struct {
	Phase        Phase
	CurrentPath  string
	EntriesDone  int
	EntriesTotal int
	TotalSize    int64
	StartTime    time.Time
	Error        error
}

// CleanProgress represents progress while selected paths are removed
type CleanProgress struct {
	Phase       Phase
	CurrentPath string
	PathsDone   int
	PathsTotal  int
	FreedSize   int64
	FailedPaths int
	DryRun      bool
	StartTime   time.Time
	Error       error
}

// RefreshEvent tells collaborators the selection or listing changed and
// aggregate size should be re-queried.
type RefreshEvent struct {
	Reason string
	At     time.Time
}

// ProgressReporter provides thread-safe progress reporting
type ProgressReporter struct {
	scanProgress  *ScanProgress
	cleanProgress *CleanProgress
	lastRefresh   *RefreshEvent
	mu            sync.RWMutex
	listeners     []chan interface{}
}

// NewProgressReporter creates a new progress reporter
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		listeners: make([]chan interface{}, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (pr *ProgressReporter) Subscribe() <-chan interface{} {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	ch := make(chan interface{}, 10)
	pr.listeners = append(pr.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (pr *ProgressReporter) Unsubscribe(ch <-chan interface{}) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	for i, listener := range pr.listeners {
		if listener == ch {
			close(listener)
			pr.listeners = append(pr.listeners[:i], pr.listeners[i+1:]...)
			return
		}
	}
}

// UpdateScanProgress updates scan progress and notifies listeners
func (pr *ProgressReporter) UpdateScanProgress(update *ScanProgress) {
	pr.mu.Lock()
	pr.scanProgress = update
	pr.mu.Unlock()

	pr.broadcast(update)
}

// UpdateCleanProgress updates clean progress and notifies listeners
func (pr *ProgressReporter) UpdateCleanProgress(update *CleanProgress) {
	pr.mu.Lock()
	pr.cleanProgress = update
	pr.mu.Unlock()

	pr.broadcast(update)
}

// NotifyRefresh publishes a refresh event to listeners
func (pr *ProgressReporter) NotifyRefresh(reason string) {
	event := &RefreshEvent{Reason: reason, At: time.Now()}

	pr.mu.Lock()
	pr.lastRefresh = event
	pr.mu.Unlock()

	pr.broadcast(event)
}

func (pr *ProgressReporter) broadcast(update interface{}) {
	// Sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send.
	pr.mu.RLock()
	defer pr.mu.RUnlock()

	for _, listener := range pr.listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// GetScanProgress returns the current scan progress
func (pr *ProgressReporter) GetScanProgress() *ScanProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.scanProgress
}

// GetCleanProgress returns the current clean progress
func (pr *ProgressReporter) GetCleanProgress() *CleanProgress {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.cleanProgress
}

// GetLastRefresh returns the most recent refresh event, if any
func (pr *ProgressReporter) GetLastRefresh() *RefreshEvent {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.lastRefresh
}

// FormatScanProgress returns a human-readable scan progress string
func FormatScanProgress(p *ScanProgress) string {
	if p == nil {
		return "Initializing..."
	}

	elapsed := time.Since(p.StartTime)

	switch p.Phase {
	case PhaseScanning:
		return fmt.Sprintf("Sizing folders... %d/%d (%s) [%s]",
			p.EntriesDone,
			p.EntriesTotal,
			humanize.IBytes(uint64(p.TotalSize)),
			FormatDuration(elapsed))
	case PhaseComplete:
		return fmt.Sprintf("Scan complete: %d folders (%s) in %s",
			p.EntriesDone,
			humanize.IBytes(uint64(p.TotalSize)),
			FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Scan error: %v", p.Error)
	default:
		return "Scanning..."
	}
}

// FormatCleanProgress returns a human-readable clean progress string
func FormatCleanProgress(p *CleanProgress) string {
	if p == nil {
		return "Preparing..."
	}

	elapsed := time.Since(p.StartTime)

	verb := "Cleaning"
	if p.DryRun {
		verb = "Previewing"
	}

	switch p.Phase {
	case PhaseCleaning:
		percentage := 0
		if p.PathsTotal > 0 {
			percentage = (p.PathsDone * 100) / p.PathsTotal
		}
		return fmt.Sprintf("%s... %d/%d paths (%d%%) - %s freed",
			verb,
			p.PathsDone,
			p.PathsTotal,
			percentage,
			humanize.IBytes(uint64(p.FreedSize)))
	case PhaseComplete:
		failed := ""
		if p.FailedPaths > 0 {
			failed = fmt.Sprintf(", %d failed", p.FailedPaths)
		}
		return fmt.Sprintf("Cleanup complete: %d paths (%s)%s in %s",
			p.PathsDone-p.FailedPaths,
			humanize.IBytes(uint64(p.FreedSize)),
			failed,
			FormatDuration(elapsed))
	case PhaseError:
		return fmt.Sprintf("Cleanup error: %v", p.Error)
	default:
		return "Preparing cleanup..."
	}
}

// FormatDuration formats duration in human-readable format
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
