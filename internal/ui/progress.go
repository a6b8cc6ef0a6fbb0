package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/fenilsonani/folder-cleaner/internal/progress"
	uiutils "github.com/fenilsonani/folder-cleaner/internal/ui/utils"
)

// LiveProgress renders progress reporter updates on a single terminal line
type LiveProgress struct {
	mu         sync.Mutex
	out        io.Writer
	width      int
	enabled    bool
	lastUpdate time.Time
	throttle   time.Duration
	drawn      bool
}

// NewLiveProgress creates a live progress line on stderr. It is disabled
// when stderr is not a terminal.
func NewLiveProgress() *LiveProgress {
	fd := int(os.Stderr.Fd())
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	return &LiveProgress{
		out:      os.Stderr,
		width:    width,
		enabled:  term.IsTerminal(fd),
		throttle: 100 * time.Millisecond,
	}
}

// Follow renders updates from reporter until the returned stop function is
// called. stop clears the line.
func (lp *LiveProgress) Follow(reporter *progress.ProgressReporter) (stop func()) {
	updates := reporter.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range updates {
			lp.Update(update)
		}
	}()

	return func() {
		reporter.Unsubscribe(updates)
		<-done
		lp.Finish()
	}
}

// Update draws one progress update
func (lp *LiveProgress) Update(update interface{}) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if !lp.enabled {
		return
	}

	now := time.Now()
	if now.Sub(lp.lastUpdate) < lp.throttle {
		return
	}
	lp.lastUpdate = now

	line := lp.line(update)
	if line == "" {
		return
	}
	fmt.Fprintf(lp.out, "\r\033[K%s", uiutils.TruncateMiddle(line, lp.width-1))
	lp.drawn = true
}

func (lp *LiveProgress) line(update interface{}) string {
	switch u := update.(type) {
	case *progress.ScanProgress:
		return progress.FormatScanProgress(u) + "  " + u.CurrentPath
	case *progress.CleanProgress:
		return progress.FormatCleanProgress(u) + "  " + u.CurrentPath
	default:
		return ""
	}
}

// Finish clears the progress line
func (lp *LiveProgress) Finish() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if lp.drawn {
		fmt.Fprint(lp.out, "\r\033[K")
		lp.drawn = false
	}
}

// SetEnabled enables or disables live progress
func (lp *LiveProgress) SetEnabled(enabled bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.enabled = enabled
}
