// Package notify broadcasts "selection or listing changed" to collaborators
// that do not share the explorer's process, such as the widget.
package notify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fenilsonani/folder-cleaner/internal/progress"
)

// Signal is told whenever explorer state changes
type Signal interface {
	Notify(reason string) error
}

// Stamp is the last change recorded by a FileSignal
type Stamp struct {
	Seq    int64
	Reason string
	At     time.Time
}

// FileSignal records changes in a small stamp file next to the cleaning list.
// Each write carries an increasing sequence number so a poller can tell a
// new change from a re-read of the old one.
type FileSignal struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileSignal creates a signal writing to path
func NewFileSignal(path string) *FileSignal {
	return &FileSignal{path: path, now: time.Now}
}

// PathFor returns the stamp file used alongside a cleaning list
func PathFor(selectionFile string) string {
	return selectionFile + ".signal"
}

// Path returns the stamp file location
func (s *FileSignal) Path() string {
	return s.path
}

// Notify bumps the stamp
func (s *FileSignal) Notify(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := ReadStamp(s.path)
	if err != nil {
		prev = Stamp{}
	}

	next := Stamp{Seq: prev.Seq + 1, Reason: sanitize(reason), At: s.now()}
	line := fmt.Sprintf("%d %d %s\n", next.Seq, next.At.UnixNano(), next.Reason)

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create signal directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create signal file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(line); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write signal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close signal: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to publish signal: %w", err)
	}
	return nil
}

// ReadStamp reads the current stamp. A missing file is the zero Stamp.
func ReadStamp(path string) (Stamp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stamp{}, nil
		}
		return Stamp{}, err
	}

	fields := strings.SplitN(strings.TrimSpace(string(data)), " ", 3)
	if len(fields) < 2 {
		return Stamp{}, fmt.Errorf("malformed signal %q", data)
	}

	seq, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Stamp{}, fmt.Errorf("malformed signal sequence: %w", err)
	}
	nanos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Stamp{}, fmt.Errorf("malformed signal time: %w", err)
	}

	stamp := Stamp{Seq: seq, At: time.Unix(0, nanos)}
	if len(fields) == 3 {
		stamp.Reason = fields[2]
	}
	return stamp, nil
}

func sanitize(reason string) string {
	reason = strings.Join(strings.Fields(reason), "_")
	if reason == "" {
		return "change"
	}
	return reason
}

// ReporterSignal forwards changes to in-process progress subscribers
type ReporterSignal struct {
	Reporter *progress.ProgressReporter
}

// Notify publishes a refresh event
func (r ReporterSignal) Notify(reason string) error {
	if r.Reporter != nil {
		r.Reporter.NotifyRefresh(reason)
	}
	return nil
}

// Multi fans a change out to several signals, returning every failure
type Multi []Signal

// Notify tells each signal in order
func (m Multi) Notify(reason string) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(reason); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards changes
type Nop struct{}

// Notify does nothing
func (Nop) Notify(string) error { return nil }
