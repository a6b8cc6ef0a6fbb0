// Package selection persists the cleaning list: the root-relative paths the
// user marked for deletion. The file is plain text so the widget process can
// read it without sharing state with the explorer.
package selection

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/security"
)

// Store is the single writer of the cleaning list file
type Store struct {
	path   string
	root   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore creates a store for the list at path, whose entries are relative to root
func NewStore(path, root string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   path,
		root:   filepath.Clean(root),
		logger: logger.Named("selection").With(zap.String("file", path)),
	}
}

// Path returns the location of the cleaning list file
func (s *Store) Path() string {
	return s.path
}

// Load returns the persisted selection with stale entries removed. An entry
// is stale when it is malformed or no longer exists under the root. When
// anything was removed the pruned list is written back before returning.
// A missing or unreadable file is an empty selection.
func (s *Store) Load() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := s.readLocked()

	healed := make([]string, 0, len(paths))
	for _, p := range paths {
		if s.existsLocked(p) {
			healed = append(healed, p)
		}
	}

	if len(healed) != len(paths) {
		s.logger.Info("pruned stale selection entries",
			zap.Int("before", len(paths)),
			zap.Int("after", len(healed)))
		if err := s.writeLocked(healed); err != nil {
			s.logger.Warn("failed to rewrite healed selection", zap.Error(err))
		}
	}

	return healed
}

// Save replaces the persisted selection. Duplicates collapse to their first
// occurrence and malformed paths are dropped. Concurrent saves are serialized
// and each replaces the file atomically.
func (s *Store) Save(paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clean := make([]string, 0, len(paths))
	for _, p := range dedupe(paths) {
		if err := security.ValidateRelPath(p); err != nil {
			s.logger.Warn("dropping malformed selection entry", zap.String("path", p), zap.Error(err))
			continue
		}
		clean = append(clean, p)
	}

	return s.writeLocked(clean)
}

// Clear persists an empty selection
func (s *Store) Clear() error {
	return s.Save(nil)
}

func (s *Store) readLocked() []string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read selection, treating as empty", zap.Error(err))
		}
		return nil
	}
	return Parse(data)
}

func (s *Store) existsLocked(rel string) bool {
	if err := security.ValidateRelPath(rel); err != nil {
		return false
	}
	_, err := os.Lstat(filepath.Join(s.root, rel))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// Unknown (e.g. permission denied on the root): keep the entry
	s.logger.Debug("cannot check selection entry", zap.String("path", rel), zap.Error(err))
	return true
}

// writeLocked replaces the file via a temp file and rename so readers never
// observe a partial list.
func (s *Store) writeLocked(paths []string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create selection directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp selection file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(Format(paths)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write selection: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync selection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close selection: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set selection permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace selection file: %w", err)
	}

	s.logger.Debug("selection saved", zap.Int("entries", len(paths)))
	return nil
}

// Parse decodes a cleaning list. Entries are newline-delimited. Content with
// no newline at all is the legacy comma-separated layout. Blank entries and
// duplicates are dropped.
func Parse(data []byte) []string {
	var parts []string
	if bytes.IndexByte(data, '\n') < 0 {
		parts = strings.Split(string(data), ",")
	} else {
		parts = strings.Split(string(data), "\n")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(p, "\r")
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return dedupe(out)
}

// Format encodes paths one per line
func Format(paths []string) []byte {
	var buf bytes.Buffer
	for _, p := range paths {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ApplySelection marks each entry selected exactly when its RelPath is in paths
func ApplySelection(entries []scanner.Entry, paths []string) {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	for i := range entries {
		_, entries[i].Selected = set[entries[i].RelPath]
	}
}
