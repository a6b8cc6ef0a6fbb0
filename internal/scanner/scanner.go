package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/progress"
	"github.com/fenilsonani/folder-cleaner/internal/security"
)

// Scanner lists the storage root's immediate children and sizes them
type Scanner struct {
	root             string
	filter           *Filter
	pathValidator    *security.PathValidator
	workers          int
	logger           *zap.Logger
	progressReporter *progress.ProgressReporter
}

// New creates a Scanner for the configured root
func New(cfg *config.Config, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}

	root := filepath.Clean(cfg.Explorer.Root)

	exclude := append([]string(nil), cfg.Explorer.ExcludeNames...)
	if dir := topLevelName(root, cfg.Explorer.SelectionFile); dir != "" {
		exclude = append(exclude, dir)
	}

	return &Scanner{
		root:          root,
		filter:        NewFilter(cfg.Explorer.ReservedNames, exclude),
		pathValidator: security.NewPathValidator(root),
		workers:       workerCount(cfg.Explorer.Workers),
		logger:        logger.Named("scanner"),
	}
}

// workerCount picks the sizing parallelism: one per CPU, between 4 and 16.
func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n < 4 {
		n = 4
	}
	if n > 16 {
		n = 16
	}
	return n
}

// topLevelName returns the root child that contains path, or "" when path
// is not below root.
func topLevelName(root, path string) string {
	if path == "" {
		return ""
	}
	rel, err := security.RelativeTo(root, path)
	if err != nil {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first
}

// SetProgressReporter sets a custom progress reporter
func (s *Scanner) SetProgressReporter(pr *progress.ProgressReporter) {
	s.progressReporter = pr
}

// Root returns the storage root being scanned
func (s *Scanner) Root() string {
	return s.root
}

// Filter returns the eligibility filter applied to child names
func (s *Scanner) Filter() *Filter {
	return s.filter
}

// Scan enumerates the root's immediate children and returns one Entry per
// eligible child. A missing root yields an empty result. Children that
// disappear between listing and inspection are skipped. Order is unspecified.
func (s *Scanner) Scan(ctx context.Context) ([]Entry, error) {
	startTime := time.Now()

	dirents, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("root does not exist", zap.String("root", s.root))
			s.reportScanProgress(progress.PhaseComplete, "", 0, 0, 0, startTime)
			return []Entry{}, nil
		}
		if len(dirents) == 0 {
			s.reportScanProgress(progress.PhaseError, "", 0, 0, 0, startTime)
			return []Entry{}, fmt.Errorf("failed to list root %s: %w", s.root, err)
		}
		// Partial listing: keep what was read
		s.logger.Warn("root listing incomplete", zap.String("root", s.root), zap.Error(err))
	}

	candidates := make([]string, 0, len(dirents))
	for _, d := range dirents {
		if s.filter.IsEligible(d.Name()) {
			candidates = append(candidates, d.Name())
		}
	}

	slots := make([]*Entry, len(candidates))
	var (
		done      atomic.Int64
		totalSize atomic.Int64
		reportMu  sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, name := range candidates {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			entry, ok := s.inspect(name)
			if ok {
				slots[i] = entry
				totalSize.Add(entry.Size)
			}

			n := done.Add(1)
			reportMu.Lock()
			s.reportScanProgress(progress.PhaseScanning, name, int(n), len(candidates), totalSize.Load(), startTime)
			reportMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.reportScanProgress(progress.PhaseError, "", int(done.Load()), len(candidates), totalSize.Load(), startTime)
		return []Entry{}, err
	}

	entries := make([]Entry, 0, len(slots))
	for _, e := range slots {
		if e != nil {
			entries = append(entries, *e)
		}
	}

	s.reportScanProgress(progress.PhaseComplete, "", len(entries), len(candidates), totalSize.Load(), startTime)
	s.logger.Debug("scan complete",
		zap.Int("entries", len(entries)),
		zap.Int("skipped", len(dirents)-len(entries)),
		zap.Duration("elapsed", time.Since(startTime)))

	return entries, nil
}

// inspect builds the Entry for one child, or reports false when the child
// vanished or its relative path cannot be derived.
func (s *Scanner) inspect(name string) (*Entry, bool) {
	abs := filepath.Join(s.root, name)

	info, err := os.Lstat(abs)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("skipping unreadable child", zap.String("path", abs), zap.Error(err))
		}
		return nil, false
	}

	rel, err := security.RelativeTo(s.root, abs)
	if err != nil {
		s.logger.Debug("skipping child outside root", zap.String("path", abs), zap.Error(err))
		return nil, false
	}

	return &Entry{
		RelPath:  rel,
		Size:     SizeOf(abs),
		IsDir:    info.IsDir(),
		IsHidden: IsHiddenName(info.Name()),
	}, true
}

// SizeOfPaths returns the combined size of the given root-relative paths.
// Paths that are malformed, escape the root, or no longer exist contribute zero.
func (s *Scanner) SizeOfPaths(ctx context.Context, relPaths []string) (int64, error) {
	var total atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, rel := range relPaths {
		rel := rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			abs, err := s.pathValidator.Resolve(rel)
			if err != nil {
				s.logger.Debug("ignoring invalid selection path", zap.String("path", rel), zap.Error(err))
				return nil
			}
			total.Add(SizeOf(abs))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}

// reportScanProgress reports scan progress to listeners
func (s *Scanner) reportScanProgress(phase progress.Phase, currentPath string, done, total int, totalSize int64, startTime time.Time) {
	if s.progressReporter == nil {
		return
	}

	s.progressReporter.UpdateScanProgress(&progress.ScanProgress{
		Phase:        phase,
		CurrentPath:  currentPath,
		EntriesDone:  done,
		EntriesTotal: total,
		TotalSize:    totalSize,
		StartTime:    startTime,
	})
}
