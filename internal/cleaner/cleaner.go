package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/progress"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/security"
)

// CleanResult represents the result of a clean operation.
// Every requested path ends up in exactly one of Cleaned, Missing, Failed or Skipped.
type CleanResult struct {
	Cleaned      []string         // Removed entirely
	Missing      []string         // Already absent
	Failed       []string         // Left wholly or partly on disk
	Skipped      []string         // Not attempted because the clean was cancelled
	Errors       []*DeletionError // Every node that could not be removed
	FreedSize    int64
	RemovedItems int
	DryRun       bool
}

// FullyCleaned reports whether every requested path is gone
func (r *CleanResult) FullyCleaned() bool {
	return len(r.Failed) == 0 && len(r.Skipped) == 0
}

// Cleaner removes selected root children recursively
type Cleaner struct {
	root              string
	dryRun            bool
	pathValidator     *security.PathValidator
	permissionManager *PermissionManager
	manifest          *DeletionManifest
	logger            *zap.Logger
	progressReporter  *progress.ProgressReporter
	mu                sync.Mutex
}

// New creates a new Cleaner
func New(cfg *config.Config, logger *zap.Logger) *Cleaner {
	if logger == nil {
		logger = zap.NewNop()
	}

	pv := security.NewPathValidator(cfg.Explorer.Root)
	for _, p := range cfg.ProtectedPaths {
		pv.AddProtectedPath(p)
	}

	return &Cleaner{
		root:              filepath.Clean(cfg.Explorer.Root),
		dryRun:            cfg.DryRun,
		pathValidator:     pv,
		permissionManager: NewPermissionManager(),
		manifest:          NewDeletionManifest(),
		logger:            logger.Named("cleaner"),
	}
}

// SetDryRun toggles reporting-only mode
func (c *Cleaner) SetDryRun(dryRun bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dryRun = dryRun
}

// SetProgressReporter sets a custom progress reporter
func (c *Cleaner) SetProgressReporter(pr *progress.ProgressReporter) {
	c.progressReporter = pr
}

// Clean removes each root-relative path and everything below it. A node that
// cannot be removed is recorded and the walk moves on to its siblings, so the
// batch always runs to completion. Cancellation is honored only between
// paths; a path that was started is finished.
func (c *Cleaner) Clean(ctx context.Context, relPaths []string) *CleanResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &CleanResult{
		Cleaned: []string{},
		Missing: []string{},
		Failed:  []string{},
		Skipped: []string{},
		Errors:  []*DeletionError{},
		DryRun:  c.dryRun,
	}

	startTime := time.Now()
	total := len(relPaths)
	c.reportCleanProgress(progress.PhaseCleaning, "", 0, total, 0, 0, startTime)

	for i, rel := range relPaths {
		if ctx.Err() != nil {
			result.Skipped = append(result.Skipped, relPaths[i:]...)
			break
		}

		c.reportCleanProgress(progress.PhaseCleaning, rel, i, total, result.FreedSize, len(result.Failed), startTime)
		c.cleanOne(rel, result)
	}

	c.reportCleanProgress(progress.PhaseComplete, "", total-len(result.Skipped), total, result.FreedSize, len(result.Failed), startTime)

	c.logger.Info("clean finished",
		zap.Int("cleaned", len(result.Cleaned)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("missing", len(result.Missing)),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("freed", humanize.IBytes(uint64(result.FreedSize))),
		zap.Bool("dry_run", result.DryRun))

	return result
}

func (c *Cleaner) cleanOne(rel string, result *CleanResult) {
	abs, err := c.pathValidator.Resolve(rel)
	if err != nil {
		c.fail(rel, result, &DeletionError{Path: rel, Reason: ErrorInvalidPath, Original: err})
		return
	}

	// Fresh validation: the tree may have changed since any cached check
	if err := c.pathValidator.ValidatePathForDeletion(abs); err != nil {
		c.fail(rel, result, &DeletionError{Path: abs, Reason: ErrorProtectedPath, Original: err})
		return
	}

	if _, err := os.Lstat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Missing = append(result.Missing, rel)
			return
		}
		c.fail(rel, result, CategorizeError(abs, err))
		return
	}

	if c.dryRun {
		size := scanner.SizeOf(abs)
		result.Cleaned = append(result.Cleaned, rel)
		result.FreedSize += size
		result.RemovedItems++
		return
	}

	freed, removed, errs := removeTree(abs)
	result.FreedSize += freed
	result.RemovedItems += removed

	if len(errs) > 0 {
		result.Errors = append(result.Errors, errs...)
		result.Failed = append(result.Failed, rel)
		for _, e := range errs {
			c.logger.Warn("failed to delete", zap.String("path", e.Path), zap.Stringer("reason", e.Reason), zap.Error(e.Original))
		}
		return
	}

	c.manifest.Add(rel, freed)
	result.Cleaned = append(result.Cleaned, rel)
	c.logger.Debug("removed", zap.String("path", rel), zap.Int64("bytes", freed))
}

func (c *Cleaner) fail(rel string, result *CleanResult, err *DeletionError) {
	result.Failed = append(result.Failed, rel)
	result.Errors = append(result.Errors, err)
	c.logger.Warn("refusing to clean path", zap.String("path", rel), zap.Error(err))
}

type removeFrame struct {
	path     string
	parent   *removeFrame
	expanded bool
	failed   bool
}

// removeTree deletes path bottom-up with an explicit stack. Symlinks are
// unlinked, never followed. A directory whose descendants could not all be
// removed is left in place without a redundant error of its own.
func removeTree(path string) (freed int64, removed int, errs []*DeletionError) {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, []*DeletionError{CategorizeError(path, err)}
	}

	if !info.IsDir() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, 0, []*DeletionError{CategorizeError(path, err)}
		}
		if info.Mode().IsRegular() {
			freed = info.Size()
		}
		return freed, 1, nil
	}

	stack := []*removeFrame{{path: path}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if !top.expanded {
			top.expanded = true

			entries, err := os.ReadDir(top.path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, CategorizeError(top.path, err))
				top.failed = true
			}

			for _, d := range entries {
				child := filepath.Join(top.path, d.Name())
				if d.IsDir() {
					stack = append(stack, &removeFrame{path: child, parent: top})
					continue
				}

				var size int64
				if d.Type().IsRegular() {
					if fi, err := d.Info(); err == nil {
						size = fi.Size()
					}
				}
				if err := os.Remove(child); err != nil {
					if errors.Is(err, fs.ErrNotExist) {
						continue
					}
					errs = append(errs, CategorizeError(child, err))
					top.failed = true
					continue
				}
				freed += size
				removed++
			}
			continue
		}

		stack = stack[:len(stack)-1]
		if top.failed {
			if top.parent != nil {
				top.parent.failed = true
			}
			continue
		}

		if err := os.Remove(top.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, CategorizeError(top.path, err))
			if top.parent != nil {
				top.parent.failed = true
			}
			continue
		}
		removed++
	}

	return freed, removed, errs
}

// PlanItem describes what cleaning one path would do
type PlanItem struct {
	RelPath        string
	Size           int64
	Exists         bool
	NeedsElevation bool
	Blocked        error // Non-nil when the path would be refused
}

// Plan previews a clean without touching disk
type Plan struct {
	Items     []PlanItem
	TotalSize int64
}

// Blocked returns the items that would be refused
func (p *Plan) Blocked() []PlanItem {
	var out []PlanItem
	for _, it := range p.Items {
		if it.Blocked != nil {
			out = append(out, it)
		}
	}
	return out
}

// Plan validates and sizes each path without touching disk. Validation
// results are cached; Clean validates again before deleting.
func (c *Cleaner) Plan(relPaths []string) *Plan {
	plan := &Plan{Items: make([]PlanItem, 0, len(relPaths))}

	for _, rel := range relPaths {
		item := PlanItem{RelPath: rel}

		abs, err := c.pathValidator.Resolve(rel)
		if err != nil {
			item.Blocked = err
			plan.Items = append(plan.Items, item)
			continue
		}
		if err := c.pathValidator.ValidateCached(abs); err != nil {
			item.Blocked = err
			plan.Items = append(plan.Items, item)
			continue
		}

		if _, err := os.Lstat(abs); err == nil {
			item.Exists = true
			item.Size = scanner.SizeOf(abs)
			item.NeedsElevation = c.permissionManager.RequiresElevation(abs)
			plan.TotalSize += item.Size
		}
		plan.Items = append(plan.Items, item)
	}

	return plan
}

// GetManifest returns the deletion manifest
func (c *Cleaner) GetManifest() *DeletionManifest {
	return c.manifest
}

// SaveManifest saves the deletion manifest to a file
func (c *Cleaner) SaveManifest(path string) error {
	return c.manifest.Save(path)
}

// reportCleanProgress reports clean progress to listeners
func (c *Cleaner) reportCleanProgress(phase progress.Phase, current string, done, total int, freed int64, failed int, startTime time.Time) {
	if c.progressReporter == nil {
		return
	}

	c.progressReporter.UpdateCleanProgress(&progress.CleanProgress{
		Phase:       phase,
		CurrentPath: current,
		PathsDone:   done,
		PathsTotal:  total,
		FreedSize:   freed,
		FailedPaths: failed,
		DryRun:      c.dryRun,
		StartTime:   startTime,
	})
}

// DeletionManifest keeps track of removed paths
type DeletionManifest struct {
	mu        sync.Mutex
	Files     []DeletedFileInfo
	Timestamp time.Time
	TotalSize int64
}

// DeletedFileInfo represents one removed root child
type DeletedFileInfo struct {
	Path      string
	Size      int64
	DeletedAt time.Time
}

// NewDeletionManifest creates a new DeletionManifest
func NewDeletionManifest() *DeletionManifest {
	return &DeletionManifest{
		Files:     []DeletedFileInfo{},
		Timestamp: time.Now(),
	}
}

// Add adds a path to the manifest
func (m *DeletionManifest) Add(path string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Files = append(m.Files, DeletedFileInfo{
		Path:      path,
		Size:      size,
		DeletedAt: time.Now(),
	})
	m.TotalSize += size
}

// Save saves the manifest to a file
func (m *DeletionManifest) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "Deletion Manifest\n")
	fmt.Fprintf(file, "Created: %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(file, "Total Size: %d bytes (%s)\n", m.TotalSize, humanize.IBytes(uint64(m.TotalSize)))
	fmt.Fprintf(file, "Total Paths: %d\n\n", len(m.Files))

	for _, f := range m.Files {
		fmt.Fprintf(file, "%s | %d bytes | %s\n",
			f.Path, f.Size, f.DeletedAt.Format(time.RFC3339))
	}

	return file.Close()
}
