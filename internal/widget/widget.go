// Package widget is the out-of-process companion to the explorer: it shows
// the size of the persisted cleaning list and cleans it on demand.
package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/notify"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/selection"
	"github.com/fenilsonani/folder-cleaner/pkg/utils"
)

// ErrNothingToClean is returned by Click when the cleaning list is empty
var ErrNothingToClean = errors.New("nothing to clean")

// Display is what the widget currently shows
type Display struct {
	Bytes int64
	Value string // one decimal, e.g. "12.3"
	Unit  string // MB or GB
	At    time.Time
}

// String renders the display as "12.3 MB"
func (d Display) String() string {
	return d.Value + " " + d.Unit
}

// Widget keeps the displayed size in step with the cleaning list
type Widget struct {
	store     *selection.Store
	scanner   *scanner.Scanner
	cleaner   *cleaner.Cleaner
	signal    *notify.FileSignal
	scheduler *Scheduler
	logger    *zap.Logger
	out       io.Writer

	pollInterval time.Duration

	mu      sync.Mutex
	display Display
	lastSeq int64
	running bool

	cleanMu sync.Mutex
	now     func() time.Time
}

// New creates a widget over the configured root and cleaning list.
// Each display change is written as a line to out.
func New(cfg *config.Config, logger *zap.Logger, out io.Writer) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}

	poll := cfg.Widget.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	w := &Widget{
		store:        selection.NewStore(cfg.Explorer.SelectionFile, cfg.Explorer.Root, logger),
		scanner:      scanner.New(cfg, logger),
		cleaner:      cleaner.New(cfg, logger),
		signal:       notify.NewFileSignal(notify.PathFor(cfg.Explorer.SelectionFile)),
		logger:       logger.Named("widget"),
		out:          out,
		pollInterval: poll,
		now:          time.Now,
	}
	w.scheduler = NewScheduler(w, cfg.Widget.Schedules, logger)
	return w
}

// Scheduler returns the widget's cron scheduler
func (w *Widget) Scheduler() *Scheduler {
	return w.scheduler
}

// Current returns the last computed display
func (w *Widget) Current() Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.display
}

// Run shows the current size, starts the schedules and then re-queries the
// size whenever the explorer signals a change. It returns when ctx is done.
func (w *Widget) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("widget already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	w.logger.Info("starting widget",
		zap.String("selection_file", w.store.Path()),
		zap.Duration("poll_interval", w.pollInterval))

	if stamp, err := notify.ReadStamp(w.signal.Path()); err == nil {
		w.setSeq(stamp.Seq)
	}
	if _, err := w.RefreshSize(ctx); err != nil {
		return err
	}

	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer w.scheduler.Stop()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("widget shutting down")
			return nil
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("poll failed", zap.Error(err))
			}
		}
	}
}

// Poll re-queries the size when the change stamp has moved. It reports
// whether a refresh happened.
func (w *Widget) Poll(ctx context.Context) (bool, error) {
	stamp, err := notify.ReadStamp(w.signal.Path())
	if err != nil {
		return false, fmt.Errorf("failed to read change signal: %w", err)
	}

	w.mu.Lock()
	changed := stamp.Seq != w.lastSeq
	w.lastSeq = stamp.Seq
	w.mu.Unlock()

	if !changed {
		return false, nil
	}

	w.logger.Debug("change signalled", zap.Int64("seq", stamp.Seq), zap.String("reason", stamp.Reason))
	if _, err := w.RefreshSize(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RefreshSize recomputes the size of the cleaning list and redraws
func (w *Widget) RefreshSize(ctx context.Context) (Display, error) {
	paths := w.store.Load()

	size, err := w.scanner.SizeOfPaths(ctx, paths)
	if err != nil {
		return Display{}, fmt.Errorf("failed to size cleaning list: %w", err)
	}

	value, unit := utils.SplitMegabytes(utils.ToMegabytes(size))
	d := Display{Bytes: size, Value: value, Unit: unit, At: w.now()}

	w.mu.Lock()
	w.display = d
	w.mu.Unlock()

	fmt.Fprintln(w.out, d.String())
	w.logger.Debug("size refreshed", zap.Int("paths", len(paths)), zap.Int64("bytes", size))
	return d, nil
}

// Click cleans everything on the list, then refreshes the size and tells
// the explorer the list changed.
func (w *Widget) Click(ctx context.Context) (*cleaner.CleanResult, error) {
	if !w.cleanMu.TryLock() {
		return nil, fmt.Errorf("a clean is already running")
	}
	defer w.cleanMu.Unlock()

	paths := w.store.Load()
	if len(paths) == 0 {
		w.logger.Info("nothing to clean")
		return nil, ErrNothingToClean
	}

	result := w.cleaner.Clean(ctx, paths)
	if len(result.Failed) > 0 {
		w.logger.Warn("clean finished with failures",
			zap.Strings("failed", result.Failed),
			zap.String("summary", cleaner.FormatErrorSummary(result.Errors)))
	}

	if err := w.signal.Notify("clean"); err != nil {
		w.logger.Warn("failed to signal change", zap.Error(err))
	} else if stamp, err := notify.ReadStamp(w.signal.Path()); err == nil {
		w.setSeq(stamp.Seq)
	}

	if _, err := w.RefreshSize(ctx); err != nil {
		return result, err
	}
	fmt.Fprintln(w.out, "Cleaned")
	return result, nil
}

// RunAction runs a scheduled action by name
func (w *Widget) RunAction(ctx context.Context, action string) error {
	switch action {
	case config.ActionSize:
		_, err := w.RefreshSize(ctx)
		return err
	case config.ActionClean:
		_, err := w.Click(ctx)
		if errors.Is(err, ErrNothingToClean) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown widget action %q", action)
	}
}

func (w *Widget) setSeq(seq int64) {
	w.mu.Lock()
	w.lastSeq = seq
	w.mu.Unlock()
}
