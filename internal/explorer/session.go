// Package explorer ties scanning, selection, sorting and cleaning together
// into one session over a storage root.
package explorer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/notify"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/selection"
	"github.com/fenilsonani/folder-cleaner/internal/sorting"
)

var (
	// ErrUnknownPath is returned when toggling a path that is not listed
	ErrUnknownPath = errors.New("path is not in the current listing")
	// ErrClosed is returned by every operation after Close
	ErrClosed = errors.New("session is closed")
)

// ModeStore persists the sort mode between sessions
type ModeStore interface {
	SortMode() sorting.Mode
	SetSortMode(mode sorting.Mode) error
}

// Deps are the collaborators a Session drives. Signal and Logger are optional.
type Deps struct {
	Scanner *scanner.Scanner
	Store   *selection.Store
	Sorter  *sorting.Sorter
	Cleaner *cleaner.Cleaner
	Modes   ModeStore
	Signal  notify.Signal
	Logger  *zap.Logger
}

type (
	sizeFunc  func(ctx context.Context, relPaths []string) (int64, error)
	scanFunc  func(ctx context.Context) ([]scanner.Entry, error)
	cleanFunc func(ctx context.Context, relPaths []string) *cleaner.CleanResult
)

// Session owns the listing and sort mode for one root. Commands are meant to
// be issued from a single goroutine; scans, size aggregation and deletion run
// in the background and report through listeners.
type Session struct {
	scanner *scanner.Scanner
	store   *selection.Store
	sorter  *sorting.Sorter
	cleaner *cleaner.Cleaner
	modes   ModeStore
	signal  notify.Signal
	logger  *zap.Logger
	sizeOf  sizeFunc
	scan    scanFunc
	clean   cleanFunc

	mu        sync.Mutex
	entries   []scanner.Entry
	mode      sorting.Mode
	listeners map[uint64]Listener
	nextID    uint64
	closed    bool

	// opMu serializes refresh and clean
	opMu    sync.Mutex
	refresh singleflight.Group

	sizeGen    atomic.Uint64
	sizeMu     sync.Mutex
	lastSize   atomic.Int64
	entriesVer atomic.Uint64
	entriesMu  sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession creates a session. The sort mode is restored from deps.Modes;
// the listing stays empty until the first Refresh.
func NewSession(deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	signal := deps.Signal
	if signal == nil {
		signal = notify.Nop{}
	}
	sorter := deps.Sorter
	if sorter == nil {
		sorter = sorting.New("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		scanner:   deps.Scanner,
		store:     deps.Store,
		sorter:    sorter,
		cleaner:   deps.Cleaner,
		modes:     deps.Modes,
		signal:    signal,
		logger:    logger.Named("explorer"),
		entries:   []scanner.Entry{},
		mode:      sorting.ByName,
		listeners: make(map[uint64]Listener),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.sizeOf = s.scanner.SizeOfPaths
	s.scan = s.scanner.Scan
	s.clean = s.cleaner.Clean

	if s.modes != nil {
		s.mode = s.modes.SortMode()
	}
	return s
}

// Subscribe registers a listener until the returned Subscription is cancelled
func (s *Session) Subscribe(l Listener) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	if !s.closed {
		s.listeners[id] = l
	}
	return &Subscription{session: s, id: id}
}

// Entries returns a copy of the current listing
func (s *Session) Entries() []scanner.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanner.Clone(s.entries)
}

// Mode returns the current sort mode
func (s *Session) Mode() sorting.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Selected returns the selected paths in listing order
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scanner.SelectedPaths(s.entries)
}

// LastSize returns the most recently delivered aggregate size
func (s *Session) LastSize() int64 {
	return s.lastSize.Load()
}

// Refresh rescans the root in the background. Requests made while a scan is
// running share its result.
func (s *Session) Refresh() error {
	if s.isClosed() {
		return ErrClosed
	}
	s.goAsync(s.refreshNow)
	return nil
}

func (s *Session) refreshNow() {
	s.refresh.Do("refresh", func() (interface{}, error) {
		s.opMu.Lock()
		defer s.opMu.Unlock()

		entries, err := s.scan(s.ctx)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil, nil
			}
			s.logger.Warn("scan failed, showing empty listing", zap.Error(err))
			entries = []scanner.Entry{}
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, nil
		}
		selection.ApplySelection(entries, s.store.Load())
		s.entries = s.sorter.Sort(entries, s.mode)
		ver, snapshot := s.snapshotLocked()
		s.requestSizeLocked()
		s.mu.Unlock()

		s.logger.Debug("refreshed", zap.Int("entries", len(snapshot)))
		s.deliverEntries(ver, snapshot)
		s.notify("refresh")
		return nil, nil
	})
}

// Toggle flips the selection of one listed path and persists the selected
// entries of the current listing. Saved paths that are not listed, such as
// names excluded since the last refresh, are dropped from the saved set.
func (s *Session) Toggle(relPath string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	idx := -1
	for i := range s.entries {
		if s.entries[i].RelPath == relPath {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrUnknownPath
	}

	s.entries[idx].Selected = !s.entries[idx].Selected
	if err := s.store.Save(scanner.SelectedPaths(s.entries)); err != nil {
		s.logger.Warn("failed to persist selection", zap.Error(err))
	}
	ver, snapshot := s.snapshotLocked()
	s.requestSizeLocked()
	s.mu.Unlock()

	s.deliverEntries(ver, snapshot)
	s.notify("toggle")
	return nil
}

// ChangeSort advances to the next sort mode, persists it and reorders the
// listing without rescanning.
func (s *Session) ChangeSort() (sorting.Mode, error) {
	s.mu.Lock()
	if s.closed {
		mode := s.mode
		s.mu.Unlock()
		return mode, ErrClosed
	}

	s.mode = s.mode.Next()
	mode := s.mode
	if s.modes != nil {
		if err := s.modes.SetSortMode(mode); err != nil {
			s.logger.Warn("failed to persist sort mode", zap.Error(err))
		}
	}

	s.entries = s.sorter.Sort(s.entries, mode)
	selection.ApplySelection(s.entries, s.store.Load())
	ver, snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("sort mode changed", zap.Stringer("mode", mode))
	s.deliverEntries(ver, snapshot)
	s.notify("sort")
	return mode, nil
}

// DeselectAll clears every selection and persists the empty set
func (s *Session) DeselectAll() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	for i := range s.entries {
		s.entries[i].Selected = false
	}
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("failed to clear selection", zap.Error(err))
	}
	ver, snapshot := s.snapshotLocked()
	s.requestSizeLocked()
	s.mu.Unlock()

	s.deliverEntries(ver, snapshot)
	s.notify("deselect all")
	return nil
}

// AggregateSize requests the combined size of the persisted selection
func (s *Session) AggregateSize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.requestSizeLocked()
	return nil
}

// CleanSelected deletes the selected paths in the background, reports the
// result to listeners and then rescans. It returns false without touching the
// disk when nothing is selected.
func (s *Session) CleanSelected() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	paths := s.store.Load()
	s.mu.Unlock()

	if len(paths) == 0 {
		s.logger.Info("nothing to clean")
		return false
	}

	s.goAsync(func() {
		s.opMu.Lock()
		result := s.clean(context.Background(), paths)
		s.opMu.Unlock()

		if !s.isClosed() {
			for _, l := range s.listenerSnapshot() {
				l.OnCleaned(result)
			}
		}
		s.notify("clean")
		// a scan that started before the delete must not be shared
		s.refresh.Forget("refresh")
		s.refreshNow()
	})
	return true
}

// Wait blocks until all background work has finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close detaches every listener. Work already running finishes but its
// results are dropped.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.listeners = map[uint64]Listener{}
	s.cancel()
	s.logger.Debug("session closed")
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) goAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Session) listenerSnapshot() []Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	return ls
}

// snapshotLocked stamps the listing with a new version. Caller holds s.mu.
func (s *Session) snapshotLocked() (uint64, []scanner.Entry) {
	return s.entriesVer.Add(1), scanner.Clone(s.entries)
}

// requestSizeLocked issues a size computation over the persisted selection as
// it is right now. Caller holds s.mu.
func (s *Session) requestSizeLocked() {
	paths := s.store.Load()
	gen := s.sizeGen.Add(1)

	s.goAsync(func() {
		size, err := s.sizeOf(s.ctx, paths)
		if err != nil {
			s.logger.Debug("size computation abandoned", zap.Uint64("generation", gen), zap.Error(err))
			return
		}
		s.deliverSize(gen, size)
	})
}

func (s *Session) deliverSize(gen uint64, size int64) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()

	if gen != s.sizeGen.Load() {
		s.logger.Debug("discarding stale size", zap.Uint64("generation", gen))
		return
	}
	if s.isClosed() {
		return
	}

	s.lastSize.Store(size)
	for _, l := range s.listenerSnapshot() {
		l.OnSize(size)
	}
}

func (s *Session) deliverEntries(ver uint64, entries []scanner.Entry) {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	if ver != s.entriesVer.Load() {
		return
	}
	for _, l := range s.listenerSnapshot() {
		l.OnEntries(scanner.Clone(entries))
	}
}

func (s *Session) notify(reason string) {
	if err := s.signal.Notify(reason); err != nil {
		s.logger.Warn("failed to signal change", zap.String("reason", reason), zap.Error(err))
	}
}
