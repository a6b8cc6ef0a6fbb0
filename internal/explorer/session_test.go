package explorer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fenilsonani/folder-cleaner/internal/cleaner"
	"github.com/fenilsonani/folder-cleaner/internal/config"
	"github.com/fenilsonani/folder-cleaner/internal/notify"
	"github.com/fenilsonani/folder-cleaner/internal/scanner"
	"github.com/fenilsonani/folder-cleaner/internal/selection"
	"github.com/fenilsonani/folder-cleaner/internal/sorting"
	"github.com/fenilsonani/folder-cleaner/internal/state"
	"github.com/fenilsonani/folder-cleaner/internal/testutil"
)

// recorder collects everything a session delivers
type recorder struct {
	mu      sync.Mutex
	entries [][]scanner.Entry
	sizes   []int64
	cleaned []*cleaner.CleanResult
}

func (r *recorder) OnEntries(entries []scanner.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries)
}

func (r *recorder) OnSize(bytes int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes = append(r.sizes, bytes)
}

func (r *recorder) OnCleaned(result *cleaner.CleanResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleaned = append(r.cleaned, result)
}

func (r *recorder) lastEntries() []scanner.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	return r.entries[len(r.entries)-1]
}

func (r *recorder) lastSize() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sizes) == 0 {
		return 0, false
	}
	return r.sizes[len(r.sizes)-1], true
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.sizes = nil
	r.cleaned = nil
}

type testSession struct {
	*Session
	fixture *testutil.TestFixture
	store   *selection.Store
	modes   *state.Memory
	rec     *recorder
}

func newTestSession(t *testing.T, f *testutil.TestFixture) *testSession {
	t.Helper()

	root := f.RootDir
	cfg := &config.Config{
		Explorer: config.ExplorerConfig{
			Root:          root,
			SelectionFile: filepath.Join(root, config.DefaultSelectionDir, config.DefaultSelectionName),
			ReservedNames: []string{"Android"},
			Workers:       2,
		},
	}

	store := selection.NewStore(cfg.Explorer.SelectionFile, root, nil)
	modes := state.NewMemory()
	s := NewSession(Deps{
		Scanner: scanner.New(cfg, nil),
		Store:   store,
		Sorter:  sorting.New("und"),
		Cleaner: cleaner.New(cfg, nil),
		Modes:   modes,
		Signal:  notify.NewFileSignal(notify.PathFor(cfg.Explorer.SelectionFile)),
	})
	t.Cleanup(func() {
		s.Close()
		s.Wait()
	})

	rec := &recorder{}
	s.Subscribe(rec)

	return &testSession{Session: s, fixture: f, store: store, modes: modes, rec: rec}
}

func (ts *testSession) refresh(t *testing.T) {
	t.Helper()
	if err := ts.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	ts.Wait()
}

func relPaths(entries []scanner.Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.RelPath
	}
	return paths
}

// ============================================================================
// End-to-end
// ============================================================================

func TestEndToEndScenario(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("A/one.bin", 512*1024)
	f.CreateSizedFile("A/two.bin", 512*1024)
	f.CreateDir("B")
	f.CreateSizedFile(".hidden/blob.bin", testutil.MiB)

	ts := newTestSession(t, f)
	ts.refresh(t)

	entries := ts.rec.lastEntries()
	if got := relPaths(entries); !testutil.EqualStrings(got, []string{"A", "B"}) {
		t.Fatalf("listing = %v, want [A B]", got)
	}
	if entries[0].Size != testutil.MiB || !entries[0].IsDir {
		t.Errorf("A = %+v, want 1 MiB directory", entries[0])
	}
	if entries[1].Size != 0 || !entries[1].IsDir {
		t.Errorf("B = %+v, want empty directory", entries[1])
	}

	if err := ts.Toggle("A"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	ts.Wait()
	if err := ts.AggregateSize(); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	if size, ok := ts.rec.lastSize(); !ok || size != testutil.MiB {
		t.Errorf("aggregate size = %d (%v), want %d", size, ok, testutil.MiB)
	}
	if ts.LastSize() != testutil.MiB {
		t.Errorf("LastSize = %d", ts.LastSize())
	}

	if !ts.CleanSelected() {
		t.Fatal("CleanSelected reported nothing to clean")
	}
	ts.Wait()

	f.AssertNotExists(f.Path("A"))
	f.AssertExists(f.Path("B"))
	f.AssertExists(f.Path(".hidden/blob.bin"))

	ts.rec.mu.Lock()
	cleaned := ts.rec.cleaned
	ts.rec.mu.Unlock()
	if len(cleaned) != 1 || !testutil.EqualStrings(cleaned[0].Cleaned, []string{"A"}) {
		t.Fatalf("clean results = %+v", cleaned)
	}

	if got := relPaths(ts.rec.lastEntries()); !testutil.EqualStrings(got, []string{"B"}) {
		t.Errorf("listing after clean = %v, want [B]", got)
	}
	if got := ts.store.Load(); len(got) != 0 {
		t.Errorf("selection after clean = %v, want empty", got)
	}
	if size, _ := ts.rec.lastSize(); size != 0 {
		t.Errorf("size after clean = %d, want 0", size)
	}
}

func TestRefreshAppliesPersistedSelection(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("Movies")
	f.CreateDir("Music")

	ts := newTestSession(t, f)
	if err := ts.store.Save([]string{"Music", "Gone"}); err != nil {
		t.Fatal(err)
	}
	ts.refresh(t)

	for _, e := range ts.Entries() {
		if want := e.RelPath == "Music"; e.Selected != want {
			t.Errorf("%s selected = %v, want %v", e.RelPath, e.Selected, want)
		}
	}
	if got := ts.store.Load(); !testutil.EqualStrings(got, []string{"Music"}) {
		t.Errorf("persisted selection = %v, want [Music]", got)
	}
}

func TestRefreshMissingRoot(t *testing.T) {
	f := testutil.NewFixture(t)
	f.RootDir = filepath.Join(f.RootDir, "absent")

	ts := newTestSession(t, f)
	ts.refresh(t)

	if got := ts.Entries(); len(got) != 0 {
		t.Errorf("entries = %v, want none", got)
	}
	if size, ok := ts.rec.lastSize(); !ok || size != 0 {
		t.Errorf("size = %d (%v), want 0", size, ok)
	}
}

// ============================================================================
// Selection
// ============================================================================

func TestToggleUnknownPath(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("Pictures")

	ts := newTestSession(t, f)
	ts.refresh(t)

	if err := ts.Toggle("Nope"); !errors.Is(err, ErrUnknownPath) {
		t.Errorf("Toggle(Nope) = %v, want ErrUnknownPath", err)
	}
}

func TestTogglePersistsAndFlipsBack(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("Pictures/a.jpg", 300)
	f.CreateSizedFile("Videos/b.mp4", 700)

	ts := newTestSession(t, f)
	ts.refresh(t)

	if err := ts.Toggle("Pictures"); err != nil {
		t.Fatal(err)
	}
	if err := ts.Toggle("Videos"); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	if got := testutil.SortedCopy(ts.store.Load()); !testutil.EqualStrings(got, []string{"Pictures", "Videos"}) {
		t.Errorf("persisted = %v", got)
	}
	if size, _ := ts.rec.lastSize(); size != 1000 {
		t.Errorf("size = %d, want 1000", size)
	}

	if err := ts.Toggle("Pictures"); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	if got := ts.Selected(); !testutil.EqualStrings(got, []string{"Videos"}) {
		t.Errorf("Selected = %v, want [Videos]", got)
	}
	if size, _ := ts.rec.lastSize(); size != 700 {
		t.Errorf("size = %d, want 700", size)
	}
}

func TestDeselectAll(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("Documents/cv.pdf", 2048)
	f.CreateSizedFile("Downloads/setup.exe", 4096)

	ts := newTestSession(t, f)
	ts.refresh(t)
	for _, p := range []string{"Documents", "Downloads"} {
		if err := ts.Toggle(p); err != nil {
			t.Fatal(err)
		}
	}
	ts.Wait()

	if err := ts.DeselectAll(); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	if got := ts.Selected(); len(got) != 0 {
		t.Errorf("Selected = %v, want none", got)
	}
	data, err := os.ReadFile(ts.store.Path())
	if err != nil {
		t.Fatalf("selection file: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("selection file = %q, want empty", data)
	}
	if size, _ := ts.rec.lastSize(); size != 0 {
		t.Errorf("size = %d, want 0", size)
	}
}

func TestCleanSelectedNothingSelected(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("Keep")

	ts := newTestSession(t, f)
	ts.refresh(t)

	if ts.CleanSelected() {
		t.Error("CleanSelected should report nothing to clean")
	}
	ts.Wait()
	f.AssertExists(f.Path("Keep"))
}

// ============================================================================
// Sorting
// ============================================================================

func TestChangeSort(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("alpha/x", 10)
	f.CreateSizedFile("beta/x", 30)
	f.CreateSizedFile("gamma/x", 20)

	ts := newTestSession(t, f)
	ts.refresh(t)
	if err := ts.Toggle("gamma"); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	if got := relPaths(ts.Entries()); !testutil.EqualStrings(got, []string{"alpha", "beta", "gamma"}) {
		t.Fatalf("by name = %v", got)
	}

	mode, err := ts.ChangeSort()
	if err != nil || mode != sorting.BySize {
		t.Fatalf("ChangeSort = %v, %v", mode, err)
	}
	if got := relPaths(ts.rec.lastEntries()); !testutil.EqualStrings(got, []string{"beta", "gamma", "alpha"}) {
		t.Errorf("by size = %v", got)
	}
	if ts.modes.SortMode() != sorting.BySize {
		t.Error("sort mode was not persisted")
	}
	if got := ts.Selected(); !testutil.EqualStrings(got, []string{"gamma"}) {
		t.Errorf("selection lost on resort: %v", got)
	}

	if mode, _ := ts.ChangeSort(); mode != sorting.ByName {
		t.Errorf("second ChangeSort = %v, want ByName", mode)
	}
}

func TestSessionRestoresSortMode(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("small/x", 1)
	f.CreateSizedFile("large/x", 100)

	ts := newTestSession(t, f)
	if err := ts.modes.SetSortMode(sorting.BySize); err != nil {
		t.Fatal(err)
	}

	s := NewSession(Deps{
		Scanner: ts.scanner,
		Store:   ts.store,
		Cleaner: ts.cleaner,
		Modes:   ts.modes,
	})
	defer s.Close()

	if s.Mode() != sorting.BySize {
		t.Fatalf("Mode = %v, want BySize", s.Mode())
	}
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	s.Wait()

	if got := relPaths(s.Entries()); !testutil.EqualStrings(got, []string{"large", "small"}) {
		t.Errorf("entries = %v", got)
	}
}

// ============================================================================
// Ordering and lifecycle
// ============================================================================

// gatedSizer blocks each computation until released, keyed by selection size
type gatedSizer struct {
	gates map[int]chan struct{}
}

func newGatedSizer(counts ...int) *gatedSizer {
	g := &gatedSizer{gates: make(map[int]chan struct{})}
	for _, n := range counts {
		g.gates[n] = make(chan struct{})
	}
	return g
}

func (g *gatedSizer) sizeOf(ctx context.Context, paths []string) (int64, error) {
	gate, ok := g.gates[len(paths)]
	if ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return int64(len(paths)) * 100, nil
}

func TestOnlyLatestSizeIsDelivered(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("one")
	f.CreateDir("two")
	f.CreateDir("three")

	ts := newTestSession(t, f)
	ts.refresh(t)
	ts.rec.reset()

	gated := newGatedSizer(1, 2, 3)
	ts.sizeOf = gated.sizeOf

	for _, p := range []string{"one", "two", "three"} {
		if err := ts.Toggle(p); err != nil {
			t.Fatal(err)
		}
	}

	close(gated.gates[3])
	close(gated.gates[1])
	close(gated.gates[2])
	ts.Wait()

	ts.rec.mu.Lock()
	sizes := append([]int64(nil), ts.rec.sizes...)
	ts.rec.mu.Unlock()

	if len(sizes) != 1 || sizes[0] != 300 {
		t.Errorf("delivered sizes = %v, want [300]", sizes)
	}
}

// gatedOps wraps the real scan and clean, holding scans until released and
// recording whether a scan and a clean ever ran at once
type gatedOps struct {
	mu       sync.Mutex
	scanning int
	cleaning int
	scans    int
	overlap  bool

	scanGate chan struct{}
	started  chan string

	scan  scanFunc
	clean cleanFunc
}

func newGatedOps(s *Session) *gatedOps {
	return &gatedOps{
		scanGate: make(chan struct{}),
		started:  make(chan string, 16),
		scan:     s.scan,
		clean:    s.clean,
	}
}

func (g *gatedOps) enter(kind string) {
	g.mu.Lock()
	switch kind {
	case "scan":
		g.scans++
		g.scanning++
	case "clean":
		g.cleaning++
	}
	if g.scanning+g.cleaning > 1 {
		g.overlap = true
	}
	g.mu.Unlock()
	g.started <- kind
}

func (g *gatedOps) leave(kind string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if kind == "scan" {
		g.scanning--
	} else {
		g.cleaning--
	}
}

func (g *gatedOps) gatedScan(ctx context.Context) ([]scanner.Entry, error) {
	g.enter("scan")
	defer g.leave("scan")
	<-g.scanGate
	return g.scan(ctx)
}

func (g *gatedOps) gatedClean(ctx context.Context, paths []string) *cleaner.CleanResult {
	g.enter("clean")
	defer g.leave("clean")
	return g.clean(ctx, paths)
}

func waitStarted(t *testing.T, g *gatedOps, want string) {
	t.Helper()
	select {
	case got := <-g.started:
		if got != want {
			t.Fatalf("started %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s never started", want)
	}
}

func TestRefreshAndCleanAreSerialized(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("Old/a.bin", 2048)
	f.CreateDir("Keep")

	ts := newTestSession(t, f)
	ts.refresh(t)
	if err := ts.Toggle("Old"); err != nil {
		t.Fatal(err)
	}
	ts.Wait()
	ts.rec.reset()

	ops := newGatedOps(ts.Session)
	ts.scan = ops.gatedScan
	ts.clean = ops.gatedClean

	if err := ts.Refresh(); err != nil {
		t.Fatal(err)
	}
	waitStarted(t, ops, "scan")

	// both join the scan that is already running
	for i := 0; i < 2; i++ {
		if err := ts.Refresh(); err != nil {
			t.Fatal(err)
		}
	}
	if !ts.CleanSelected() {
		t.Fatal("CleanSelected returned false with a selection")
	}
	time.Sleep(50 * time.Millisecond)

	select {
	case kind := <-ops.started:
		t.Fatalf("%s started while a scan was running", kind)
	default:
	}

	close(ops.scanGate)
	ts.Wait()

	ops.mu.Lock()
	overlap, scans := ops.overlap, ops.scans
	ops.mu.Unlock()

	if overlap {
		t.Error("a scan and a clean ran at the same time")
	}
	// the coalesced refresh plus the rescan after cleaning
	if scans != 2 {
		t.Errorf("scans = %d, want 2", scans)
	}

	ts.rec.mu.Lock()
	cleaned := len(ts.rec.cleaned)
	ts.rec.mu.Unlock()
	if cleaned != 1 {
		t.Errorf("clean results delivered = %d, want 1", cleaned)
	}

	f.AssertNotExists(f.Path("Old"))
	if got := relPaths(ts.Entries()); !testutil.EqualStrings(got, []string{"Keep"}) {
		t.Errorf("entries after clean = %v, want [Keep]", got)
	}
	if got := relPaths(ts.rec.lastEntries()); !testutil.EqualStrings(got, []string{"Keep"}) {
		t.Errorf("last delivered entries = %v, want [Keep]", got)
	}
}

func TestCloseDropsResults(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("one")

	ts := newTestSession(t, f)
	ts.refresh(t)
	ts.rec.reset()

	gated := newGatedSizer(1)
	ts.sizeOf = gated.sizeOf

	if err := ts.Toggle("one"); err != nil {
		t.Fatal(err)
	}
	if err := ts.Close(); err != nil {
		t.Fatal(err)
	}
	close(gated.gates[1])
	ts.Wait()

	ts.rec.mu.Lock()
	defer ts.rec.mu.Unlock()
	if len(ts.rec.sizes) != 0 {
		t.Errorf("sizes delivered after Close: %v", ts.rec.sizes)
	}

	if err := ts.Refresh(); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh after Close = %v, want ErrClosed", err)
	}
	if err := ts.Toggle("one"); !errors.Is(err, ErrClosed) {
		t.Errorf("Toggle after Close = %v, want ErrClosed", err)
	}
	if ts.CleanSelected() {
		t.Error("CleanSelected after Close should not start")
	}
}

func TestSubscriptionCancel(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("one")

	ts := newTestSession(t, f)
	other := &recorder{}
	sub := ts.Subscribe(other)
	sub.Cancel()
	sub.Cancel()

	ts.refresh(t)

	if len(other.entries) != 0 || len(other.sizes) != 0 {
		t.Errorf("cancelled listener still received %d listings, %d sizes", len(other.entries), len(other.sizes))
	}
	if ts.rec.lastEntries() == nil {
		t.Error("remaining listener received nothing")
	}
}

func TestListenerFuncs(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateSizedFile("one/x", 5)

	ts := newTestSession(t, f)

	var mu sync.Mutex
	var got int64 = -1
	ts.Subscribe(ListenerFuncs{Size: func(n int64) {
		mu.Lock()
		got = n
		mu.Unlock()
	}})

	ts.refresh(t)
	if err := ts.Toggle("one"); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got != 5 {
		t.Errorf("size = %d, want 5", got)
	}
}

func TestChangesAreSignalled(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateDir("one")

	ts := newTestSession(t, f)
	ts.refresh(t)
	if err := ts.Toggle("one"); err != nil {
		t.Fatal(err)
	}
	ts.Wait()

	stamp, err := notify.ReadStamp(notify.PathFor(ts.store.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if stamp.Seq != 2 || stamp.Reason != "toggle" {
		t.Errorf("stamp = %+v, want seq 2 toggle", stamp)
	}
}
