package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const mb = 1 << 20

type fakeLister struct {
	apps []packages.App
	err  error
}

func (f *fakeLister) List(ctx context.Context) ([]packages.App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.apps, f.err
}

func installed(ids ...string) *fakeLister {
	l := &fakeLister{}
	for _, id := range ids {
		l.apps = append(l.apps, packages.App{PackageName: id})
	}
	return l
}

type mockPass struct {
	name      string
	cands     []scanner.Candidate
	err       error
	ticks     [][2]int
	blockOnce atomic.Bool
	started   chan struct{}
}

func (m *mockPass) Name() string { return m.name }
func (m *mockPass) Run(ctx context.Context, env scanner.Env, progress scanner.ProgressFunc) ([]scanner.Candidate, error) {
	if m.blockOnce.CompareAndSwap(true, false) {
		if m.started != nil {
			close(m.started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for _, t := range m.ticks {
		progress(t[0], t[1])
	}
	return m.cands, m.err
}

// sparse creates a file of the given logical size without writing its data.
func sparse(t *testing.T, root, rel string, size int64) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	return path
}

func defaultEngine(root string, lister packages.Lister) *Engine {
	cfg := config.Default()
	e := New(root, lister)
	e.Register(scanner.NewShadowPass(cfg.Scan.ShadowPrefixes, cfg.Scan.Allowlist))
	e.Register(scanner.NewKnownPathPass(cfg.Scan.JunkPaths))
	e.Register(scanner.NewAppDataPass(cfg.Scan.AppDataRoots, cfg.Scan.CacheDirs, cfg.Scan.ProgressEvery))
	return e
}

func endToEndRoot(t *testing.T) string {
	root := t.TempDir()
	sparse(t, root, "DCIM/.thumbnails/a.jpg", 70*mb)
	sparse(t, root, "DCIM/.thumbnails/sub/b.jpg", 50*mb)
	sparse(t, root, "Android/data/com.orphaned.app/files/blob", 30*mb)
	sparse(t, root, "Android/data/com.installed.app/cache/c", 5*mb)
	sparse(t, root, "Android/data/com.installed.app/files/keep", 80*mb)
	return root
}

func TestDiscoverAndClean_EndToEnd(t *testing.T) {
	root := endToEndRoot(t)
	e := defaultEngine(root, installed("com.installed.app"))
	defer e.Close()

	summary, err := e.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(155*mb), summary.TotalBytes)
	assert.Equal(t, 3, summary.CandidateCount)
	assert.NotEmpty(t, summary.RunID)

	cands := e.Candidates()
	require.Len(t, cands, 3)
	assert.Equal(t, filepath.Join(root, "DCIM", ".thumbnails"), cands[0].Path)
	assert.Equal(t, filepath.Join(root, "Android", "data", "com.installed.app", "cache"), cands[1].Path)
	assert.Equal(t, filepath.Join(root, "Android", "data", "com.orphaned.app"), cands[2].Path)
	assert.Equal(t, StateSummary, e.Status().State)

	report, err := e.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(155*mb), report.Reclaimed)
	assert.Equal(t, 3, report.Deleted)
	assert.Zero(t, report.Failed)
	assert.Equal(t, summary.RunID, report.RunID)
	assert.Equal(t, []CategoryTotal{
		{Name: "Thumbnails", Count: 1, Bytes: 120 * mb},
		{Name: scanner.CategoryAppCache, Count: 1, Bytes: 5 * mb},
		{Name: scanner.CategoryOrphanedData, Count: 1, Bytes: 30 * mb},
	}, report.Categories)
	assert.Empty(t, e.Candidates())
	assert.Equal(t, StateFinished, e.Status().State)

	for _, c := range cands {
		_, err := os.Lstat(c.Path)
		assert.True(t, os.IsNotExist(err), "%s should be gone", c.Path)
	}
	_, err = os.Stat(filepath.Join(root, "Android", "data", "com.installed.app", "files", "keep"))
	assert.NoError(t, err, "app files outside cache survive")
}

func TestDiscover_Idempotent(t *testing.T) {
	root := endToEndRoot(t)
	e := defaultEngine(root, installed("com.installed.app"))
	defer e.Close()

	first, err := e.Discover(context.Background())
	require.NoError(t, err)
	firstCands := e.Candidates()

	second, err := e.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.TotalBytes, second.TotalBytes)
	assert.Equal(t, first.Categories, second.Categories)
	assert.Equal(t, firstCands, e.Candidates())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestDiscover_ProgressStaging(t *testing.T) {
	e := New(t.TempDir(), installed())
	defer e.Close()
	e.Register(&mockPass{name: "one"})
	e.Register(&mockPass{name: "two"})
	e.Register(&mockPass{name: "three", ticks: [][2]int{{0, 4}, {2, 4}, {1, 4}}})

	var statuses []Status
	e.OnStatus(func(s Status) { statuses = append(statuses, s) })

	_, err := e.Discover(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, statuses)
	assert.Zero(t, statuses[0].Progress)
	var seen []float64
	for i, s := range statuses {
		if i > 0 {
			assert.GreaterOrEqual(t, s.Progress, statuses[i-1].Progress, "progress never goes backwards")
		}
		seen = append(seen, s.Progress)
	}
	assert.Contains(t, seen, 0.2)
	assert.Contains(t, seen, 0.4)
	assert.Contains(t, seen, 0.65)
	assert.Contains(t, seen, 0.9)

	final := statuses[len(statuses)-1]
	assert.Equal(t, StateSummary, final.State)
	assert.Equal(t, 1.0, final.Progress)
	require.NotNil(t, final.Summary)
}

func TestDiscover_IndexUnavailable(t *testing.T) {
	root := endToEndRoot(t)
	lister := installed("com.installed.app")
	e := defaultEngine(root, lister)
	defer e.Close()

	_, err := e.Discover(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, e.Candidates())

	lister.err = errors.New("pm: not found")
	_, err = e.Discover(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.Contains(t, err.Error(), "pm: not found")
	assert.Empty(t, e.Candidates(), "a failed run leaves no candidates")

	st := e.Status()
	assert.Equal(t, StateFailed, st.State)
	assert.ErrorIs(t, st.Err, ErrIndexUnavailable)
}

func TestDiscover_PassErrorIsNotFatal(t *testing.T) {
	e := New(t.TempDir(), installed())
	defer e.Close()
	e.Register(&mockPass{name: "broken", err: errors.New("boom")})
	e.Register(&mockPass{name: "ok", cands: []scanner.Candidate{{Path: "/x", Size: 10, Category: "A"}}})

	s, err := e.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, s.CandidateCount)
}

func TestDiscover_Exclude(t *testing.T) {
	root := endToEndRoot(t)
	e := defaultEngine(root, installed("com.installed.app"))
	defer e.Close()
	e.SetExcludeFunc(func(p string) bool { return filepath.Base(p) == "com.orphaned.app" })

	s, err := e.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, s.CandidateCount)
	assert.Equal(t, int64(125*mb), s.TotalBytes)
}

func TestSummarize(t *testing.T) {
	s := summarize("run", []scanner.Candidate{
		{Size: 10, Category: "Thumbnails"},
		{Size: 5, Category: "App Cache"},
		{Size: 20, Category: "Thumbnails"},
	})
	assert.Equal(t, int64(35), s.TotalBytes)
	assert.Equal(t, 3, s.CandidateCount)
	assert.Equal(t, []CategoryTotal{
		{Name: "Thumbnails", Count: 2, Bytes: 30},
		{Name: "App Cache", Count: 1, Bytes: 5},
	}, s.Categories)

	empty := summarize("run", nil)
	assert.NotNil(t, empty.Categories)
	assert.Zero(t, empty.TotalBytes)
}

func TestStageBounds(t *testing.T) {
	tests := []struct {
		i, n   int
		lo, hi float64
	}{
		{0, 3, 0, 0.2},
		{1, 3, 0.2, 0.4},
		{2, 3, 0.4, 0.9},
		{0, 1, 0, 0.9},
		{0, 2, 0, 0.4},
		{1, 2, 0.4, 0.9},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.i, tt.n), func(t *testing.T) {
			lo, hi := stageBounds(tt.i, tt.n)
			assert.InDelta(t, tt.lo, lo, 1e-9)
			assert.InDelta(t, tt.hi, hi, 1e-9)
		})
	}
}

func candidatesFor(t *testing.T, n int) (*Engine, []scanner.Candidate) {
	root := t.TempDir()
	var cands []scanner.Candidate
	for i := 0; i < n; i++ {
		p := sparse(t, root, fmt.Sprintf("junk%d/f", i), int64(i+1)*100)
		cands = append(cands, scanner.Candidate{Path: filepath.Dir(p), IsDir: true, Size: int64(i+1) * 100, Category: "Test"})
	}
	e := New(root, installed())
	e.Register(&mockPass{name: "fixed", cands: cands})
	return e, cands
}

func TestClean_OneEmissionPerItem(t *testing.T) {
	e, cands := candidatesFor(t, 5)
	defer e.Close()
	_, err := e.Discover(context.Background())
	require.NoError(t, err)

	var cleaning []Status
	e.OnStatus(func(s Status) {
		if s.State == StateCleaning {
			cleaning = append(cleaning, s)
		}
	})

	report, err := e.Clean(context.Background())
	require.NoError(t, err)

	require.Len(t, cleaning, len(cands))
	for i, s := range cleaning {
		assert.InDelta(t, float64(i)/float64(len(cands)), s.Progress, 1e-9)
		assert.Equal(t, fmt.Sprintf("Removing junk%d...", i), s.Label)
		if i > 0 {
			assert.Greater(t, s.Progress, cleaning[i-1].Progress)
		}
	}
	assert.Equal(t, int64(1500), report.Reclaimed)
	assert.Equal(t, 5, report.Total)
	assert.Empty(t, e.Candidates())
}

func TestClean_NoCandidates(t *testing.T) {
	e, _ := candidatesFor(t, 2)
	defer e.Close()

	_, err := e.Clean(context.Background())
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = e.Discover(context.Background())
	require.NoError(t, err)
	_, err = e.Clean(context.Background())
	require.NoError(t, err)

	_, err = e.Clean(context.Background())
	assert.ErrorIs(t, err, ErrNoCandidates, "candidates are consumed exactly once")
}

func TestClean_DeleteFailureSkipped(t *testing.T) {
	e, cands := candidatesFor(t, 3)
	defer e.Close()
	e.remove = func(path string, isDir bool) error {
		if path == cands[1].Path {
			return errors.New("permission denied")
		}
		return os.RemoveAll(path)
	}

	_, err := e.Discover(context.Background())
	require.NoError(t, err)
	report, err := e.Clean(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, int64(100+300), report.Reclaimed)
	assert.Empty(t, e.Candidates())
}

func TestClean_RemeasuresBeforeDelete(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Dir(sparse(t, root, "grow/a", 100))
	file := sparse(t, root, "single.tmp", 10)

	e := New(root, installed())
	defer e.Close()
	e.Register(&mockPass{name: "fixed", cands: []scanner.Candidate{
		{Path: dir, IsDir: true, Size: 100},
		{Path: file, IsDir: false, Size: 10},
		{Path: filepath.Join(root, "vanished"), IsDir: true, Size: 999},
	}})

	_, err := e.Discover(context.Background())
	require.NoError(t, err)

	sparse(t, root, "grow/b", 400)
	require.NoError(t, os.Truncate(file, 25))

	report, err := e.Clean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(500+25), report.Reclaimed, "sizes are taken at deletion time; vanished paths count 0")
	assert.Equal(t, 3, report.Deleted)
}

func TestNewOperationAbandonsInFlight(t *testing.T) {
	e := New(t.TempDir(), installed())
	defer e.Close()
	blocker := &mockPass{name: "slow", started: make(chan struct{}), cands: []scanner.Candidate{{Path: "/a", Size: 1}}}
	blocker.blockOnce.Store(true)
	e.Register(blocker)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = e.Discover(context.Background())
	}()

	select {
	case <-blocker.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first discovery never started")
	}

	s, err := e.Discover(context.Background())
	require.NoError(t, err)
	wg.Wait()

	assert.ErrorIs(t, firstErr, context.Canceled)
	assert.Equal(t, 1, s.CandidateCount)
	assert.Len(t, e.Candidates(), 1)
	assert.Equal(t, StateSummary, e.Status().State)
}

// stubbornPass ignores cancellation on its first run until released.
type stubbornPass struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (p *stubbornPass) Name() string { return "stubborn" }
func (p *stubbornPass) Run(ctx context.Context, env scanner.Env, progress scanner.ProgressFunc) ([]scanner.Candidate, error) {
	if p.calls.Add(1) == 1 {
		close(p.started)
		<-p.release
	}
	return []scanner.Candidate{{Path: "/a", Size: 1}}, nil
}

func TestNewestQueuedOperationWins(t *testing.T) {
	e := New(t.TempDir(), installed())
	defer e.Close()
	pass := &stubbornPass{started: make(chan struct{}), release: make(chan struct{})}
	e.Register(pass)

	firstErr := make(chan error, 1)
	go func() {
		_, err := e.Discover(context.Background())
		firstErr <- err
	}()
	<-pass.started

	queued := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := e.Discover(context.Background())
			queued <- err
		}()
	}
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return len(e.cancels) == 3
	}, 5*time.Second, time.Millisecond)

	close(pass.release)
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	var succeeded, cancelled int
	for range 2 {
		select {
		case err := <-queued:
			if err == nil {
				succeeded++
			} else if errors.Is(err, context.Canceled) {
				cancelled++
			}
		case <-time.After(5 * time.Second):
			t.Fatal("queued discovery never returned")
		}
	}
	assert.Equal(t, 1, succeeded, "only the newest queued discovery should run")
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, int32(2), pass.calls.Load(), "superseded queued discovery must not run its passes")
	assert.Equal(t, StateSummary, e.Status().State)
}

func TestAbandon(t *testing.T) {
	e := New(t.TempDir(), installed())
	defer e.Close()
	blocker := &mockPass{name: "slow", started: make(chan struct{})}
	blocker.blockOnce.Store(true)
	e.Register(blocker)

	errc := make(chan error, 1)
	go func() {
		_, err := e.Discover(context.Background())
		errc <- err
	}()
	<-blocker.started

	e.Abandon()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("discovery did not stop after Abandon")
	}
	assert.Empty(t, e.Candidates())
	assert.Equal(t, StateIdle, e.Status().State)
}

func TestAbandon_DropsHeldCandidates(t *testing.T) {
	e, _ := candidatesFor(t, 2)
	defer e.Close()
	_, err := e.Discover(context.Background())
	require.NoError(t, err)

	e.Abandon()
	assert.Empty(t, e.Candidates())
	_, err = e.Clean(context.Background())
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestClean_CancelledMidway(t *testing.T) {
	e, cands := candidatesFor(t, 4)
	defer e.Close()
	_, err := e.Discover(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.remove = func(path string, isDir bool) error {
		if path == cands[1].Path {
			cancel()
		}
		return os.RemoveAll(path)
	}

	report, err := e.Clean(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, report.Canceled)
	assert.Equal(t, 2, report.Deleted, "deletions already made are kept")
	assert.Empty(t, e.Candidates())
	_, statErr := os.Stat(cands[3].Path)
	assert.NoError(t, statErr)
}

func TestSubscribe(t *testing.T) {
	e, _ := candidatesFor(t, 1)
	ch, unsubscribe := e.Subscribe()

	_, err := e.Discover(context.Background())
	require.NoError(t, err)

	var last Status
	select {
	case last = <-ch:
	case <-time.After(time.Second):
		t.Fatal("no status received")
	}
	assert.Equal(t, StateSummary, last.State, "observers see the newest status")

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	e.Close()
}
