// Package engine runs junk discovery and cleanup. It owns the candidate list
// between the two, serializes operations and broadcasts their progress.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/purge"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var (
	// ErrNoCandidates is returned by Clean when no discovery result is held.
	ErrNoCandidates = errors.New("no junk candidates to clean, run discovery first")
	// ErrIndexUnavailable wraps failures to list installed packages.
	ErrIndexUnavailable = errors.New("installed package list unavailable")
)

// State is the engine's externally visible phase.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateSummary
	StateCleaning
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateSummary:
		return "summary"
	case StateCleaning:
		return "cleaning"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is one broadcast update. Summary is set in StateSummary, Report in
// StateFinished and Err in StateFailed.
type Status struct {
	State    State
	RunID    string
	Progress float64
	Label    string
	Summary  *Summary
	Report   *CleanReport
	Err      error
}

// CategoryTotal aggregates candidates of one category.
type CategoryTotal struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Summary describes one completed discovery run.
type Summary struct {
	RunID          string          `json:"run_id"`
	TotalBytes     int64           `json:"total_bytes"`
	CandidateCount int             `json:"candidate_count"`
	Categories     []CategoryTotal `json:"categories"`
}

// CleanReport describes one cleanup run. Categories counts deleted items
// and reclaimed bytes per category, in discovery order.
type CleanReport struct {
	RunID      string          `json:"run_id"`
	Reclaimed  int64           `json:"reclaimed"`
	Deleted    int             `json:"deleted"`
	Failed     int             `json:"failed"`
	Total      int             `json:"total"`
	Canceled   bool            `json:"canceled,omitempty"`
	Categories []CategoryTotal `json:"categories,omitempty"`
}

type Engine struct {
	root        string
	lister      packages.Lister
	passes      []scanner.Pass
	excludeFunc func(string) bool
	maxDepth    int
	workers     int
	logger      *slog.Logger
	remove      func(path string, isDir bool) error

	status    *Broadcaster[Status]
	observers []func(Status)

	// opMu is held for the whole duration of a discovery or cleanup.
	opMu sync.Mutex

	mu sync.Mutex
	// cancels holds the running operation and every one queued on opMu.
	cancels    map[uint64]context.CancelFunc
	nextOp     uint64
	candidates []scanner.Candidate
	runID      string
}

// New returns an engine scanning root and reading installed packages from
// lister. Passes run in registration order.
func New(root string, lister packages.Lister) *Engine {
	return &Engine{
		root:     root,
		lister:   lister,
		maxDepth: utils.DefaultMaxDepth,
		workers:  4,
		remove:   purge.Delete,
		status:   NewBroadcaster[Status](),
	}
}

func (e *Engine) Register(p scanner.Pass) {
	e.passes = append(e.passes, p)
}

func (e *Engine) Passes() []scanner.Pass {
	return e.passes
}

func (e *Engine) SetExcludeFunc(fn func(string) bool) {
	e.excludeFunc = fn
}

func (e *Engine) SetLogger(l *slog.Logger) {
	e.logger = l
}

// SetLimits sets the measurement depth and the number of concurrent
// measurements. Values below 1 keep the current setting.
func (e *Engine) SetLimits(maxDepth, workers int) {
	if maxDepth >= 1 {
		e.maxDepth = maxDepth
	}
	if workers >= 1 {
		e.workers = workers
	}
}

func (e *Engine) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// OnStatus registers fn to be called synchronously with every status update,
// in order. fn must not call back into the engine.
func (e *Engine) OnStatus(fn func(Status)) {
	e.observers = append(e.observers, fn)
}

func (e *Engine) publish(s Status) {
	for _, fn := range e.observers {
		fn(s)
	}
	e.status.Publish(s)
}

// Subscribe returns a channel of status updates; see Broadcaster.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	return e.status.Subscribe()
}

// Status returns the latest broadcast status.
func (e *Engine) Status() Status {
	s, ok := e.status.Latest()
	if !ok {
		return Status{State: StateIdle}
	}
	return s
}

// Candidates returns a copy of the candidates held from the last discovery.
func (e *Engine) Candidates() []scanner.Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]scanner.Candidate(nil), e.candidates...)
}

// Abandon cancels the running operation, if any, and drops held candidates.
func (e *Engine) Abandon() {
	e.mu.Lock()
	running := len(e.cancels) > 0
	for _, c := range e.cancels {
		c()
	}
	e.candidates = nil
	e.mu.Unlock()

	if !running {
		e.publish(Status{State: StateIdle})
	}
}

// Close stops the broadcaster. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.Abandon()
	e.opMu.Lock()
	defer e.opMu.Unlock()
	e.status.Close()
}

// begin cancels the running operation and any still queued behind it,
// waits for the running one to unwind and returns the context for the new
// one. It fails with the context error when a newer call superseded this one
// while it was queued.
func (e *Engine) begin(parent context.Context) (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(parent)

	e.mu.Lock()
	for _, c := range e.cancels {
		c()
	}
	if e.cancels == nil {
		e.cancels = make(map[uint64]context.CancelFunc)
	}
	e.nextOp++
	id := e.nextOp
	e.cancels[id] = cancel
	e.mu.Unlock()

	e.opMu.Lock()
	end := func() {
		cancel()
		e.mu.Lock()
		delete(e.cancels, id)
		e.mu.Unlock()
		e.opMu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		end()
		return nil, nil, err
	}
	return ctx, end, nil
}

func (e *Engine) filterExcluded(cs []scanner.Candidate) []scanner.Candidate {
	if e.excludeFunc == nil {
		return cs
	}
	filtered := make([]scanner.Candidate, 0, len(cs))
	for _, c := range cs {
		if !e.excludeFunc(c.Path) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// stageBounds maps pass i of n onto the progress bar. The last pass iterates
// app directories and gets the 0.4-0.9 band; earlier passes share 0-0.4.
func stageBounds(i, n int) (float64, float64) {
	if n <= 1 {
		return 0, 0.9
	}
	if i == n-1 {
		return 0.4, 0.9
	}
	step := 0.4 / float64(n-1)
	return step * float64(i), step * float64(i+1)
}

// Discover runs every registered pass in order and retains the resulting
// candidates for Clean. Any earlier result is discarded at the start.
func (e *Engine) Discover(ctx context.Context) (Summary, error) {
	ctx, end, err := e.begin(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer end()

	runID := uuid.NewString()
	e.mu.Lock()
	e.candidates = nil
	e.runID = runID
	e.mu.Unlock()

	log := e.log().With("run_id", runID)
	log.Info("discovery started", "root", e.root, "passes", len(e.passes))

	var last float64
	emit := func(p float64, label string) {
		if p < last {
			p = last
		}
		last = p
		e.publish(Status{State: StateDiscovering, RunID: runID, Progress: p, Label: label})
	}
	emit(0, "Reading installed packages...")

	apps, err := e.lister.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return e.abandoned(runID, "Discovery cancelled", ctx.Err())
		}
		err = fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		log.Error("discovery failed", "error", err)
		e.publish(Status{State: StateFailed, RunID: runID, Label: "Could not read installed packages", Err: err})
		return Summary{}, err
	}

	env := scanner.Env{
		Root:      e.root,
		Installed: packages.NewIndex(apps),
		MaxDepth:  e.maxDepth,
		Workers:   e.workers,
		Logger:    log,
	}

	var found []scanner.Candidate
	for i, p := range e.passes {
		lo, hi := stageBounds(i, len(e.passes))
		label := fmt.Sprintf("Scanning %s...", p.Name())
		emit(lo, label)

		cs, err := p.Run(ctx, env, func(done, total int) {
			if total > 0 {
				emit(lo+(hi-lo)*float64(done)/float64(total), label)
			}
		})
		if ctx.Err() != nil {
			return e.abandoned(runID, "Discovery cancelled", ctx.Err())
		}
		if err != nil {
			log.Warn("pass failed", "pass", p.Name(), "error", err)
		}
		cs = e.filterExcluded(cs)
		log.Debug("pass finished", "pass", p.Name(), "candidates", len(cs), "bytes", scanner.TotalSize(cs))
		found = append(found, cs...)
		emit(hi, label)
	}

	summary := summarize(runID, found)
	e.mu.Lock()
	if ctx.Err() != nil {
		e.mu.Unlock()
		return e.abandoned(runID, "Discovery cancelled", ctx.Err())
	}
	e.candidates = found
	e.mu.Unlock()

	log.Info("discovery finished", "candidates", summary.CandidateCount, "bytes", summary.TotalBytes)
	e.publish(Status{
		State:    StateSummary,
		RunID:    runID,
		Progress: 1,
		Label:    fmt.Sprintf("Found %d items (%s)", summary.CandidateCount, utils.FormatSize(summary.TotalBytes)),
		Summary:  &summary,
	})
	return summary, nil
}

func (e *Engine) abandoned(runID, label string, err error) (Summary, error) {
	e.mu.Lock()
	e.candidates = nil
	e.mu.Unlock()
	e.log().Info("operation abandoned", "run_id", runID)
	e.publish(Status{State: StateIdle, RunID: runID, Label: label})
	return Summary{}, err
}

func summarize(runID string, cs []scanner.Candidate) Summary {
	s := Summary{RunID: runID, CandidateCount: len(cs), Categories: []CategoryTotal{}}
	index := map[string]int{}
	for _, c := range cs {
		s.TotalBytes += c.Size
		i, ok := index[c.Category]
		if !ok {
			i = len(s.Categories)
			index[c.Category] = i
			s.Categories = append(s.Categories, CategoryTotal{Name: c.Category})
		}
		s.Categories[i].Count++
		s.Categories[i].Bytes += c.Size
	}
	return s
}

// Clean deletes the candidates held from the last discovery, in discovery
// order. The list is detached when cleanup starts, so a second Clean fails
// with ErrNoCandidates. Failed deletions are counted and skipped.
func (e *Engine) Clean(ctx context.Context) (CleanReport, error) {
	ctx, end, err := e.begin(ctx)
	if err != nil {
		return CleanReport{}, err
	}
	defer end()

	e.mu.Lock()
	list := e.candidates
	e.candidates = nil
	runID := e.runID
	e.mu.Unlock()

	if len(list) == 0 {
		return CleanReport{}, ErrNoCandidates
	}

	log := e.log().With("run_id", runID)
	log.Info("cleanup started", "candidates", len(list))

	report := CleanReport{RunID: runID, Total: len(list)}
	byCategory := map[string]int{}
	for i, c := range list {
		if ctx.Err() != nil {
			report.Canceled = true
			break
		}
		e.publish(Status{
			State:    StateCleaning,
			RunID:    runID,
			Progress: float64(i) / float64(len(list)),
			Label:    fmt.Sprintf("Removing %s...", filepath.Base(c.Path)),
		})

		size := e.currentSize(c)
		if err := e.remove(c.Path, c.IsDir); err != nil {
			report.Failed++
			log.Debug("delete failed", "path", c.Path, "error", err)
			continue
		}
		report.Deleted++
		report.Reclaimed += size

		j, ok := byCategory[c.Category]
		if !ok {
			j = len(report.Categories)
			byCategory[c.Category] = j
			report.Categories = append(report.Categories, CategoryTotal{Name: c.Category})
		}
		report.Categories[j].Count++
		report.Categories[j].Bytes += size
	}

	if report.Canceled {
		log.Info("cleanup abandoned", "deleted", report.Deleted, "reclaimed", report.Reclaimed)
		e.publish(Status{State: StateIdle, RunID: runID, Label: "Cleanup cancelled", Report: &report})
		return report, ctx.Err()
	}

	log.Info("cleanup finished", "deleted", report.Deleted, "failed", report.Failed, "reclaimed", report.Reclaimed)
	e.publish(Status{
		State:    StateFinished,
		RunID:    runID,
		Progress: 1,
		Label:    fmt.Sprintf("Reclaimed %s", utils.FormatSize(report.Reclaimed)),
		Report:   &report,
	})
	return report, nil
}

// currentSize re-measures a candidate right before deletion.
func (e *Engine) currentSize(c scanner.Candidate) int64 {
	if c.IsDir {
		return scanner.Measure(scanner.Env{MaxDepth: e.maxDepth, Logger: e.logger}, c.Path)
	}
	info, err := os.Lstat(c.Path)
	if err != nil {
		return 0
	}
	return info.Size()
}
