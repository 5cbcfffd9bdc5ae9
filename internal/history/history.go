// Package history records completed cleanups and aggregates them for the
// stats command.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

// Entry is one category's share of a cleanup run.
type Entry struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Category   string    `json:"category"`
	Items      int       `json:"items"`
	BytesFreed int64     `json:"bytes_freed"`
}

// CategoryStats holds aggregate statistics for a single category.
type CategoryStats struct {
	BytesFreed int64 `json:"bytes_freed"`
	Cleanups   int   `json:"cleanups"`
}

// Stats holds aggregate cleanup statistics.
type Stats struct {
	TotalFreed    int64                    `json:"total_freed"`
	TotalCleanups int                      `json:"total_cleanups"`
	ByCategory    map[string]CategoryStats `json:"by_category"`
	Recent        []Entry                  `json:"recent"`
}

const recentLimit = 5

// History manages the cleanup history file.
type History struct {
	path string
}

func New(path string) *History {
	return &History{path: path}
}

// DefaultPath returns ~/.local/share/droidbroom/history.json.
func DefaultPath() string {
	return utils.DataPath("history.json")
}

// EntriesFor converts a cleanup report into one entry per category that
// freed anything.
func EntriesFor(report engine.CleanReport, at time.Time) []Entry {
	var entries []Entry
	for _, c := range report.Categories {
		if c.Count == 0 {
			continue
		}
		entries = append(entries, Entry{
			Timestamp:  at,
			RunID:      report.RunID,
			Category:   c.Name,
			Items:      c.Count,
			BytesFreed: c.Bytes,
		})
	}
	return entries
}

// Record appends entries to the history file. A corrupt file is replaced.
func (h *History) Record(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	existing, err := h.Load()
	if err != nil {
		existing = nil
	}
	existing = append(existing, entries...)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// Load reads all entries. A missing file yields no entries and no error.
func (h *History) Load() ([]Entry, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	return entries, nil
}

// Stats aggregates the whole history.
func (h *History) Stats() Stats {
	return h.StatsSince(time.Time{})
}

// StatsSince aggregates the entries recorded at or after since. An
// unreadable history yields empty stats.
func (h *History) StatsSince(since time.Time) Stats {
	entries, err := h.Load()
	if err != nil {
		return Summarize(nil)
	}
	kept := entries[:0]
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			kept = append(kept, e)
		}
	}
	return Summarize(kept)
}

// Summarize aggregates entries. A cleanup is one run; per-category counts
// increment once per run that touched the category.
func Summarize(entries []Entry) Stats {
	s := Stats{ByCategory: make(map[string]CategoryStats)}
	if len(entries) == 0 {
		return s
	}

	runs := map[string]struct{}{}
	for i, e := range entries {
		s.TotalFreed += e.BytesFreed
		run := e.RunID
		if run == "" {
			run = fmt.Sprintf("entry-%d", i)
		}
		runs[run] = struct{}{}

		cs := s.ByCategory[e.Category]
		cs.BytesFreed += e.BytesFreed
		cs.Cleanups++
		s.ByCategory[e.Category] = cs
	}
	s.TotalCleanups = len(runs)

	sorted := slices.Clone(entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	s.Recent = sorted[:min(recentLimit, len(sorted))]
	return s
}

// Categories returns the category names ordered by bytes freed, largest
// first, then by name.
func (s Stats) Categories() []string {
	names := make([]string, 0, len(s.ByCategory))
	for name := range s.ByCategory {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := s.ByCategory[names[i]], s.ByCategory[names[j]]
		if a.BytesFreed != b.BytesFreed {
			return a.BytesFreed > b.BytesFreed
		}
		return names[i] < names[j]
	})
	return names
}
