// Package scancache keeps the category totals of the last discovery run so
// the next scan can report what grew.
package scancache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

// Snapshot captures the state of a scan at a point in time.
type Snapshot struct {
	Timestamp  time.Time          `json:"timestamp"`
	RunID      string             `json:"run_id,omitempty"`
	Root       string             `json:"root,omitempty"`
	Categories []CategorySnapshot `json:"categories"`
	TotalSize  int64              `json:"total_size"`
}

type CategorySnapshot struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Items int    `json:"items"`
}

// CategoryDiff describes how a category changed between two snapshots.
type CategoryDiff struct {
	Name         string `json:"name"`
	PreviousSize int64  `json:"previous_size"`
	CurrentSize  int64  `json:"current_size"`
	Delta        int64  `json:"delta"`
	IsNew        bool   `json:"is_new,omitempty"`
}

// DiffResult describes the differences between two snapshots. Categories is
// ordered by descending absolute delta.
type DiffResult struct {
	PreviousTimestamp time.Time      `json:"previous_timestamp"`
	TotalDelta        int64          `json:"total_delta"`
	Categories        []CategoryDiff `json:"categories"`
}

// DefaultPath returns ~/.local/share/droidbroom/last-scan.json.
func DefaultPath() string {
	return utils.DataPath("last-scan.json")
}

// FromSummary builds a snapshot of one discovery run over root.
func FromSummary(s engine.Summary, root string, at time.Time) Snapshot {
	snap := Snapshot{
		Timestamp:  at,
		RunID:      s.RunID,
		Root:       root,
		TotalSize:  s.TotalBytes,
		Categories: make([]CategorySnapshot, 0, len(s.Categories)),
	}
	for _, c := range s.Categories {
		snap.Categories = append(snap.Categories, CategorySnapshot{Name: c.Name, Size: c.Bytes, Items: c.Count})
	}
	return snap
}

// Save writes a snapshot as indented JSON, creating parent directories.
func Save(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create scan cache directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scan snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scan cache file: %w", err)
	}
	return nil
}

func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read scan cache file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse scan cache file: %w", err)
	}
	return snap, nil
}

// Diff computes per-category differences between two snapshots. Categories
// only in curr are marked IsNew; categories only in prev get a negative
// delta.
func Diff(prev, curr Snapshot) DiffResult {
	result := DiffResult{
		PreviousTimestamp: prev.Timestamp,
		TotalDelta:        curr.TotalSize - prev.TotalSize,
		Categories:        []CategoryDiff{},
	}

	prevSizes := make(map[string]int64, len(prev.Categories))
	for _, c := range prev.Categories {
		prevSizes[c.Name] = c.Size
	}
	for _, c := range curr.Categories {
		prevSize, existed := prevSizes[c.Name]
		result.Categories = append(result.Categories, CategoryDiff{
			Name:         c.Name,
			PreviousSize: prevSize,
			CurrentSize:  c.Size,
			Delta:        c.Size - prevSize,
			IsNew:        !existed,
		})
		delete(prevSizes, c.Name)
	}
	for name, prevSize := range prevSizes {
		result.Categories = append(result.Categories, CategoryDiff{
			Name:         name,
			PreviousSize: prevSize,
			Delta:        -prevSize,
		})
	}

	sort.SliceStable(result.Categories, func(i, j int) bool {
		a, b := abs(result.Categories[i].Delta), abs(result.Categories[j].Delta)
		if a != b {
			return a > b
		}
		return result.Categories[i].Name < result.Categories[j].Name
	})
	return result
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
