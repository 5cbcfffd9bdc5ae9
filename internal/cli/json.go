package cli

import (
	"time"

	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/history"
	"github.com/lu-zhengda/droidbroom/internal/monitor"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/scancache"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/storage"
)

// ---------------------------------------------------------------------------
// Scan JSON types
// ---------------------------------------------------------------------------

type scanJSON struct {
	Version     string                `json:"version"`
	Timestamp   time.Time             `json:"timestamp"`
	RunID       string                `json:"run_id"`
	Root        string                `json:"root"`
	Categories  []scanCategoryJSON    `json:"categories"`
	TotalSize   int64                 `json:"total_size"`
	TotalItems  int                   `json:"total_items"`
	RiskSummary riskJSON              `json:"risk_summary"`
	Diff        *scancache.DiffResult `json:"diff,omitempty"`
}

type scanCategoryJSON struct {
	Name       string          `json:"name"`
	Size       int64           `json:"size"`
	Items      int             `json:"items"`
	Risk       string          `json:"risk"`
	Candidates []candidateJSON `json:"candidates"`
}

type candidateJSON struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	IsDir       bool   `json:"is_dir"`
	Package     string `json:"package,omitempty"`
	Description string `json:"description,omitempty"`
	Risk        string `json:"risk"`
}

type riskJSON struct {
	Safe     int64 `json:"safe"`
	Moderate int64 `json:"moderate"`
	Risky    int64 `json:"risky"`
}

// buildScanJSON groups candidates by category in discovery order.
func buildScanJSON(summary engine.Summary, root string, cands []scanner.Candidate, diff *scancache.DiffResult) scanJSON {
	index := make(map[string]int)
	categories := []scanCategoryJSON{}
	maxRisk := make(map[string]scanner.RiskLevel)
	for _, c := range cands {
		i, ok := index[c.Category]
		if !ok {
			i = len(categories)
			index[c.Category] = i
			categories = append(categories, scanCategoryJSON{Name: c.Category})
		}
		cat := &categories[i]
		cat.Size += c.Size
		cat.Items++
		cat.Candidates = append(cat.Candidates, candidateJSON{
			Path:        c.Path,
			Size:        c.Size,
			IsDir:       c.IsDir,
			Package:     c.Package,
			Description: c.Description,
			Risk:        c.Risk.String(),
		})
		if c.Risk > maxRisk[c.Category] {
			maxRisk[c.Category] = c.Risk
		}
	}
	for i := range categories {
		categories[i].Risk = maxRisk[categories[i].Name].String()
	}

	rb := riskSummary(cands)
	return scanJSON{
		Version:    version,
		Timestamp:  time.Now().UTC(),
		RunID:      summary.RunID,
		Root:       root,
		Categories: categories,
		TotalSize:  summary.TotalBytes,
		TotalItems: summary.CandidateCount,
		RiskSummary: riskJSON{
			Safe:     rb.Safe,
			Moderate: rb.Moderate,
			Risky:    rb.Risky,
		},
		Diff: diff,
	}
}

// ---------------------------------------------------------------------------
// Clean JSON type
// ---------------------------------------------------------------------------

type cleanJSON struct {
	scanJSON
	Report *engine.CleanReport `json:"report,omitempty"`
}

// ---------------------------------------------------------------------------
// Apps JSON types
// ---------------------------------------------------------------------------

type appsJSON struct {
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	SortBy    string         `json:"sort_by"`
	Ascending bool           `json:"ascending"`
	Apps      []packages.App `json:"apps"`
}

type uninstallJSON struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Package   string    `json:"package"`
	Removed   bool      `json:"removed"`
}

type backupJSON struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Package   string    `json:"package"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
}

// ---------------------------------------------------------------------------
// Storage and monitor JSON types
// ---------------------------------------------------------------------------

type storageJSON struct {
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Root      string           `json:"root"`
	Known     bool             `json:"known"`
	Snapshot  storage.Snapshot `json:"snapshot"`
}

type monitorJSON struct {
	Version   string           `json:"version"`
	Timestamp time.Time        `json:"timestamp"`
	Alert     bool             `json:"alert"`
	Reason    monitor.Reason   `json:"reason"`
	Threshold float64          `json:"threshold"`
	Snapshot  storage.Snapshot `json:"snapshot"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message,omitempty"`
}

func buildMonitorJSON(d monitor.AlertDecision) monitorJSON {
	out := monitorJSON{
		Version:   version,
		Timestamp: time.Now().UTC(),
		Alert:     d.Alert,
		Reason:    d.Reason,
		Threshold: d.Threshold,
		Snapshot:  d.Snapshot,
	}
	if d.Alert {
		out.Title, out.Message = monitor.Message(d)
	}
	return out
}

// ---------------------------------------------------------------------------
// Stats JSON type
// ---------------------------------------------------------------------------

type statsJSON struct {
	Version       string                           `json:"version"`
	TotalFreed    int64                            `json:"total_freed"`
	TotalCleanups int                              `json:"total_cleanups"`
	ByCategory    map[string]history.CategoryStats `json:"by_category"`
	Recent        []history.Entry                  `json:"recent"`
}

func buildStatsJSON(stats history.Stats) statsJSON {
	return statsJSON{
		Version:       version,
		TotalFreed:    stats.TotalFreed,
		TotalCleanups: stats.TotalCleanups,
		ByCategory:    stats.ByCategory,
		Recent:        stats.Recent,
	}
}
