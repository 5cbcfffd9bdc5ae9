// Package scanner implements the junk discovery passes run over shared
// storage. Passes only read the filesystem; deletion happens elsewhere.
package scanner

import (
	"context"
	"log/slog"

	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

type RiskLevel int

const (
	Safe RiskLevel = iota
	Moderate
	Risky
)

func (r RiskLevel) String() string {
	switch r {
	case Safe:
		return "Safe"
	case Moderate:
		return "Moderate"
	case Risky:
		return "Risky"
	default:
		return "Unknown"
	}
}

// Candidate is a path proposed for deletion. Size is measured once during
// discovery and is always > 0 for candidates a pass returns.
type Candidate struct {
	Path        string    `json:"path"`
	IsDir       bool      `json:"is_dir"`
	Size        int64     `json:"size"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Package     string    `json:"package,omitempty"`
	Risk        RiskLevel `json:"risk"`
}

// Categories produced by the built-in passes. Known-path entries carry the
// category from their table row.
const (
	CategoryShadowFolder = "Orphaned Folder"
	CategoryOrphanedData = "Orphaned App Data"
	CategoryAppCache     = "App Cache"
)

// Env is the read-only context shared by every pass of one discovery run.
type Env struct {
	// Root is the external storage root.
	Root string
	// Installed is the package snapshot taken at the start of the run.
	Installed packages.InstalledSet
	// MaxDepth bounds size measurement.
	MaxDepth int
	// Workers bounds concurrent measurements.
	Workers int
	Logger  *slog.Logger
}

func (e Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e Env) depth() int {
	if e.MaxDepth < 1 {
		return utils.DefaultMaxDepth
	}
	return e.MaxDepth
}

// ProgressFunc receives done/total counts from passes that iterate many
// entries.
type ProgressFunc func(done, total int)

// Pass is one discovery pass.
type Pass interface {
	Name() string
	Run(ctx context.Context, env Env, progress ProgressFunc) ([]Candidate, error)
}

// Measure returns the bounded size of path, folding every error into the
// partial (possibly zero) result.
func Measure(env Env, path string) int64 {
	size, err := utils.DirSize(path, env.depth())
	if err != nil {
		env.log().Debug("measurement incomplete", "path", path, "size", size, "error", err)
	}
	return size
}

// TotalSize sums candidate sizes.
func TotalSize(cs []Candidate) int64 {
	var total int64
	for _, c := range cs {
		total += c.Size
	}
	return total
}
