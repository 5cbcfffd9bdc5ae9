// Package packages lists installed Android applications and gives access to
// their package files.
package packages

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/config"
)

// App describes one installed application.
type App struct {
	Name         string     `json:"name" yaml:"name"`
	PackageName  string     `json:"package" yaml:"package"`
	System       bool       `json:"system" yaml:"system"`
	SourcePath   string     `json:"source_path" yaml:"source_path"`
	SizeBytes    int64      `json:"size_bytes" yaml:"size_bytes"`
	Version      string     `json:"version,omitempty" yaml:"version"`
	FirstInstall time.Time  `json:"first_install,omitempty" yaml:"first_install"`
	LastUpdate   time.Time  `json:"last_update,omitempty" yaml:"last_update"`
	LastUsed     *time.Time `json:"last_used,omitempty" yaml:"last_used"`
	// Installer is the installing package, empty when unknown.
	Installer string `json:"installer,omitempty" yaml:"installer"`
}

// Label returns Name, falling back to the package identifier.
func (a App) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.PackageName
}

// Lister enumerates installed applications.
type Lister interface {
	List(ctx context.Context) ([]App, error)
}

// Uninstaller removes an installed application by identifier.
type Uninstaller interface {
	Uninstall(ctx context.Context, pkg string) error
}

// Opener streams an installed package file.
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// InstalledSet is the set of installed package identifiers, taken once per
// discovery run.
type InstalledSet struct {
	exact map[string]struct{}
	fold  map[string]struct{}
}

// NewIndex builds an InstalledSet from every listed app, system apps
// included.
func NewIndex(apps []App) InstalledSet {
	s := InstalledSet{
		exact: make(map[string]struct{}, len(apps)),
		fold:  make(map[string]struct{}, len(apps)),
	}
	for _, a := range apps {
		if a.PackageName == "" {
			continue
		}
		s.exact[a.PackageName] = struct{}{}
		s.fold[strings.ToLower(a.PackageName)] = struct{}{}
	}
	return s
}

// Has reports an exact identifier match.
func (s InstalledSet) Has(pkg string) bool {
	_, ok := s.exact[pkg]
	return ok
}

// HasFold reports a case-insensitive identifier match.
func (s InstalledSet) HasFold(pkg string) bool {
	_, ok := s.fold[strings.ToLower(pkg)]
	return ok
}

func (s InstalledSet) Len() int { return len(s.exact) }

// Sort orders apps in place. Descending order is the exact reverse of
// ascending order.
func Sort(apps []App, by config.SortBy, ascending bool) {
	var less func(a, b App) bool
	switch by {
	case config.SortSize:
		less = func(a, b App) bool { return a.SizeBytes < b.SizeBytes }
	case config.SortDate:
		less = func(a, b App) bool { return a.FirstInstall.Before(b.FirstInstall) }
	case config.SortDateUsed:
		less = func(a, b App) bool { return lastUsed(a).Before(lastUsed(b)) }
	default:
		less = func(a, b App) bool { return strings.ToLower(a.Label()) < strings.ToLower(b.Label()) }
	}

	sort.SliceStable(apps, func(i, j int) bool { return less(apps[i], apps[j]) })
	if !ascending {
		for i, j := 0, len(apps)-1; i < j; i, j = i+1, j-1 {
			apps[i], apps[j] = apps[j], apps[i]
		}
	}
}

func lastUsed(a App) time.Time {
	if a.LastUsed == nil {
		return time.Time{}
	}
	return *a.LastUsed
}

// Find returns the app with the given identifier.
func Find(apps []App, pkg string) (App, bool) {
	for _, a := range apps {
		if a.PackageName == pkg {
			return a, true
		}
	}
	return App{}, false
}

// New builds the lister selected by cfg.
func New(cfg config.PackagesConfig) (Lister, error) {
	switch cfg.Source {
	case "", "shell":
		return NewShell(cfg.Command, cfg.Details), nil
	case "manifest":
		if cfg.Manifest == "" {
			return nil, fmt.Errorf("packages.manifest is required for the manifest source")
		}
		return NewManifest(cfg.Manifest), nil
	default:
		return nil, fmt.Errorf("unknown package source %q", cfg.Source)
	}
}
