package config

import (
	"fmt"
	"strings"
	"time"
)

// Warning describes a suspicious or invalid config value. Warnings never
// stop the tool from starting; the value is used as-is or replaced by its
// default where the engine cannot run with it.
type Warning struct {
	Field      string
	Message    string
	Suggestion string
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the config for out-of-range values and unknown enums.
func (c *Config) Validate() []Warning {
	var ws []Warning

	if _, err := ParseSortBy(string(c.SortBy)); err != nil {
		ws = append(ws, Warning{
			Field:      "sort_by",
			Message:    fmt.Sprintf("unknown sort key %q", c.SortBy),
			Suggestion: "use one of: Name, Size, Date, Date (Used)",
		})
	}

	if c.StorageThreshold < MinThreshold || c.StorageThreshold > MaxThreshold {
		ws = append(ws, Warning{
			Field:      "storage_threshold",
			Message:    fmt.Sprintf("threshold %.2f is outside %.2f-%.2f", c.StorageThreshold, MinThreshold, MaxThreshold),
			Suggestion: "0.9 alerts when the device is 90% full",
		})
	}

	if strings.TrimSpace(c.ExtractionPath) == "" {
		ws = append(ws, Warning{
			Field:      "extraction_path",
			Message:    "extraction path is empty",
			Suggestion: "set it to a writable directory, e.g. /storage/emulated/0/Download/Uninstaller_Backups",
		})
	}

	if c.Storage.ExternalRoot == "" {
		ws = append(ws, Warning{
			Field:   "storage.external_root",
			Message: "external root is empty, discovery has nothing to scan",
		})
	}

	if c.Scan.ProgressEvery < 1 {
		ws = append(ws, Warning{
			Field:      "scan.progress_every",
			Message:    fmt.Sprintf("progress_every must be at least 1, got %d", c.Scan.ProgressEvery),
			Suggestion: "30",
		})
	}
	if c.Scan.MaxDepth < 1 {
		ws = append(ws, Warning{
			Field:      "scan.max_depth",
			Message:    fmt.Sprintf("max_depth must be at least 1, got %d", c.Scan.MaxDepth),
			Suggestion: "3",
		})
	}
	if c.Scan.Workers < 1 {
		ws = append(ws, Warning{
			Field:      "scan.workers",
			Message:    fmt.Sprintf("workers must be at least 1, got %d", c.Scan.Workers),
			Suggestion: "4",
		})
	}
	for i, jp := range c.Scan.JunkPaths {
		if strings.TrimSpace(jp.Path) == "" {
			ws = append(ws, Warning{
				Field:   fmt.Sprintf("scan.junk_paths[%d]", i),
				Message: "junk path entry has an empty path",
			})
		}
	}

	switch c.Packages.Source {
	case "shell":
		if len(c.Packages.Command) == 0 {
			ws = append(ws, Warning{
				Field:      "packages.command",
				Message:    "shell source needs a command prefix",
				Suggestion: `["pm"] on the device or ["adb", "shell", "pm"] from a workstation`,
			})
		}
	case "manifest":
		if c.Packages.Manifest == "" {
			ws = append(ws, Warning{
				Field:   "packages.manifest",
				Message: "manifest source selected but no manifest file is set",
			})
		}
	default:
		ws = append(ws, Warning{
			Field:      "packages.source",
			Message:    fmt.Sprintf("unknown package source %q", c.Packages.Source),
			Suggestion: "use shell or manifest",
		})
	}

	if ParseDuration(c.Monitor.Cooldown, 0) == 0 {
		ws = append(ws, Warning{
			Field:      "monitor.cooldown",
			Message:    fmt.Sprintf("cannot parse cooldown %q", c.Monitor.Cooldown),
			Suggestion: "12h",
		})
	}
	if d := ParseDuration(c.Monitor.Interval, 0); d == 0 {
		ws = append(ws, Warning{
			Field:      "monitor.interval",
			Message:    fmt.Sprintf("cannot parse interval %q", c.Monitor.Interval),
			Suggestion: "6h",
		})
	} else if d < 15*time.Minute {
		ws = append(ws, Warning{
			Field:      "monitor.interval",
			Message:    fmt.Sprintf("interval %s is very short", d),
			Suggestion: "checks more often than every 15m drain the battery",
		})
	}

	for i, u := range c.Notify.URLs {
		if !strings.Contains(u, "://") {
			ws = append(ws, Warning{
				Field:      fmt.Sprintf("notify.urls[%d]", i),
				Message:    fmt.Sprintf("%q is not a service URL", u),
				Suggestion: "e.g. ntfy://ntfy.sh/my-topic",
			})
		}
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		ws = append(ws, Warning{
			Field:      "log.level",
			Message:    fmt.Sprintf("unknown log level %q", c.Log.Level),
			Suggestion: "use debug, info, warn or error",
		})
	}

	return ws
}

// LoadAndValidate decodes raw config bytes and validates the result. A parse
// failure is reported as a single warning alongside the default config.
func LoadAndValidate(data []byte) (*Config, []Warning) {
	cfg, err := decode(data)
	if err != nil {
		return Default(), []Warning{{Message: err.Error(), Suggestion: "check the YAML syntax"}}
	}
	return cfg, cfg.Validate()
}
