package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// DROIDBROOM_STORAGE_THRESHOLD=0.8 or DROIDBROOM_STORAGE_EXTERNAL_ROOT=/sdcard.
const EnvPrefix = "DROIDBROOM"

// SortBy selects the ordering of the installed-app list.
type SortBy string

const (
	SortName     SortBy = "Name"
	SortSize     SortBy = "Size"
	SortDate     SortBy = "Date"
	SortDateUsed SortBy = "Date (Used)"
)

// SortOptions lists the valid sort keys in menu order.
var SortOptions = []SortBy{SortName, SortSize, SortDate, SortDateUsed}

// ParseSortBy accepts the canonical names case-insensitively, with or without
// the space in "Date (Used)".
func ParseSortBy(s string) (SortBy, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, opt := range SortOptions {
		if strings.ToLower(strings.ReplaceAll(string(opt), " ", "")) == norm {
			return opt, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q (use Name, Size, Date or Date (Used))", s)
}

// Threshold bounds for storage_threshold.
const (
	MinThreshold = 0.5
	MaxThreshold = 0.99
)

// Config holds all droidbroom configuration. The top-level keys mirror the
// settings the app exposes to the user; the nested sections tune the engine.
type Config struct {
	SortBy               SortBy  `yaml:"sort_by" mapstructure:"sort_by"`
	IsAscending          bool    `yaml:"is_ascending" mapstructure:"is_ascending"`
	StorageThreshold     float64 `yaml:"storage_threshold" mapstructure:"storage_threshold"`
	ScanOnLaunch         bool    `yaml:"scan_on_launch" mapstructure:"scan_on_launch"`
	ExtractionPath       string  `yaml:"extraction_path" mapstructure:"extraction_path"`
	StorageAlertsEnabled bool    `yaml:"storage_alerts_enabled" mapstructure:"storage_alerts_enabled"`

	Exclude  []string       `yaml:"exclude" mapstructure:"exclude"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Packages PackagesConfig `yaml:"packages" mapstructure:"packages"`
	Monitor  MonitorConfig  `yaml:"monitor" mapstructure:"monitor"`
	Notify   NotifyConfig   `yaml:"notify" mapstructure:"notify"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StorageConfig names the two filesystem roots the tool works against.
type StorageConfig struct {
	// ExternalRoot is the shared storage root that gets scanned.
	ExternalRoot string `yaml:"external_root" mapstructure:"external_root"`
	// DataRoot is queried for device capacity.
	DataRoot string `yaml:"data_root" mapstructure:"data_root"`
}

// JunkPath is one entry of the known high-yield path table.
type JunkPath struct {
	Path     string `yaml:"path" mapstructure:"path"`
	Category string `yaml:"category" mapstructure:"category"`
}

// ScanConfig tunes the junk discovery passes.
type ScanConfig struct {
	ShadowPrefixes []string   `yaml:"shadow_prefixes" mapstructure:"shadow_prefixes"`
	Allowlist      []string   `yaml:"allowlist" mapstructure:"allowlist"`
	JunkPaths      []JunkPath `yaml:"junk_paths" mapstructure:"junk_paths"`
	AppDataRoots   []string   `yaml:"app_data_roots" mapstructure:"app_data_roots"`
	CacheDirs      []string   `yaml:"cache_dirs" mapstructure:"cache_dirs"`
	ProgressEvery  int        `yaml:"progress_every" mapstructure:"progress_every"`
	MaxDepth       int        `yaml:"max_depth" mapstructure:"max_depth"`
	Workers        int        `yaml:"workers" mapstructure:"workers"`
}

// PackagesConfig selects where the installed-app list comes from.
type PackagesConfig struct {
	// Source is "shell" (run pm) or "manifest" (read a YAML/JSON file).
	Source   string   `yaml:"source" mapstructure:"source"`
	Command  []string `yaml:"command" mapstructure:"command"`
	Manifest string   `yaml:"manifest" mapstructure:"manifest"`
	// Details fetches version and install dates per package (slow).
	Details bool `yaml:"details" mapstructure:"details"`
}

// MonitorConfig controls the storage threshold monitor.
type MonitorConfig struct {
	Cooldown  string `yaml:"cooldown" mapstructure:"cooldown"`
	Interval  string `yaml:"interval" mapstructure:"interval"`
	StateFile string `yaml:"state_file" mapstructure:"state_file"`
}

// NotifyConfig controls notification delivery.
type NotifyConfig struct {
	Desktop bool     `yaml:"desktop" mapstructure:"desktop"`
	URLs    []string `yaml:"urls" mapstructure:"urls"`
}

// LogConfig controls the log file and its rotation.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// DefaultJunkPaths is the curated table of cache, thumbnail and log
// locations that common apps and Android builds leave behind. It drifts as
// apps change their layouts and has to be maintained by hand.
var DefaultJunkPaths = []JunkPath{
	{"DCIM/.thumbnails", "Thumbnails"},
	{"Pictures/.thumbnails", "Thumbnails"},
	{".thumbnails", "Thumbnails"},
	{"LOST.DIR", "Lost Files"},
	{"WhatsApp/Media/.Statuses", "Messaging Cache"},
	{"Telegram/Telegram Images/cache", "Messaging Cache"},
	{"Telegram/Telegram Video/cache", "Messaging Cache"},
	{"Android/media/com.whatsapp/WhatsApp/Media/.Statuses", "Messaging Cache"},
	{"MIUI/debug_log", "Debug Logs"},
	{"Download/.tmp", "Temporary Files"},
}

// Default returns a Config with all default values populated.
func Default() *Config {
	external := "/storage/emulated/0"
	return &Config{
		SortBy:               SortName,
		IsAscending:          true,
		StorageThreshold:     0.9,
		ScanOnLaunch:         false,
		ExtractionPath:       filepath.Join(external, "Download", "Uninstaller_Backups"),
		StorageAlertsEnabled: true,
		Exclude:              []string{},
		Storage: StorageConfig{
			ExternalRoot: external,
			DataRoot:     "/data",
		},
		Scan: ScanConfig{
			ShadowPrefixes: []string{"com.", "org.", "net.", "."},
			Allowlist:      []string{".android", ".thumbnails"},
			JunkPaths:      append([]JunkPath(nil), DefaultJunkPaths...),
			AppDataRoots:   []string{"Android/data", "Android/obb"},
			CacheDirs:      []string{"cache", ".cache", "code_cache"},
			ProgressEvery:  30,
			MaxDepth:       utils.DefaultMaxDepth,
			Workers:        4,
		},
		Packages: PackagesConfig{
			Source:  "shell",
			Command: []string{"pm"},
		},
		Monitor: MonitorConfig{
			Cooldown:  "12h",
			Interval:  "6h",
			StateFile: "~/.local/share/droidbroom/monitor.json",
		},
		Notify: NotifyConfig{
			Desktop: true,
			URLs:    []string{},
		},
		Log: LogConfig{
			Level:      "info",
			File:       "~/.local/share/droidbroom/droidbroom.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPath returns ~/.config/droidbroom/config.yaml.
func DefaultPath() string {
	return utils.ConfigPath("config.yaml")
}

// Load loads config from the given path. If path is empty, it uses the
// default location. If the file does not exist, it creates it with default
// values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	return LoadFrom(path)
}

// LoadFrom loads and parses config from the given path. Missing fields keep
// their default values and DROIDBROOM_* environment variables override both.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (*Config, error) {
	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Save marshals the config to YAML and writes it to the given path,
// creating parent directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Exclude = slices.Clone(c.Exclude)
	out.Scan.ShadowPrefixes = slices.Clone(c.Scan.ShadowPrefixes)
	out.Scan.Allowlist = slices.Clone(c.Scan.Allowlist)
	out.Scan.JunkPaths = slices.Clone(c.Scan.JunkPaths)
	out.Scan.AppDataRoots = slices.Clone(c.Scan.AppDataRoots)
	out.Scan.CacheDirs = slices.Clone(c.Scan.CacheDirs)
	out.Packages.Command = slices.Clone(c.Packages.Command)
	out.Notify.URLs = slices.Clone(c.Notify.URLs)
	return &out
}

// IsExcluded checks if the given path matches any of the configured
// exclude glob patterns. Matching is done against the full path and
// against the base name. Patterns ending in "/**" are treated as
// directory prefix matches.
func (c *Config) IsExcluded(path string) bool {
	for _, pattern := range c.Exclude {
		if strings.HasSuffix(pattern, "/**") {
			prefix := strings.TrimSuffix(pattern, "/**")
			if strings.HasPrefix(path, prefix+"/") || path == prefix {
				return true
			}
			continue
		}

		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

// ParseDuration parses duration strings like "12h", "30m" or "1d" into
// time.Duration. The "d" suffix means days. Returns fallback for empty,
// unparseable or non-positive strings.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		numStr := strings.TrimSuffix(s, "d")
		days, err := strconv.Atoi(numStr)
		if err == nil {
			if days <= 0 {
				return fallback
			}
			return time.Duration(days) * 24 * time.Hour
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
