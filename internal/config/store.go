package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Store is the settings service shared by the CLI and the TUI. Each setter
// updates one key and persists the whole file immediately.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewStore wraps an already loaded config. An empty path keeps changes in
// memory only.
func NewStore(cfg *Config, path string) *Store {
	if cfg == nil {
		cfg = Default()
	}
	return &Store{cfg: cfg, path: path}
}

// OpenStore loads (or creates) the config file at path.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(cfg, path), nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// Config returns a deep copy of the current config.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg.Clone()
}

func (s *Store) SortBy() SortBy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.SortBy
}

func (s *Store) IsAscending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.IsAscending
}

func (s *Store) StorageThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.StorageThreshold
}

func (s *Store) ScanOnLaunch() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.ScanOnLaunch
}

func (s *Store) ExtractionPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.ExtractionPath
}

func (s *Store) StorageAlertsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.StorageAlertsEnabled
}

func (s *Store) SetSortBy(v SortBy) error {
	if _, err := ParseSortBy(string(v)); err != nil {
		return err
	}
	return s.update(func(c *Config) { c.SortBy = v })
}

func (s *Store) SetAscending(v bool) error {
	return s.update(func(c *Config) { c.IsAscending = v })
}

// SetStorageThreshold rejects values outside the accepted range.
func (s *Store) SetStorageThreshold(v float64) error {
	if v < MinThreshold || v > MaxThreshold {
		return fmt.Errorf("storage_threshold must be between %.2f and %.2f, got %.2f", MinThreshold, MaxThreshold, v)
	}
	return s.update(func(c *Config) { c.StorageThreshold = v })
}

func (s *Store) SetScanOnLaunch(v bool) error {
	return s.update(func(c *Config) { c.ScanOnLaunch = v })
}

func (s *Store) SetExtractionPath(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("extraction_path must not be empty")
	}
	return s.update(func(c *Config) { c.ExtractionPath = v })
}

func (s *Store) SetStorageAlertsEnabled(v bool) error {
	return s.update(func(c *Config) { c.StorageAlertsEnabled = v })
}

func (s *Store) update(fn func(c *Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg.Clone()
	fn(next)
	if s.path != "" {
		if err := next.Save(s.path); err != nil {
			return err
		}
	}
	s.cfg = next
	return nil
}

// Keys lists the user settings reachable through Get and Set.
func Keys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type setting struct {
	get func(s *Store) string
	set func(s *Store, v string) error
}

var settings = map[string]setting{
	"sort_by": {
		get: func(s *Store) string { return string(s.SortBy()) },
		set: func(s *Store, v string) error {
			by, err := ParseSortBy(v)
			if err != nil {
				return err
			}
			return s.SetSortBy(by)
		},
	},
	"is_ascending": {
		get: func(s *Store) string { return strconv.FormatBool(s.IsAscending()) },
		set: func(s *Store, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("is_ascending: %w", err)
			}
			return s.SetAscending(b)
		},
	},
	"storage_threshold": {
		get: func(s *Store) string { return strconv.FormatFloat(s.StorageThreshold(), 'f', -1, 64) },
		set: func(s *Store, v string) error {
			f, err := parseRatio(v)
			if err != nil {
				return fmt.Errorf("storage_threshold: %w", err)
			}
			return s.SetStorageThreshold(f)
		},
	},
	"scan_on_launch": {
		get: func(s *Store) string { return strconv.FormatBool(s.ScanOnLaunch()) },
		set: func(s *Store, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("scan_on_launch: %w", err)
			}
			return s.SetScanOnLaunch(b)
		},
	},
	"extraction_path": {
		get: func(s *Store) string { return s.ExtractionPath() },
		set: func(s *Store, v string) error { return s.SetExtractionPath(v) },
	},
	"storage_alerts_enabled": {
		get: func(s *Store) string { return strconv.FormatBool(s.StorageAlertsEnabled()) },
		set: func(s *Store, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("storage_alerts_enabled: %w", err)
			}
			return s.SetStorageAlertsEnabled(b)
		},
	},
}

// Get returns the string form of a user setting.
func (s *Store) Get(key string) (string, error) {
	st, ok := settings[key]
	if !ok {
		return "", fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return st.get(s), nil
}

// Set parses value for the given key and persists it.
func (s *Store) Set(key, value string) error {
	st, ok := settings[key]
	if !ok {
		return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return st.set(s, value)
}

// parseRatio accepts "0.85" or "85%".
func parseRatio(v string) (float64, error) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return 0, err
		}
		return pct / 100, nil
	}
	return strconv.ParseFloat(v, 64)
}
