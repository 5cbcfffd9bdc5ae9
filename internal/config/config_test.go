package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.SortBy != SortName {
		t.Errorf("expected SortBy Name, got %q", cfg.SortBy)
	}
	if !cfg.IsAscending {
		t.Error("expected IsAscending to be true")
	}
	if cfg.StorageThreshold != 0.9 {
		t.Errorf("expected StorageThreshold 0.9, got %v", cfg.StorageThreshold)
	}
	if cfg.ScanOnLaunch {
		t.Error("expected ScanOnLaunch to be false")
	}
	if !cfg.StorageAlertsEnabled {
		t.Error("expected StorageAlertsEnabled to be true")
	}
	if filepath.Base(cfg.ExtractionPath) != "Uninstaller_Backups" {
		t.Errorf("expected extraction path to end in Uninstaller_Backups, got %q", cfg.ExtractionPath)
	}

	if cfg.Storage.ExternalRoot != "/storage/emulated/0" {
		t.Errorf("expected external root /storage/emulated/0, got %q", cfg.Storage.ExternalRoot)
	}
	if cfg.Storage.DataRoot != "/data" {
		t.Errorf("expected data root /data, got %q", cfg.Storage.DataRoot)
	}

	if len(cfg.Scan.ShadowPrefixes) != 4 {
		t.Errorf("expected 4 shadow prefixes, got %v", cfg.Scan.ShadowPrefixes)
	}
	if len(cfg.Scan.JunkPaths) != 10 {
		t.Errorf("expected 10 junk paths, got %d", len(cfg.Scan.JunkPaths))
	}
	if cfg.Scan.ProgressEvery != 30 {
		t.Errorf("expected ProgressEvery 30, got %d", cfg.Scan.ProgressEvery)
	}
	if cfg.Scan.MaxDepth != 3 {
		t.Errorf("expected MaxDepth 3, got %d", cfg.Scan.MaxDepth)
	}

	if cfg.Monitor.Cooldown != "12h" {
		t.Errorf("expected cooldown 12h, got %q", cfg.Monitor.Cooldown)
	}
	if cfg.Monitor.Interval != "6h" {
		t.Errorf("expected interval 6h, got %q", cfg.Monitor.Interval)
	}

	if cfg.Exclude == nil {
		t.Error("expected Exclude to be non-nil (empty slice)")
	}

	if ws := cfg.Validate(); len(ws) != 0 {
		t.Errorf("expected default config to validate cleanly, got %+v", ws)
	}
}

func TestDefaultJunkPathsNotShared(t *testing.T) {
	cfg := Default()
	cfg.Scan.JunkPaths[0].Path = "changed"
	if DefaultJunkPaths[0].Path != "DCIM/.thumbnails" {
		t.Fatal("modifying a config must not change the package table")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `sort_by: "Date (Used)"
is_ascending: false
storage_threshold: 0.8
scan_on_launch: true
extraction_path: /sdcard/backups
exclude:
  - "*.nomedia"
  - "/storage/emulated/0/Android/data/com.keep/**"
storage:
  external_root: /sdcard
scan:
  junk_paths:
    - path: Movies/.trash
      category: Trash
packages:
  source: manifest
  manifest: /tmp/apps.yaml
monitor:
  cooldown: 1d
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(cfgPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.SortBy != SortDateUsed {
		t.Errorf("expected SortBy %q, got %q", SortDateUsed, cfg.SortBy)
	}
	if cfg.IsAscending {
		t.Error("expected IsAscending false")
	}
	if cfg.StorageThreshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %v", cfg.StorageThreshold)
	}
	if !cfg.ScanOnLaunch {
		t.Error("expected ScanOnLaunch true")
	}
	if cfg.ExtractionPath != "/sdcard/backups" {
		t.Errorf("expected extraction path /sdcard/backups, got %q", cfg.ExtractionPath)
	}
	if len(cfg.Exclude) != 2 {
		t.Fatalf("expected 2 exclude patterns, got %d", len(cfg.Exclude))
	}
	if cfg.Storage.ExternalRoot != "/sdcard" {
		t.Errorf("expected external root /sdcard, got %q", cfg.Storage.ExternalRoot)
	}
	if cfg.Storage.DataRoot != "/data" {
		t.Errorf("expected data root to keep default, got %q", cfg.Storage.DataRoot)
	}
	if len(cfg.Scan.JunkPaths) != 1 || cfg.Scan.JunkPaths[0].Path != "Movies/.trash" || cfg.Scan.JunkPaths[0].Category != "Trash" {
		t.Errorf("expected junk path table replaced, got %+v", cfg.Scan.JunkPaths)
	}
	if cfg.Packages.Source != "manifest" || cfg.Packages.Manifest != "/tmp/apps.yaml" {
		t.Errorf("unexpected packages section: %+v", cfg.Packages)
	}
	if got := ParseDuration(cfg.Monitor.Cooldown, 0); got != 24*time.Hour {
		t.Errorf("expected cooldown 24h, got %v", got)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	// Only override one field; rest should keep defaults.
	content := `storage_threshold: 0.75
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFrom(cfgPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.StorageThreshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %v", cfg.StorageThreshold)
	}
	if !cfg.IsAscending {
		t.Error("expected IsAscending to keep default (true)")
	}
	if len(cfg.Scan.CacheDirs) != 3 {
		t.Errorf("expected default cache dirs, got %v", cfg.Scan.CacheDirs)
	}
	if cfg.Scan.ProgressEvery != 30 {
		t.Errorf("expected ProgressEvery to keep default 30, got %d", cfg.Scan.ProgressEvery)
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("storage_threshold: 0.7\n"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("DROIDBROOM_STORAGE_THRESHOLD", "0.95")
	t.Setenv("DROIDBROOM_STORAGE_EXTERNAL_ROOT", "/mnt/sdcard")

	cfg, err := LoadFrom(cfgPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.StorageThreshold != 0.95 {
		t.Errorf("expected env threshold 0.95, got %v", cfg.StorageThreshold)
	}
	if cfg.Storage.ExternalRoot != "/mnt/sdcard" {
		t.Errorf("expected env external root, got %q", cfg.Storage.ExternalRoot)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "subdir", "config.yaml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		t.Fatal("expected config file to be created")
	}
	if cfg.StorageThreshold != 0.9 {
		t.Errorf("expected default threshold, got %v", cfg.StorageThreshold)
	}

	// Load it again; should parse the defaults file.
	cfg2, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if cfg2.StorageThreshold != cfg.StorageThreshold {
		t.Error("second load returned different threshold")
	}
	if len(cfg2.Scan.JunkPaths) != len(cfg.Scan.JunkPaths) {
		t.Error("second load returned different junk path table")
	}
}

func TestIsExcluded(t *testing.T) {
	cfg := Default()
	cfg.Exclude = []string{"*.nomedia", "/storage/emulated/0/Android/data/com.keep/**", "LOST.DIR"}

	tests := []struct {
		path string
		want bool
	}{
		{"/storage/emulated/0/.nomedia", true},
		{"/storage/emulated/0/Android/data/com.keep/cache", true},
		{"/storage/emulated/0/Android/data/com.keep", true},
		{"/storage/emulated/0/LOST.DIR", true},
		{"/storage/emulated/0/Android/data/com.keeper", false},
		{"/storage/emulated/0/DCIM/.thumbnails", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := cfg.IsExcluded(tt.path)
			if got != tt.want {
				t.Errorf("IsExcluded(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLoadFromInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFrom(cfgPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadFromNonexistentFile(t *testing.T) {
	_, err := LoadFrom("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.SortBy = SortSize
	cfg.StorageAlertsEnabled = false
	cfg.Exclude = []string{"*.tmp"}
	cfg.Notify.URLs = []string{"ntfy://ntfy.sh/phone"}

	if err := cfg.Save(cfgPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(cfgPath)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if loaded.SortBy != SortSize {
		t.Errorf("expected SortBy Size, got %q", loaded.SortBy)
	}
	if loaded.StorageAlertsEnabled {
		t.Error("expected StorageAlertsEnabled false")
	}
	if len(loaded.Exclude) != 1 || loaded.Exclude[0] != "*.tmp" {
		t.Errorf("expected exclude [*.tmp], got %v", loaded.Exclude)
	}
	if len(loaded.Notify.URLs) != 1 {
		t.Errorf("expected 1 notify URL, got %v", loaded.Notify.URLs)
	}
}

func TestParseSortBy(t *testing.T) {
	tests := []struct {
		input   string
		want    SortBy
		wantErr bool
	}{
		{"Name", SortName, false},
		{"name", SortName, false},
		{"SIZE", SortSize, false},
		{"Date", SortDate, false},
		{"Date (Used)", SortDateUsed, false},
		{"Date(Used)", SortDateUsed, false},
		{"date (used)", SortDateUsed, false},
		{"Installer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSortBy(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSortBy(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSortBy(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSortBy(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"12h", 12 * time.Hour},
		{"6h", 6 * time.Hour},
		{"30m", 30 * time.Minute},
		{"1d", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"", time.Hour},
		{"soon", time.Hour},
		{"-5m", time.Hour},
		{"0d", time.Hour},
		{"-1d", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseDuration(tt.input, time.Hour); got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
