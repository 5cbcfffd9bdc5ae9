package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHomeDir(t *testing.T) {
	home := HomeDir()
	if home == "" {
		t.Error("HomeDir should not return empty string")
	}
	expected, _ := os.UserHomeDir()
	if home != expected {
		t.Errorf("HomeDir = %q, want %q", home, expected)
	}
}

func TestDataPath(t *testing.T) {
	path := DataPath("history.json")
	want := filepath.Join(HomeDir(), ".local", "share", "droidbroom", "history.json")
	if path != want {
		t.Errorf("DataPath(\"history.json\") = %q, want %q", path, want)
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath("config.yaml")
	want := filepath.Join(HomeDir(), ".config", "droidbroom", "config.yaml")
	if path != want {
		t.Errorf("ConfigPath(\"config.yaml\") = %q, want %q", path, want)
	}
}

func TestExpandHome(t *testing.T) {
	home := HomeDir()
	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/Download", filepath.Join(home, "Download")},
		{"/storage/emulated/0", "/storage/emulated/0"},
		{"relative/~", "relative/~"},
	}
	for _, tt := range tests {
		if got := ExpandHome(tt.in); got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDirExists(t *testing.T) {
	dir := t.TempDir()
	if !DirExists(dir) {
		t.Error("DirExists should return true for existing dir")
	}
	if DirExists(filepath.Join(dir, "nope")) {
		t.Error("DirExists should return false for non-existent dir")
	}
	f := filepath.Join(dir, "file.txt")
	os.WriteFile(f, []byte("hi"), 0o644)
	if DirExists(f) {
		t.Error("DirExists should return false for a file")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "file.txt")
	os.WriteFile(f, []byte("hi"), 0o644)

	if !FileExists(f) {
		t.Error("FileExists should return true for existing file")
	}
	if FileExists(dir) {
		t.Error("FileExists should return false for a directory")
	}
	if FileExists(filepath.Join(dir, "nope")) {
		t.Error("FileExists should return false for non-existent path")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if !Exists(dir) {
		t.Error("Exists should return true for a directory")
	}
	if Exists(filepath.Join(dir, "nope")) {
		t.Error("Exists should return false for a missing path")
	}
}
