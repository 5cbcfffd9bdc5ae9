package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "droidbroom"

func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// DataPath returns a path under ~/.local/share/droidbroom. It falls back to
// the bare file name when the home directory is unknown.
func DataPath(name string) string {
	home := HomeDir()
	if home == "" {
		return name
	}
	return filepath.Join(home, ".local", "share", appName, name)
}

// ConfigPath returns a path under ~/.config/droidbroom.
func ConfigPath(name string) string {
	home := HomeDir()
	if home == "" {
		return name
	}
	return filepath.Join(home, ".config", appName, name)
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(p string) string {
	home := HomeDir()
	if home == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

// Exists reports whether anything (file, directory or symlink) is at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
