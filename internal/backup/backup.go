// Package backup copies installed package files out to a user directory.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lu-zhengda/droidbroom/internal/packages"
)

// ErrNoSource is returned for apps whose package file path is unknown.
var ErrNoSource = errors.New("package file path unknown")

// FileName returns the backup file name for app: the label with spaces
// replaced by underscores, then "_v<version>.apk".
func FileName(app packages.App) string {
	name := strings.ReplaceAll(app.Label(), " ", "_")
	name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	return fmt.Sprintf("%s_v%s.apk", name, app.Version)
}

// Extract copies the package file of app into destDir, creating it when
// missing, and returns the absolute destination path. A partially written
// file is removed on failure.
func Extract(ctx context.Context, opener packages.Opener, app packages.App, destDir string) (string, error) {
	if app.SourcePath == "" {
		return "", fmt.Errorf("%s: %w", app.PackageName, ErrNoSource)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destDir, err)
	}
	dest, err := filepath.Abs(filepath.Join(destDir, FileName(app)))
	if err != nil {
		return "", err
	}

	src, err := opener.Open(ctx, app.SourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", app.SourcePath, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".droidbroom-*.apk")
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to copy %s: %w", app.SourcePath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	if err := src.Close(); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", app.SourcePath, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to save backup: %w", err)
	}
	return dest, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CompletionMessage returns the title and body announcing a finished backup.
func CompletionMessage(app packages.App, dest string) (string, string) {
	return "APK Extraction Complete", fmt.Sprintf("%s saved to %s", app.Label(), dest)
}
