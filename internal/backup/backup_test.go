package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/droidbroom/internal/packages"
)

type fsOpener struct{}

func (fsOpener) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

type failOpener struct{ err error }

func (f failOpener) Open(context.Context, string) (io.ReadCloser, error) { return nil, f.err }

func TestFileName(t *testing.T) {
	tests := []struct {
		app  packages.App
		want string
	}{
		{packages.App{Name: "My Cool App", Version: "1.2.3"}, "My_Cool_App_v1.2.3.apk"},
		{packages.App{PackageName: "com.example.x", Version: "7"}, "com.example.x_v7.apk"},
		{packages.App{Name: "a/b", Version: "1"}, "a_b_v1.apk"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.app))
		})
	}
}

func TestExtractCopiesAndCreatesDir(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "base.apk")
	require.NoError(t, os.WriteFile(src, []byte("PK\x03\x04apk-bytes"), 0o644))

	dest := filepath.Join(tmp, "Download", "Uninstaller_Backups")
	app := packages.App{Name: "Example App", PackageName: "com.example", Version: "2.0", SourcePath: src}

	got, err := Extract(context.Background(), fsOpener{}, app, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "Example_App_v2.0.apk"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04apk-bytes", string(data))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files must remain")
}

func TestExtractOverwritesExisting(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "base.apk")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	app := packages.App{Name: "X", Version: "1", SourcePath: src}
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "X_v1.apk"), []byte("old-and-longer"), 0o644))

	got, err := Extract(context.Background(), fsOpener{}, app, tmp)
	require.NoError(t, err)
	data, _ := os.ReadFile(got)
	assert.Equal(t, "new", string(data))
}

func TestExtractErrors(t *testing.T) {
	tmp := t.TempDir()

	_, err := Extract(context.Background(), fsOpener{}, packages.App{PackageName: "p"}, tmp)
	assert.ErrorIs(t, err, ErrNoSource)

	denied := errors.New("permission denied")
	_, err = Extract(context.Background(), failOpener{denied}, packages.App{Name: "Y", SourcePath: "/x.apk"}, tmp)
	assert.ErrorIs(t, err, denied)

	entries, _ := os.ReadDir(tmp)
	assert.Empty(t, entries, "failed extraction must leave nothing behind")
}

func TestExtractCanceled(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src", "base.apk")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte(strings.Repeat("x", 1024)), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dest := filepath.Join(tmp, "out")
	_, err := Extract(ctx, fsOpener{}, packages.App{Name: "Z", Version: "1", SourcePath: src}, dest)
	assert.ErrorIs(t, err, context.Canceled)

	entries, _ := os.ReadDir(dest)
	assert.Empty(t, entries)
}

func TestCompletionMessage(t *testing.T) {
	title, body := CompletionMessage(packages.App{Name: "Maps"}, "/sdcard/Maps_v1.apk")
	assert.Equal(t, "APK Extraction Complete", title)
	assert.Equal(t, "Maps saved to /sdcard/Maps_v1.apk", body)
}
