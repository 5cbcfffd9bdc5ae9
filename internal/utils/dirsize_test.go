package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), 100)
	writeFile(t, filepath.Join(dir, "b.txt"), 200)

	size, err := DirSize(dir, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 300 {
		t.Errorf("DirSize = %d, want 300", size)
	}
}

func TestDirSize_Empty(t *testing.T) {
	dir := t.TempDir()
	size, err := DirSize(dir, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 0 {
		t.Errorf("DirSize of empty dir = %d, want 0", size)
	}
}

func TestDirSize_Nested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "nested.txt"), 500)

	size, err := DirSize(dir, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 500 {
		t.Errorf("DirSize = %d, want 500", size)
	}
}

func TestDirSize_DepthBound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "l1.bin"), 1)
	writeFile(t, filepath.Join(dir, "a", "l2.bin"), 10)
	writeFile(t, filepath.Join(dir, "a", "b", "l3.bin"), 100)
	writeFile(t, filepath.Join(dir, "a", "b", "c", "l4.bin"), 1000)

	tests := []struct {
		depth int
		want  int64
	}{
		{0, 0},
		{1, 1},
		{2, 11},
		{3, 111},
		{4, 1111},
	}
	for _, tt := range tests {
		size, err := DirSize(dir, tt.depth)
		if err != nil {
			t.Fatalf("depth %d: unexpected error: %v", tt.depth, err)
		}
		if size != tt.want {
			t.Errorf("DirSize(depth=%d) = %d, want %d", tt.depth, size, tt.want)
		}
	}
}

func TestDirSize_RegularFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.bin")
	writeFile(t, f, 42)

	size, err := DirSize(f, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 42 {
		t.Errorf("DirSize(file) = %d, want 42", size)
	}
}

func TestDirSize_Missing(t *testing.T) {
	size, err := DirSize(filepath.Join(t.TempDir(), "gone"), DefaultMaxDepth)
	if err == nil {
		t.Error("expected error for missing path")
	}
	if size != 0 {
		t.Errorf("DirSize(missing) = %d, want 0", size)
	}
}

func TestDirSize_SymlinkNotFollowed(t *testing.T) {
	dir := t.TempDir()
	target := t.TempDir()
	writeFile(t, filepath.Join(target, "big.bin"), 4096)
	writeFile(t, filepath.Join(dir, "small.bin"), 16)
	if err := os.Symlink(target, filepath.Join(dir, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	size, err := DirSize(dir, DefaultMaxDepth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != 16 {
		t.Errorf("DirSize = %d, want 16 (symlink must not be followed)", size)
	}
}

func TestDirSize_UnreadableSubtree(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ok", "a.bin"), 300)
	writeFile(t, filepath.Join(dir, "locked", "b.bin"), 700)
	writeFile(t, filepath.Join(dir, "sibling.bin"), 50)

	locked := filepath.Join(dir, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	size, err := DirSize(dir, DefaultMaxDepth)
	if err == nil {
		t.Error("expected a partial-size error for the locked subtree")
	}
	if size != 350 {
		t.Errorf("DirSize = %d, want 350 (only the locked subtree is lost)", size)
	}
}

func TestDirSizes(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	writeFile(t, filepath.Join(dir1, "a.txt"), 100)
	writeFile(t, filepath.Join(dir2, "b.txt"), 200)
	missing := filepath.Join(t.TempDir(), "missing")

	sizes, err := DirSizes(context.Background(), []string{dir1, missing, dir2}, DefaultMaxDepth, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{100, 0, 200}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("sizes[%d] = %d, want %d", i, sizes[i], want[i])
		}
	}
}

func TestDirSizes_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DirSizes(ctx, []string{t.TempDir()}, DefaultMaxDepth, 1)
	if err == nil {
		t.Error("expected context error")
	}
}
