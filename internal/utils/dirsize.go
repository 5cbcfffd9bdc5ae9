package utils

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth bounds size traversal to three levels below the measured
// root. Deeper media trees are slow to walk and rarely hold cache junk.
const DefaultMaxDepth = 3

// DirSize sums the sizes of regular files under path, visiting entries at most
// maxDepth levels below it. A regular file passed as path reports its own size.
// Directories and symlinks contribute nothing themselves, and symlinks are not
// followed.
//
// I/O errors never stop the walk. They are collected into the returned error
// while the size keeps the partial sum of everything that could be read, so
// the result is always >= 0.
func DirSize(path string, maxDepth int) (int64, error) {
	if maxDepth < 0 {
		maxDepth = 0
	}

	info, err := os.Lstat(path)
	if err != nil {
		return 0, err
	}
	if info.Mode().IsRegular() {
		return info.Size(), nil
	}
	if !info.IsDir() {
		return 0, nil
	}

	var (
		size int64
		errs []error
	)
	root := filepath.Clean(path)
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			if p == root {
				return fs.SkipDir
			}
			return nil // skip inaccessible entries, keep siblings
		}

		depth := depthBelow(root, p)
		if d.IsDir() {
			if depth >= maxDepth && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if depth > maxDepth || !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		size += fi.Size()
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	if len(errs) > 0 {
		return size, fmt.Errorf("size of %s is partial: %w", path, errors.Join(errs...))
	}
	return size, nil
}

// depthBelow returns how many path elements p lies below root.
func depthBelow(root, p string) int {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// DirSizes measures several paths concurrently with at most workers walks in
// flight. Sizes are returned in the order of paths; per-path errors are folded
// into a zero or partial size exactly as DirSize does.
func DirSizes(ctx context.Context, paths []string, maxDepth, workers int) ([]int64, error) {
	if workers < 1 {
		workers = 1
	}
	sizes := make([]int64, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			size, _ := DirSize(p, maxDepth)
			sizes[i] = size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sizes, err
	}
	return sizes, nil
}
