// Package purge removes files and directory trees from shared storage.
// Android shared storage has no trash, so every removal is permanent.
package purge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrRelativePath is returned for paths that are not absolute.
var ErrRelativePath = errors.New("refusing to delete relative path")

// Delete removes path. Directories are removed recursively; anything else is
// removed as a single entry, so a symlink is unlinked without touching its
// target.
func Delete(path string, isDir bool) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %s", ErrRelativePath, path)
	}
	if filepath.Clean(path) == string(filepath.Separator) {
		return fmt.Errorf("refusing to delete filesystem root")
	}

	var err error
	if isDir {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}
