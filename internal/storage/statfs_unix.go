//go:build !windows

package storage

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"
)

// StatfsReader reads capacity with statfs(2). It is used for the device
// data root. Free space counts only blocks available to unprivileged users.
type StatfsReader struct{}

func (StatfsReader) Read(ctx context.Context, root string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return Snapshot{}, fmt.Errorf("failed to stat filesystem %s: %w", root, err)
	}
	bsize := int64(st.Bsize)
	return NewSnapshot(int64(st.Bavail)*bsize, int64(st.Blocks)*bsize), nil
}
