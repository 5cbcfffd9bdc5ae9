//go:build windows

package storage

import "context"

// StatfsReader falls back to gopsutil where statfs(2) is unavailable.
type StatfsReader struct{}

func (StatfsReader) Read(ctx context.Context, root string) (Snapshot, error) {
	return UsageReader{}.Read(ctx, root)
}
