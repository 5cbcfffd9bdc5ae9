// Package storage reads free and total capacity of a filesystem root.
package storage

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

// Snapshot is a point-in-time capacity reading. A zero Snapshot means the
// root could not be read.
type Snapshot struct {
	FreeBytes  int64   `json:"free_bytes"`
	TotalBytes int64   `json:"total_bytes"`
	UsedRatio  float64 `json:"used_ratio"`
}

// NewSnapshot derives UsedRatio from free and total. A zero total yields a
// ratio of 0.
func NewSnapshot(free, total int64) Snapshot {
	s := Snapshot{FreeBytes: free, TotalBytes: total}
	if total > 0 {
		s.UsedRatio = 1 - float64(free)/float64(total)
	}
	return s
}

// Unknown reports whether the snapshot carries no capacity data.
func (s Snapshot) Unknown() bool {
	return s.TotalBytes == 0 && s.FreeBytes == 0
}

// UsedBytes returns TotalBytes - FreeBytes.
func (s Snapshot) UsedBytes() int64 {
	return s.TotalBytes - s.FreeBytes
}

// FreeRatio returns the complement of UsedRatio, or 0 for an unknown snapshot.
func (s Snapshot) FreeRatio() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.FreeBytes) / float64(s.TotalBytes)
}

// Reader reads a capacity snapshot for a filesystem root.
type Reader interface {
	Read(ctx context.Context, root string) (Snapshot, error)
}

// ReaderFunc adapts a plain function to Reader.
type ReaderFunc func(ctx context.Context, root string) (Snapshot, error)

func (f ReaderFunc) Read(ctx context.Context, root string) (Snapshot, error) {
	return f(ctx, root)
}

// Stat reads root through r and folds any error into a zero snapshot.
func Stat(ctx context.Context, r Reader, root string) Snapshot {
	s, err := r.Read(ctx, root)
	if err != nil {
		return Snapshot{}
	}
	return s
}

// UsageReader reads capacity through gopsutil. It is used for the shared
// external storage root.
type UsageReader struct{}

func (UsageReader) Read(ctx context.Context, root string) (Snapshot, error) {
	u, err := disk.UsageWithContext(ctx, root)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read usage of %s: %w", root, err)
	}
	return NewSnapshot(int64(u.Free), int64(u.Total)), nil
}
