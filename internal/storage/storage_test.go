package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	tests := []struct {
		name        string
		free, total int64
		wantRatio   float64
		wantUnknown bool
	}{
		{"half full", 50, 100, 0.5, false},
		{"empty disk", 100, 100, 0, false},
		{"full disk", 0, 100, 1, false},
		{"unknown", 0, 0, 0, true},
		{"ninety percent", 10 << 30, 100 << 30, 0.9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSnapshot(tt.free, tt.total)
			assert.InDelta(t, tt.wantRatio, s.UsedRatio, 1e-9)
			assert.Equal(t, tt.wantUnknown, s.Unknown())
			assert.Equal(t, tt.total-tt.free, s.UsedBytes())
		})
	}
}

func TestFreeRatio(t *testing.T) {
	assert.InDelta(t, 0.25, NewSnapshot(25, 100).FreeRatio(), 1e-9)
	assert.Zero(t, Snapshot{}.FreeRatio())
}

func TestStatFoldsErrors(t *testing.T) {
	failing := ReaderFunc(func(ctx context.Context, root string) (Snapshot, error) {
		return NewSnapshot(1, 2), errors.New("permission denied")
	})
	s := Stat(context.Background(), failing, "/data")
	assert.True(t, s.Unknown())
	assert.Zero(t, s.UsedRatio)

	ok := ReaderFunc(func(ctx context.Context, root string) (Snapshot, error) {
		return NewSnapshot(30, 120), nil
	})
	assert.Equal(t, NewSnapshot(30, 120), Stat(context.Background(), ok, "/data"))
}

func TestStatfsReader(t *testing.T) {
	s, err := StatfsReader{}.Read(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, s.TotalBytes)
	assert.GreaterOrEqual(t, s.FreeBytes, int64(0))
	assert.LessOrEqual(t, s.FreeBytes, s.TotalBytes)
	assert.GreaterOrEqual(t, s.UsedRatio, 0.0)
	assert.LessOrEqual(t, s.UsedRatio, 1.0)
}

func TestStatfsReader_Missing(t *testing.T) {
	_, err := StatfsReader{}.Read(context.Background(), "/nonexistent/droidbroom/root")
	assert.Error(t, err)
	assert.True(t, Stat(context.Background(), StatfsReader{}, "/nonexistent/droidbroom/root").Unknown())
}

func TestUsageReader(t *testing.T) {
	s, err := UsageReader{}.Read(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, s.TotalBytes)
	assert.LessOrEqual(t, s.FreeBytes, s.TotalBytes)
}
