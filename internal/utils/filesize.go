package utils

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
	TB = 1024 * GB
)

// FormatSize renders a byte count with binary (IEC) units, e.g. "1.5 KiB".
// Negative values keep their sign so scan diffs can be printed directly.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatRatio renders a 0.0-1.0 ratio as a whole percentage.
func FormatRatio(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}
