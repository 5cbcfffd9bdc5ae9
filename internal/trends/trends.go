// Package trends keeps a rolling record of storage usage samples taken by
// the periodic monitor and projects when the device will run out of space.
package trends

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/storage"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

// Sample is one recorded capacity reading.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Total     int64     `json:"total_bytes"`
	Used      int64     `json:"used_bytes"`
	Free      int64     `json:"free_bytes"`
	UsedRatio float64   `json:"used_ratio"`
}

// FromSnapshot converts a capacity snapshot taken at t.
func FromSnapshot(s storage.Snapshot, t time.Time) Sample {
	return Sample{
		Timestamp: t.UTC(),
		Total:     s.TotalBytes,
		Used:      s.UsedBytes(),
		Free:      s.FreeBytes,
		UsedRatio: s.UsedRatio,
	}
}

// Confidence grades a forecast by the number of samples behind it.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Forecast predicts when free space reaches zero. DaysUntilFull is -1 when
// usage is flat or shrinking.
type Forecast struct {
	GrowthPerDay  int64      `json:"growth_per_day_bytes"`
	DaysUntilFull int        `json:"days_until_full"`
	ProjectedDate string     `json:"projected_full_date,omitempty"`
	Confidence    Confidence `json:"confidence"`
}

// Report is the output of the trend command.
type Report struct {
	Samples  []Sample  `json:"samples"`
	Latest   *Sample   `json:"latest,omitempty"`
	Forecast *Forecast `json:"forecast,omitempty"`
}

// maxSamples caps the file at a year of four checks a day.
const maxSamples = 4 * 365

type Store struct {
	path string
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// DefaultPath returns ~/.local/share/droidbroom/storage-trends.json.
func DefaultPath() string {
	return utils.DataPath("storage-trends.json")
}

// Record appends a sample, keeping at most maxSamples. Unknown snapshots
// are skipped. A corrupt file is replaced.
func (s *Store) Record(snap storage.Snapshot) error {
	if snap.Unknown() {
		return nil
	}
	samples, err := s.load()
	if err != nil {
		samples = nil
	}
	samples = append(samples, FromSnapshot(snap, s.now()))
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	return s.save(samples)
}

// Since returns the samples recorded within window of now.
func (s *Store) Since(window time.Duration) ([]Sample, error) {
	samples, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	cutoff := s.now().UTC().Add(-window)
	var out []Sample
	for _, smp := range samples {
		if !smp.Timestamp.Before(cutoff) {
			out = append(out, smp)
		}
	}
	return out, nil
}

// Report builds the trend report for window.
func (s *Store) Report(window time.Duration) (Report, error) {
	samples, err := s.Since(window)
	if err != nil {
		return Report{}, err
	}
	r := Report{Samples: samples}
	if len(samples) > 0 {
		latest := samples[len(samples)-1]
		r.Latest = &latest
		f := Project(samples, s.now())
		r.Forecast = &f
	}
	return r, nil
}

func (s *Store) load() ([]Sample, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse storage trends: %w", err)
	}
	return samples, nil
}

func (s *Store) save(samples []Sample) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage trends: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write storage trends: %w", err)
	}
	return nil
}

// Project derives the daily growth of used space from the first and last
// sample and extrapolates the latest free space.
func Project(samples []Sample, now time.Time) Forecast {
	flat := Forecast{DaysUntilFull: -1, Confidence: ConfidenceLow}
	if len(samples) < 2 {
		return flat
	}

	first, last := samples[0], samples[len(samples)-1]
	days := last.Timestamp.Sub(first.Timestamp).Hours() / 24
	if days < 0.01 {
		return flat
	}

	f := Forecast{
		GrowthPerDay: int64(float64(last.Used-first.Used) / days),
		Confidence:   ConfidenceLow,
	}
	switch {
	case len(samples) > 30:
		f.Confidence = ConfidenceHigh
	case len(samples) >= 7:
		f.Confidence = ConfidenceMedium
	}

	if f.GrowthPerDay <= 0 {
		f.DaysUntilFull = -1
		return f
	}
	if last.Free <= 0 {
		f.DaysUntilFull = 0
		f.ProjectedDate = now.UTC().Format("2006-01-02")
		return f
	}
	f.DaysUntilFull = int(last.Free / f.GrowthPerDay)
	f.ProjectedDate = now.UTC().AddDate(0, 0, f.DaysUntilFull).Format("2006-01-02")
	return f
}
