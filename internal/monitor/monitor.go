// Package monitor decides when to warn that device storage is nearly full.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/storage"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

// DefaultCooldown is the minimum time between two alerts.
const DefaultCooldown = 12 * time.Hour

// Reason explains an AlertDecision.
type Reason string

const (
	ReasonDisabled Reason = "alerts disabled"
	ReasonUnknown  Reason = "storage capacity unknown"
	ReasonCooldown Reason = "cooling down after previous alert"
	ReasonBelow    Reason = "usage below threshold"
	ReasonAbove    Reason = "usage at or above threshold"
)

// Input is everything the alert policy looks at.
type Input struct {
	Enabled   bool
	Snapshot  storage.Snapshot
	Threshold float64
	LastAlert time.Time
	Cooldown  time.Duration
	Now       time.Time
}

type AlertDecision struct {
	Alert     bool             `json:"alert"`
	Reason    Reason           `json:"reason"`
	Snapshot  storage.Snapshot `json:"snapshot"`
	Threshold float64          `json:"threshold"`
}

// Decide applies the alert policy. It has no side effects.
func Decide(in Input) AlertDecision {
	d := AlertDecision{Snapshot: in.Snapshot, Threshold: in.Threshold}
	switch {
	case !in.Enabled:
		d.Reason = ReasonDisabled
	case in.Snapshot.Unknown() || in.Snapshot.TotalBytes <= 0:
		d.Reason = ReasonUnknown
	case !in.LastAlert.IsZero() && in.Now.Sub(in.LastAlert) < in.Cooldown:
		d.Reason = ReasonCooldown
	case in.Snapshot.UsedRatio >= in.Threshold:
		d.Alert = true
		d.Reason = ReasonAbove
	default:
		d.Reason = ReasonBelow
	}
	return d
}

// Message formats the notification for an alert.
func Message(d AlertDecision) (title, body string) {
	title = fmt.Sprintf("Storage Critical: %s Used", utils.FormatRatio(d.Snapshot.UsedRatio))
	body = fmt.Sprintf("Only %s free (%s). Run droidbroom clean to reclaim space.",
		utils.FormatSize(d.Snapshot.FreeBytes), utils.FormatRatio(d.Snapshot.FreeRatio()))
	return title, body
}

// Settings is the subset of the config store the monitor reads.
type Settings interface {
	StorageAlertsEnabled() bool
	StorageThreshold() float64
}

// State is persisted between checks.
type State struct {
	LastAlert time.Time `json:"last_storage_alert"`
}

// DefaultStatePath returns ~/.local/share/droidbroom/monitor.json.
func DefaultStatePath() string {
	return utils.DataPath("monitor.json")
}

// LoadState reads the state file. A missing file yields the zero State.
func LoadState(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("failed to read monitor state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("failed to parse monitor state: %w", err)
	}
	return s, nil
}

// SaveState writes the state file, creating parent directories.
func SaveState(path string, s State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create monitor state directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal monitor state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write monitor state: %w", err)
	}
	return nil
}

// Monitor checks the capacity root against the configured threshold.
type Monitor struct {
	reader    storage.Reader
	root      string
	settings  Settings
	statePath string
	cooldown  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func New(reader storage.Reader, root string, settings Settings, statePath string, cooldown time.Duration) *Monitor {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Monitor{
		reader:    reader,
		root:      root,
		settings:  settings,
		statePath: statePath,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (m *Monitor) SetLogger(l *slog.Logger) { m.logger = l }

func (m *Monitor) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// CheckAndMaybeAlert reads the capacity root, applies Decide and records the
// alert time when an alert fires. A corrupt state file is treated as "never
// alerted". Sending the notification is up to the caller.
func (m *Monitor) CheckAndMaybeAlert(ctx context.Context) (AlertDecision, error) {
	snap := storage.Stat(ctx, m.reader, m.root)

	state, err := LoadState(m.statePath)
	if err != nil {
		m.log().Warn("ignoring unreadable monitor state", "path", m.statePath, "error", err)
		state = State{}
	}

	now := m.now()
	d := Decide(Input{
		Enabled:   m.settings.StorageAlertsEnabled(),
		Snapshot:  snap,
		Threshold: m.settings.StorageThreshold(),
		LastAlert: state.LastAlert,
		Cooldown:  m.cooldown,
		Now:       now,
	})
	m.log().Info("storage check", "root", m.root, "used_ratio", snap.UsedRatio, "threshold", d.Threshold, "alert", d.Alert, "reason", string(d.Reason))

	if d.Alert {
		if err := SaveState(m.statePath, State{LastAlert: now}); err != nil {
			return d, err
		}
	}
	return d, nil
}
