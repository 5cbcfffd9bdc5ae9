// Package schedule installs the periodic storage check as a per-user
// LaunchAgent (macOS) or systemd user timer (Linux).
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/utils"
)

const (
	bundleID = "com.droidbroom.monitor"
	unitName = "droidbroom-monitor"

	// DefaultInterval is the period between storage checks.
	DefaultInterval = 6 * time.Hour
)

// ErrNotActivated means the job files were written but the service manager
// refused to load them. The job starts at next login.
var ErrNotActivated = errors.New("job written but not activated")

// Kind names the service manager a job is installed into.
type Kind int

const (
	LaunchAgent Kind = iota
	SystemdUser
)

func (k Kind) String() string {
	switch k {
	case LaunchAgent:
		return "launchd"
	case SystemdUser:
		return "systemd"
	default:
		return "unknown"
	}
}

// KindFor returns the service manager used on goos.
func KindFor(goos string) Kind {
	if goos == "darwin" {
		return LaunchAgent
	}
	return SystemdUser
}

const plistTpl = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>{{range .Args}}
		<string>{{.}}</string>{{end}}
	</array>
	<key>StartInterval</key>
	<integer>{{.Seconds}}</integer>
	<key>RunAtLoad</key>
	<false/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}</string>
</dict>
</plist>
`

const serviceTpl = `[Unit]
Description=droidbroom storage threshold check

[Service]
Type=oneshot
ExecStart={{.ExecStart}}
StandardOutput=append:{{.LogPath}}
StandardError=append:{{.LogPath}}
`

const timerTpl = `[Unit]
Description=Run droidbroom storage check every {{.Every}}

[Timer]
OnBootSec=15min
OnUnitActiveSec={{.Seconds}}s
Persistent=true

[Install]
WantedBy=timers.target
`

// Job is the periodic check to install.
type Job struct {
	Binary   string
	Config   string
	Interval time.Duration
	LogPath  string
}

// NewJob returns the default job for the running binary.
func NewJob(configPath string, interval time.Duration) Job {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Job{
		Binary:   BinaryPath(),
		Config:   configPath,
		Interval: interval,
		LogPath:  utils.DataPath("monitor.log"),
	}
}

// Args returns the command line the job runs.
func (j Job) Args() []string {
	args := []string{j.Binary}
	if j.Config != "" {
		args = append(args, "--config", j.Config)
	}
	return append(args, "monitor", "check", "--quiet")
}

type tplData struct {
	Label     string
	Args      []string
	ExecStart string
	Seconds   int64
	Every     string
	LogPath   string
}

func (j Job) data() (tplData, error) {
	if j.Binary == "" {
		return tplData{}, errors.New("binary path is empty")
	}
	if j.Interval < time.Minute {
		return tplData{}, fmt.Errorf("interval %s is shorter than a minute", j.Interval)
	}
	args := j.Args()
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = systemdQuote(a)
	}
	return tplData{
		Label:     bundleID,
		Args:      args,
		ExecStart: strings.Join(quoted, " "),
		Seconds:   int64(j.Interval / time.Second),
		Every:     j.Interval.String(),
		LogPath:   j.LogPath,
	}, nil
}

func systemdQuote(s string) string {
	if !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	return strconv.Quote(s)
}

func render(name, tpl string, data tplData) (string, error) {
	tmpl, err := template.New(name).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Plist renders the LaunchAgent property list for j.
func (j Job) Plist() (string, error) {
	d, err := j.data()
	if err != nil {
		return "", err
	}
	return render("plist", plistTpl, d)
}

// SystemdUnits renders the service and timer units for j.
func (j Job) SystemdUnits() (service, timer string, err error) {
	d, err := j.data()
	if err != nil {
		return "", "", err
	}
	if service, err = render("service", serviceTpl, d); err != nil {
		return "", "", err
	}
	if timer, err = render("timer", timerTpl, d); err != nil {
		return "", "", err
	}
	return service, timer, nil
}

// BinaryPath returns the path to the droidbroom binary. It first checks the
// currently running executable, then falls back to a well-known install path.
func BinaryPath() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	return "/usr/local/bin/droidbroom"
}

// Scheduler writes, activates and removes the job for one service manager.
type Scheduler struct {
	kind   Kind
	dir    string
	uid    int
	runCmd func(ctx context.Context, name string, args ...string) ([]byte, error)
	logger *slog.Logger
}

// New returns a Scheduler for the host's service manager and default unit
// directory.
func New() *Scheduler {
	kind := KindFor(runtime.GOOS)
	return NewWithDir(kind, DefaultDir(kind))
}

// NewWithDir returns a Scheduler writing its files into dir.
func NewWithDir(kind Kind, dir string) *Scheduler {
	return &Scheduler{
		kind: kind,
		dir:  dir,
		uid:  os.Getuid(),
		runCmd: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

func (s *Scheduler) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Scheduler) Kind() Kind { return s.kind }

// DefaultDir returns the per-user directory the service manager reads.
func DefaultDir(kind Kind) string {
	home := utils.HomeDir()
	if kind == LaunchAgent {
		return filepath.Join(home, "Library", "LaunchAgents")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "systemd", "user")
	}
	return filepath.Join(home, ".config", "systemd", "user")
}

// Files returns the paths the job occupies.
func (s *Scheduler) Files() []string {
	if s.kind == LaunchAgent {
		return []string{filepath.Join(s.dir, bundleID+".plist")}
	}
	return []string{
		filepath.Join(s.dir, unitName+".service"),
		filepath.Join(s.dir, unitName+".timer"),
	}
}

// Enabled reports whether every job file is present.
func (s *Scheduler) Enabled() bool {
	for _, f := range s.Files() {
		if !utils.FileExists(f) {
			return false
		}
	}
	return true
}

// Enable writes the job files and loads them into the service manager. An
// activation failure leaves the files in place and returns ErrNotActivated.
func (s *Scheduler) Enable(ctx context.Context, job Job) error {
	contents, err := s.render(job)
	if err != nil {
		return fmt.Errorf("failed to generate schedule: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	if job.LogPath != "" {
		_ = os.MkdirAll(filepath.Dir(job.LogPath), 0o755)
	}
	for i, path := range s.Files() {
		if err := os.WriteFile(path, []byte(contents[i]), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := s.activate(ctx); err != nil {
		s.logger.Warn("schedule activation failed", "manager", s.kind.String(), "error", err)
		return fmt.Errorf("%w: %w", ErrNotActivated, err)
	}
	s.logger.Info("schedule enabled", "manager", s.kind.String(), "interval", job.Interval.String())
	return nil
}

func (s *Scheduler) render(job Job) ([]string, error) {
	if s.kind == LaunchAgent {
		plist, err := job.Plist()
		if err != nil {
			return nil, err
		}
		return []string{plist}, nil
	}
	service, timer, err := job.SystemdUnits()
	if err != nil {
		return nil, err
	}
	return []string{service, timer}, nil
}

func (s *Scheduler) domain() string {
	return "gui/" + strconv.Itoa(s.uid)
}

func (s *Scheduler) activate(ctx context.Context) error {
	if s.kind == LaunchAgent {
		plist := s.Files()[0]
		out, err := s.runCmd(ctx, "launchctl", "bootstrap", s.domain(), plist)
		if err == nil {
			return nil
		}
		if !strings.Contains(string(out), "already loaded") {
			return fmt.Errorf("launchctl bootstrap: %w", err)
		}
		_, _ = s.runCmd(ctx, "launchctl", "bootout", s.domain(), plist)
		if _, err := s.runCmd(ctx, "launchctl", "bootstrap", s.domain(), plist); err != nil {
			return fmt.Errorf("launchctl bootstrap: %w", err)
		}
		return nil
	}
	if _, err := s.runCmd(ctx, "systemctl", "--user", "daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	if _, err := s.runCmd(ctx, "systemctl", "--user", "enable", "--now", unitName+".timer"); err != nil {
		return fmt.Errorf("systemctl enable: %w", err)
	}
	return nil
}

// Disable unloads the job and removes its files. Removing a job that is not
// installed is not an error.
func (s *Scheduler) Disable(ctx context.Context) error {
	if s.kind == LaunchAgent {
		if out, err := s.runCmd(ctx, "launchctl", "bootout", s.domain(), s.Files()[0]); err != nil {
			if !strings.Contains(string(out), "not find") && !strings.Contains(string(out), "No such") {
				s.logger.Debug("launchctl bootout failed", "error", err)
			}
		}
	} else if _, err := s.runCmd(ctx, "systemctl", "--user", "disable", "--now", unitName+".timer"); err != nil {
		s.logger.Debug("systemctl disable failed", "error", err)
	}

	for _, path := range s.Files() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	if s.kind == SystemdUser {
		_, _ = s.runCmd(ctx, "systemctl", "--user", "daemon-reload")
	}
	s.logger.Info("schedule disabled", "manager", s.kind.String())
	return nil
}
