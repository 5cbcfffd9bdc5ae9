package packages

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// dumpsysTimeLayout is the layout pm uses for install timestamps.
const dumpsysTimeLayout = "2006-01-02 15:04:05"

// Shell lists and manages packages through the pm command, either on the
// device itself (prefix ["pm"]) or over adb (prefix ["adb", "shell", "pm"]).
type Shell struct {
	command []string
	details bool
	logger  *slog.Logger

	// runCmd executes a command and returns its stdout.
	// Defaults to exec.CommandContext(...).Output(); override in tests.
	runCmd func(ctx context.Context, name string, args ...string) ([]byte, error)

	// streamCmd starts a command and returns its stdout as a stream.
	streamCmd func(ctx context.Context, name string, args ...string) (io.ReadCloser, error)
}

// NewShell returns a Shell for the given pm command prefix. When details is
// set, List also queries version and install times per package.
func NewShell(command []string, details bool) *Shell {
	if len(command) == 0 {
		command = []string{"pm"}
	}
	return &Shell{
		command: append([]string(nil), command...),
		details: details,
		runCmd: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
		streamCmd: execStream,
	}
}

// SetLogger sets the logger for command tracing.
func (s *Shell) SetLogger(l *slog.Logger) { s.logger = l }

func (s *Shell) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// remote reports whether commands go through adb rather than the local shell.
func (s *Shell) remote() bool {
	return len(s.command) > 1
}

// shellPrefix is the command prefix without the trailing "pm".
func (s *Shell) shellPrefix() []string {
	return s.command[:len(s.command)-1]
}

func (s *Shell) pm(ctx context.Context, args ...string) ([]byte, error) {
	full := append(append([]string(nil), s.command[1:]...), args...)
	s.log().Debug("running package manager", "cmd", s.command[0], "args", full)
	out, err := s.runCmd(ctx, s.command[0], full...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s %s: %w", strings.Join(s.command, " "), strings.Join(args, " "), err)
	}
	return out, nil
}

func (s *Shell) sh(ctx context.Context, args ...string) ([]byte, error) {
	prefix := s.shellPrefix()
	full := append(append([]string(nil), prefix[1:]...), args...)
	return s.runCmd(ctx, prefix[0], full...)
}

// List returns every installed package, system packages included.
func (s *Shell) List(ctx context.Context) ([]App, error) {
	out, err := s.pm(ctx, "list", "packages", "-f", "-i", "-U")
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	apps := parsePackageList(out)

	sysOut, err := s.pm(ctx, "list", "packages", "-s")
	if err != nil {
		return nil, fmt.Errorf("failed to list system packages: %w", err)
	}
	system := parseSystemList(sysOut)
	for i := range apps {
		apps[i].System = system[apps[i].PackageName]
	}

	for i := range apps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		apps[i].SizeBytes = s.fileSize(ctx, apps[i].SourcePath)
		if s.details {
			s.fillDetails(ctx, &apps[i])
		}
	}
	return apps, nil
}

func (s *Shell) fileSize(ctx context.Context, path string) int64 {
	if path == "" {
		return 0
	}
	if !s.remote() {
		info, err := os.Stat(path)
		if err != nil {
			return 0
		}
		return info.Size()
	}
	if !s.details {
		return 0
	}
	out, err := s.sh(ctx, "stat", "-c", "%s", path)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Shell) fillDetails(ctx context.Context, app *App) {
	var out []byte
	var err error
	if s.remote() {
		out, err = s.sh(ctx, "dumpsys", "package", app.PackageName)
	} else {
		out, err = s.runCmd(ctx, "dumpsys", "package", app.PackageName)
	}
	if err != nil {
		s.log().Debug("dumpsys failed", "package", app.PackageName, "error", err)
		return
	}
	parseDumpsys(out, app)
}

// Uninstall removes the package for the current user.
func (s *Shell) Uninstall(ctx context.Context, pkg string) error {
	out, err := s.pm(ctx, "uninstall", pkg)
	if err != nil {
		return fmt.Errorf("failed to uninstall %s: %w", pkg, err)
	}
	if msg := strings.TrimSpace(string(out)); !strings.HasPrefix(msg, "Success") {
		return fmt.Errorf("failed to uninstall %s: %s", pkg, msg)
	}
	return nil
}

// Open streams an installed package file. Over adb the file is read with
// exec-out so binary content is not mangled by the remote terminal.
func (s *Shell) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if !s.remote() {
		return os.Open(path)
	}
	prefix := s.shellPrefix()
	args := make([]string, 0, len(prefix)+1)
	for _, a := range prefix[1:] {
		if a == "shell" {
			a = "exec-out"
		}
		args = append(args, a)
	}
	args = append(args, "cat", path)
	return s.streamCmd(ctx, prefix[0], args...)
}

type cmdReader struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (r *cmdReader) Close() error {
	r.ReadCloser.Close()
	return r.cmd.Wait()
}

func execStream(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return &cmdReader{ReadCloser: out, cmd: cmd}, nil
}

// parsePackageList parses `pm list packages -f -i -U` output:
//
//	package:/data/app/~~x==/com.foo-y==/base.apk=com.foo installer=com.android.vending uid:10123
func parsePackageList(out []byte) []App {
	var apps []App
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "package:") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "package:"))
		if len(fields) == 0 {
			continue
		}

		var app App
		head := fields[0]
		if i := strings.LastIndex(head, "="); i >= 0 {
			app.SourcePath = head[:i]
			app.PackageName = head[i+1:]
		} else {
			app.PackageName = head
		}
		if app.PackageName == "" {
			continue
		}
		app.Name = app.PackageName

		for _, f := range fields[1:] {
			if v, ok := strings.CutPrefix(f, "installer="); ok && v != "null" {
				app.Installer = v
			}
		}
		apps = append(apps, app)
	}
	return apps
}

func parseSystemList(out []byte) map[string]bool {
	system := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if pkg, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "package:"); ok && pkg != "" {
			system[pkg] = true
		}
	}
	return system
}

// parseDumpsys picks the first versionName and install timestamps out of
// `dumpsys package <id>` output.
func parseDumpsys(out []byte, app *App) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case app.Version == "" && strings.HasPrefix(line, "versionName="):
			app.Version = strings.TrimPrefix(line, "versionName=")
		case app.FirstInstall.IsZero() && strings.HasPrefix(line, "firstInstallTime="):
			if t, err := time.ParseInLocation(dumpsysTimeLayout, strings.TrimPrefix(line, "firstInstallTime="), time.Local); err == nil {
				app.FirstInstall = t
			}
		case app.LastUpdate.IsZero() && strings.HasPrefix(line, "lastUpdateTime="):
			if t, err := time.ParseInLocation(dumpsysTimeLayout, strings.TrimPrefix(line, "lastUpdateTime="), time.Local); err == nil {
				app.LastUpdate = t
			}
		}
	}
}
