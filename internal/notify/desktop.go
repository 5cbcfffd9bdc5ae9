package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// ErrNoBackend is returned when no desktop notification tool is installed.
var ErrNoBackend = errors.New("no desktop notification tool found")

// Desktop shows a local notification through whichever tool the host
// provides: termux-notification on Android, notify-send on Linux desktops,
// osascript on macOS.
type Desktop struct {
	goos     string
	lookPath func(string) (string, error)
	runCmd   func(ctx context.Context, name string, args ...string) error
	logger   *slog.Logger
}

func NewDesktop() *Desktop {
	return &Desktop{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		runCmd: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		logger: slog.New(slog.DiscardHandler),
	}
}

func (d *Desktop) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// command picks the notification tool and its arguments.
func (d *Desktop) command(title, message string) (string, []string, error) {
	if d.goos == "darwin" {
		script := fmt.Sprintf(`display notification %q with title %q`, message, title)
		return "osascript", []string{"-e", script}, nil
	}
	if _, err := d.lookPath("termux-notification"); err == nil {
		return "termux-notification", []string{"--id", "droidbroom", "--title", title, "--content", message}, nil
	}
	if _, err := d.lookPath("notify-send"); err == nil {
		return "notify-send", []string{"--app-name=droidbroom", title, message}, nil
	}
	return "", nil, ErrNoBackend
}

func (d *Desktop) Notify(ctx context.Context, title, message string) error {
	name, args, err := d.command(title, message)
	if err != nil {
		return err
	}
	d.logger.Debug("desktop notification", "tool", name, "title", title)
	if err := d.runCmd(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
