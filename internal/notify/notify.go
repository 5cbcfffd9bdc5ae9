// Package notify delivers user-facing notifications for storage alerts and
// finished backups.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lu-zhengda/droidbroom/internal/config"
)

// Notifier sends a single notification.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Multi fans a notification out to every notifier. All notifiers are tried;
// the returned error joins every failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, title, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// New builds the notifier described by cfg. With nothing enabled it returns
// Nop so callers never need a nil check.
func New(cfg config.NotifyConfig, logger *slog.Logger) (Notifier, error) {
	var m Multi
	if cfg.Desktop {
		d := NewDesktop()
		d.SetLogger(logger)
		m = append(m, d)
	}
	if len(cfg.URLs) > 0 {
		s, err := NewShoutrrr(cfg.URLs, 10*time.Second)
		if err != nil {
			return nil, fmt.Errorf("notify.urls: %w", err)
		}
		m = append(m, s)
	}
	switch len(m) {
	case 0:
		return Nop{}, nil
	case 1:
		return m[0], nil
	}
	return m, nil
}
