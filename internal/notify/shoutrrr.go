package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// Shoutrrr pushes notifications to the services named by shoutrrr URLs
// (ntfy, gotify, telegram, discord, ...).
type Shoutrrr struct {
	sender *router.ServiceRouter
}

// NewShoutrrr validates urls and prepares a sender. A zero timeout keeps the
// router default.
func NewShoutrrr(urls []string, timeout time.Duration) (*Shoutrrr, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("invalid notification url: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &Shoutrrr{sender: sender}, nil
}

func (s *Shoutrrr) Notify(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}
	var failed []error
	for _, err := range s.sender.Send(message, &params) {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("push notification: %w", errors.Join(failed...))
	}
	return nil
}
