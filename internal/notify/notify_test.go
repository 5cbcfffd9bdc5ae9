package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/droidbroom/internal/config"
)

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) Notify(_ context.Context, title, message string) error {
	r.calls = append(r.calls, title+"|"+message)
	return r.err
}

func TestMultiTriesEveryNotifier(t *testing.T) {
	boom := errors.New("boom")
	a := &recorder{err: boom}
	b := &recorder{}

	err := Multi{a, b}.Notify(context.Background(), "t", "m")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"t|m"}, a.calls)
	assert.Equal(t, []string{"t|m"}, b.calls, "second notifier must run after a failure")
}

func TestNewNothingEnabled(t *testing.T) {
	n, err := New(config.NotifyConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, n)
	assert.NoError(t, n.Notify(context.Background(), "a", "b"))
}

func TestNewDesktopOnly(t *testing.T) {
	n, err := New(config.NotifyConfig{Desktop: true}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Desktop{}, n)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(config.NotifyConfig{URLs: []string{"not-a-service://x"}}, nil)
	assert.Error(t, err)
}

func TestNewShoutrrrRequiresURL(t *testing.T) {
	_, err := NewShoutrrr(nil, 0)
	assert.Error(t, err)
}

func fakeDesktop(goos string, installed ...string) (*Desktop, *[][]string) {
	var ran [][]string
	have := map[string]bool{}
	for _, name := range installed {
		have[name] = true
	}
	d := NewDesktop()
	d.goos = goos
	d.lookPath = func(name string) (string, error) {
		if have[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	d.runCmd = func(_ context.Context, name string, args ...string) error {
		ran = append(ran, append([]string{name}, args...))
		return nil
	}
	return d, &ran
}

func TestDesktopBackendSelection(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		installed []string
		wantTool  string
	}{
		{"termux preferred", "android", []string{"termux-notification", "notify-send"}, "termux-notification"},
		{"notify-send on linux", "linux", []string{"notify-send"}, "notify-send"},
		{"osascript on darwin", "darwin", nil, "osascript"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ran := fakeDesktop(tt.goos, tt.installed...)
			require.NoError(t, d.Notify(context.Background(), "Storage Critical: 95% Used", "Only 1 GiB free"))
			require.Len(t, *ran, 1)
			assert.Equal(t, tt.wantTool, (*ran)[0][0])
		})
	}
}

func TestDesktopNoBackend(t *testing.T) {
	d, ran := fakeDesktop("linux")
	err := d.Notify(context.Background(), "t", "m")
	assert.ErrorIs(t, err, ErrNoBackend)
	assert.Empty(t, *ran)
}

func TestDesktopRunFailure(t *testing.T) {
	d, _ := fakeDesktop("linux", "notify-send")
	d.runCmd = func(context.Context, string, ...string) error { return errors.New("exit 1") }
	assert.Error(t, d.Notify(context.Background(), "t", "m"))
}
