package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/notify"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/schedule"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/storage"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

type deps struct {
	engine   *engine.Engine
	lister   packages.Lister
	storage  storage.Reader
	notifier notify.Notifier
}

func buildDeps() (*deps, error) {
	lister, err := buildLister(appConfig)
	if err != nil {
		return nil, err
	}
	n, err := notify.New(appConfig.Notify, logger)
	if err != nil {
		logger.Warn("notifications disabled", "error", err)
		n = notify.Nop{}
	}
	return &deps{
		engine:   buildEngine(appConfig, lister),
		lister:   lister,
		storage:  storage.StatfsReader{},
		notifier: n,
	}, nil
}

func buildLister(cfg *config.Config) (packages.Lister, error) {
	pc := cfg.Packages
	pc.Manifest = utils.ExpandHome(pc.Manifest)
	l, err := packages.New(pc)
	if err != nil {
		return nil, err
	}
	if s, ok := l.(*packages.Shell); ok {
		s.SetLogger(logger)
	}
	return l, nil
}

// buildEngine registers the three discovery passes in their fixed order:
// shadow folders, known junk paths, then per-app data.
func buildEngine(cfg *config.Config, lister packages.Lister) *engine.Engine {
	e := engine.New(utils.ExpandHome(cfg.Storage.ExternalRoot), lister)
	e.Register(scanner.NewShadowPass(cfg.Scan.ShadowPrefixes, cfg.Scan.Allowlist))
	e.Register(scanner.NewKnownPathPass(cfg.Scan.JunkPaths))
	e.Register(scanner.NewAppDataPass(cfg.Scan.AppDataRoots, cfg.Scan.CacheDirs, cfg.Scan.ProgressEvery))
	e.SetLimits(cfg.Scan.MaxDepth, cfg.Scan.Workers)
	e.SetExcludeFunc(cfg.IsExcluded)
	e.SetLogger(logger)
	return e
}

var errUnsupported = errors.New("not supported by the configured package source")

func uninstallerFor(l packages.Lister) (packages.Uninstaller, error) {
	u, ok := l.(packages.Uninstaller)
	if !ok {
		return nil, fmt.Errorf("uninstall: %w", errUnsupported)
	}
	return u, nil
}

func openerFor(l packages.Lister) (packages.Opener, error) {
	o, ok := l.(packages.Opener)
	if !ok {
		return nil, fmt.Errorf("backup: %w", errUnsupported)
	}
	return o, nil
}

// scheduleToggler installs or removes the periodic storage check.
type scheduleToggler struct{}

func (scheduleToggler) Enable(ctx context.Context) error {
	s := schedule.New()
	s.SetLogger(logger)
	interval := config.ParseDuration(appConfig.Monitor.Interval, schedule.DefaultInterval)
	return s.Enable(ctx, schedule.NewJob(appStore.Path(), interval))
}

func (scheduleToggler) Disable(ctx context.Context) error {
	s := schedule.New()
	s.SetLogger(logger)
	return s.Disable(ctx)
}

func (scheduleToggler) Enabled() bool {
	return schedule.New().Enabled()
}
