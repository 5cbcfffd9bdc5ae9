package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lu-zhengda/droidbroom/internal/backup"
	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/history"
	"github.com/lu-zhengda/droidbroom/internal/notify"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/storage"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

type viewState int

const (
	viewMenu viewState = iota
	viewDiscover
	viewSummary
	viewCategory
	viewConfirm
	viewClean
	viewFinished
	viewApps
	viewAppConfirm
	viewSettings
)

// Scheduler installs and removes the periodic storage check.
type Scheduler interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Enabled() bool
}

// Deps are the collaborators the TUI drives. Storage, Notifier and
// Scheduler may be nil.
type Deps struct {
	Engine    *engine.Engine
	Lister    packages.Lister
	Store     *config.Store
	Storage   storage.Reader
	Root      string
	DataRoot  string
	Notifier  notify.Notifier
	Scheduler Scheduler
	Logger    *slog.Logger
	// HistoryPath defaults to history.DefaultPath().
	HistoryPath string
}

// Messages

type statusMsg engine.Status

type storageMsg struct {
	snapshot storage.Snapshot
}

type discoverDoneMsg struct {
	summary engine.Summary
	err     error
}

type cleanDoneMsg struct {
	report engine.CleanReport
	err    error
}

type appsLoadedMsg struct {
	apps []packages.App
	err  error
}

type backupDoneMsg struct {
	app  packages.App
	dest string
	err  error
}

type uninstallDoneMsg struct {
	app packages.App
	err error
}

type settingDoneMsg struct {
	notice string
	err    error
}

type menuItem struct {
	label       string
	description string
}

var menuItems = []menuItem{
	{"Clean", "Find and remove junk on shared storage"},
	{"Apps", "Browse installed apps, back up or uninstall"},
	{"Settings", "Storage alerts and preferences"},
}

type settingItem int

const (
	settingAlerts settingItem = iota
	settingThreshold
	settingScanOnLaunch
	settingCount
)

const thresholdStep = 0.05

// Model is the bubbletea model for the interactive UI.
type Model struct {
	deps     Deps
	statusCh <-chan engine.Status

	currentView viewState
	width       int
	height      int

	spinner  spinner.Model
	progress progress.Model

	cursor       int
	scrollOffset int

	snapshot      storage.Snapshot
	storageLoaded bool

	status     engine.Status
	summary    *engine.Summary
	candidates []scanner.Candidate
	category   string
	report     *engine.CleanReport
	err        error

	apps        []packages.App
	appsLoading bool
	showSystem  bool
	pending     packages.App
	busy        bool

	scheduled bool

	notice string
}

// New builds the model. When scan_on_launch is set the UI opens on the
// discovery view and Init starts the run.
func New(d Deps) Model {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.HistoryPath == "" {
		d.HistoryPath = history.DefaultPath()
	}
	if d.DataRoot == "" {
		d.DataRoot = d.Root
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	m := Model{
		deps:     d,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		height:   24,
	}
	if d.Engine != nil {
		m.statusCh, _ = d.Engine.Subscribe()
	}
	if d.Store != nil && d.Store.ScanOnLaunch() {
		m.currentView = viewDiscover
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadStorage(), listenStatus(m.statusCh), m.spinner.Tick}
	if m.currentView == viewDiscover {
		cmds = append(cmds, m.doDiscover())
	}
	return tea.Batch(cmds...)
}

// Commands

func listenStatus(ch <-chan engine.Status) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(s)
	}
}

func (m Model) loadStorage() tea.Cmd {
	reader, root := m.deps.Storage, m.deps.DataRoot
	if reader == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return storageMsg{snapshot: storage.Stat(ctx, reader, root)}
	}
}

func (m Model) doDiscover() tea.Cmd {
	e := m.deps.Engine
	return func() tea.Msg {
		summary, err := e.Discover(context.Background())
		return discoverDoneMsg{summary: summary, err: err}
	}
}

func (m Model) doClean() tea.Cmd {
	e, log, path := m.deps.Engine, m.deps.Logger, m.deps.HistoryPath
	return func() tea.Msg {
		report, err := e.Clean(context.Background())
		if report.Deleted > 0 {
			h := history.New(path)
			if herr := h.Record(history.EntriesFor(report, time.Now())...); herr != nil {
				log.Warn("could not record cleanup history", "error", herr)
			}
		}
		return cleanDoneMsg{report: report, err: err}
	}
}

func (m Model) loadApps() tea.Cmd {
	lister := m.deps.Lister
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		apps, err := lister.List(ctx)
		return appsLoadedMsg{apps: apps, err: err}
	}
}

func (m Model) doBackup(app packages.App) tea.Cmd {
	lister, notifier, log := m.deps.Lister, m.deps.Notifier, m.deps.Logger
	dest := utils.ExpandHome(m.deps.Store.ExtractionPath())
	return func() tea.Msg {
		opener, ok := lister.(packages.Opener)
		if !ok {
			return backupDoneMsg{app: app, err: errors.New("package source cannot read package files")}
		}
		ctx := context.Background()
		path, err := backup.Extract(ctx, opener, app, dest)
		if err != nil {
			return backupDoneMsg{app: app, err: err}
		}
		if notifier != nil {
			title, body := backup.CompletionMessage(app, path)
			if nerr := notifier.Notify(ctx, title, body); nerr != nil {
				log.Warn("backup notification failed", "error", nerr)
			}
		}
		return backupDoneMsg{app: app, dest: path}
	}
}

func (m Model) doUninstall(app packages.App) tea.Cmd {
	lister := m.deps.Lister
	return func() tea.Msg {
		u, ok := lister.(packages.Uninstaller)
		if !ok {
			return uninstallDoneMsg{app: app, err: errors.New("package source cannot uninstall apps")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return uninstallDoneMsg{app: app, err: u.Uninstall(ctx, app.PackageName)}
	}
}

func (m Model) doToggleAlerts(enable bool) tea.Cmd {
	sched := m.deps.Scheduler
	return func() tea.Msg {
		if sched == nil {
			return settingDoneMsg{notice: "Storage alerts saved"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if enable {
			if err := sched.Enable(ctx); err != nil {
				return settingDoneMsg{err: fmt.Errorf("storage alerts saved but not scheduled: %w", err)}
			}
			return settingDoneMsg{notice: "Periodic storage check scheduled"}
		}
		if err := sched.Disable(ctx); err != nil {
			return settingDoneMsg{err: fmt.Errorf("storage alerts saved but schedule not removed: %w", err)}
		}
		return settingDoneMsg{notice: "Periodic storage check removed"}
	}
}

// Update

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = max(10, min(60, msg.Width-10))
		return m, nil

	case spinner.TickMsg:
		if m.currentView != viewDiscover && m.currentView != viewClean && !m.appsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.status = engine.Status(msg)
		return m, listenStatus(m.statusCh)

	case storageMsg:
		m.snapshot = msg.snapshot
		m.storageLoaded = true
		return m, nil

	case discoverDoneMsg:
		if m.currentView != viewDiscover {
			return m, nil
		}
		if errors.Is(msg.err, context.Canceled) {
			m.currentView = viewMenu
			return m, nil
		}
		m.err = msg.err
		m.summary = nil
		m.candidates = nil
		if msg.err == nil {
			m.summary = &msg.summary
			m.candidates = m.deps.Engine.Candidates()
		}
		m.cursor = 0
		m.currentView = viewSummary
		return m, nil

	case cleanDoneMsg:
		m.report = &msg.report
		m.err = msg.err
		if errors.Is(msg.err, context.Canceled) {
			m.err = nil
		}
		m.summary = nil
		m.candidates = nil
		m.currentView = viewFinished
		return m, m.loadStorage()

	case appsLoadedMsg:
		m.appsLoading = false
		m.err = msg.err
		m.apps = msg.apps
		m.sortApps()
		m.cursor = 0
		m.scrollOffset = 0
		return m, nil

	case backupDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.notice = failStyle.Render(fmt.Sprintf("Backup of %s failed: %v", msg.app.Label(), msg.err))
		} else {
			m.notice = successStyle.Render(fmt.Sprintf("%s saved to %s", msg.app.Label(), msg.dest))
		}
		return m, nil

	case uninstallDoneMsg:
		m.busy = false
		m.currentView = viewApps
		if msg.err != nil {
			m.notice = failStyle.Render(fmt.Sprintf("Uninstall of %s failed: %v", msg.app.Label(), msg.err))
			return m, nil
		}
		m.notice = successStyle.Render(fmt.Sprintf("Uninstalled %s", msg.app.Label()))
		m.appsLoading = true
		return m, tea.Batch(m.loadApps(), m.loadStorage(), m.spinner.Tick)

	case settingDoneMsg:
		if msg.err != nil {
			m.notice = warnStyle.Render(msg.err.Error())
		} else {
			m.notice = successStyle.Render(msg.notice)
		}
		m.scheduled = m.deps.Scheduler != nil && m.deps.Scheduler.Enabled()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.abandon()
			return m, tea.Quit
		}
		if msg.String() == "q" && m.currentView != viewDiscover && m.currentView != viewClean {
			return m, tea.Quit
		}

		switch m.currentView {
		case viewMenu:
			return m.updateMenu(msg)
		case viewDiscover, viewClean:
			return m.updateRunning(msg)
		case viewSummary:
			return m.updateSummary(msg)
		case viewCategory:
			return m.updateCategory(msg)
		case viewConfirm:
			return m.updateConfirm(msg)
		case viewFinished:
			return m.updateFinished(msg)
		case viewApps:
			return m.updateApps(msg)
		case viewAppConfirm:
			return m.updateAppConfirm(msg)
		case viewSettings:
			return m.updateSettings(msg)
		}
	}

	return m, nil
}

func (m Model) abandon() {
	if m.deps.Engine != nil {
		m.deps.Engine.Abandon()
	}
}

func (m Model) startDiscovery() (tea.Model, tea.Cmd) {
	m.currentView = viewDiscover
	m.status = engine.Status{State: engine.StateDiscovering}
	m.err = nil
	m.report = nil
	return m, tea.Batch(m.doDiscover(), m.spinner.Tick)
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(menuItems)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadStorage()
	case "enter":
		m.notice = ""
		switch m.cursor {
		case 0:
			return m.startDiscovery()
		case 1:
			m.currentView = viewApps
			m.appsLoading = true
			m.cursor = 0
			m.scrollOffset = 0
			return m, tea.Batch(m.loadApps(), m.spinner.Tick)
		case 2:
			m.currentView = viewSettings
			m.cursor = 0
			m.scheduled = m.deps.Scheduler != nil && m.deps.Scheduler.Enabled()
		}
	}
	return m, nil
}

// updateRunning only accepts esc, which abandons the running operation.
// The done message then moves the UI on.
func (m Model) updateRunning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.abandon()
	}
	return m, nil
}

func (m Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cats []engine.CategoryTotal
	if m.summary != nil {
		cats = m.summary.Categories
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(cats)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor < len(cats) {
			m.category = cats[m.cursor].Name
			m.scrollOffset = 0
			m.currentView = viewCategory
		}
	case "c", "d":
		if len(m.candidates) > 0 {
			m.currentView = viewConfirm
		}
	case "r":
		return m.startDiscovery()
	case "esc", "backspace":
		m.abandon()
		m.summary = nil
		m.candidates = nil
		m.currentView = viewMenu
		m.cursor = 0
	}
	return m, nil
}

func (m Model) categoryItems() []scanner.Candidate {
	var out []scanner.Candidate
	for _, c := range m.candidates {
		if c.Category == m.category {
			out = append(out, c)
		}
	}
	return out
}

func (m Model) updateCategory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := len(m.categoryItems())
	visible := m.visibleItemCount()
	switch msg.String() {
	case "up", "k":
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
	case "down", "j":
		if m.scrollOffset+visible < total {
			m.scrollOffset++
		}
	case "esc", "backspace":
		m.currentView = viewSummary
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		m.currentView = viewClean
		m.status = engine.Status{State: engine.StateCleaning}
		return m, tea.Batch(m.doClean(), m.spinner.Tick)
	case "n", "esc", "backspace":
		m.currentView = viewSummary
	}
	return m, nil
}

func (m Model) updateFinished(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		return m.startDiscovery()
	case "esc", "backspace", "enter":
		m.currentView = viewMenu
		m.cursor = 0
	}
	return m, nil
}

func (m Model) visibleApps() []packages.App {
	if m.showSystem {
		return m.apps
	}
	out := make([]packages.App, 0, len(m.apps))
	for _, a := range m.apps {
		if !a.System {
			out = append(out, a)
		}
	}
	return out
}

func (m *Model) sortApps() {
	if m.deps.Store == nil {
		return
	}
	packages.Sort(m.apps, m.deps.Store.SortBy(), m.deps.Store.IsAscending())
}

func nextSortKey(cur config.SortBy) config.SortBy {
	for i, opt := range config.SortOptions {
		if opt == cur {
			return config.SortOptions[(i+1)%len(config.SortOptions)]
		}
	}
	return config.SortOptions[0]
}

func (m Model) updateApps(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.appsLoading {
		if msg.String() == "esc" {
			m.currentView = viewMenu
			m.cursor = 1
		}
		return m, nil
	}
	apps := m.visibleApps()
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
	case "down", "j":
		if m.cursor < len(apps)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
	case "s":
		if err := m.deps.Store.SetSortBy(nextSortKey(m.deps.Store.SortBy())); err != nil {
			m.notice = failStyle.Render(err.Error())
		}
		m.sortApps()
	case "o":
		if err := m.deps.Store.SetAscending(!m.deps.Store.IsAscending()); err != nil {
			m.notice = failStyle.Render(err.Error())
		}
		m.sortApps()
	case "a":
		m.showSystem = !m.showSystem
		m.cursor = 0
		m.scrollOffset = 0
	case "b":
		if m.busy || m.cursor >= len(apps) {
			return m, nil
		}
		m.busy = true
		m.notice = "Extracting " + apps[m.cursor].Label() + "..."
		return m, m.doBackup(apps[m.cursor])
	case "u", "x":
		if m.busy || m.cursor >= len(apps) {
			return m, nil
		}
		m.pending = apps[m.cursor]
		m.currentView = viewAppConfirm
	case "esc", "backspace":
		m.notice = ""
		m.currentView = viewMenu
		m.cursor = 1
	}
	return m, nil
}

func (m Model) updateAppConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		m.busy = true
		m.notice = "Uninstalling " + m.pending.Label() + "..."
		m.currentView = viewApps
		return m, m.doUninstall(m.pending)
	case "n", "esc", "backspace":
		m.currentView = viewApps
	}
	return m, nil
}

func (m Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := m.deps.Store
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < int(settingCount)-1 {
			m.cursor++
		}
	case "left", "h", "right", "l", "enter", " ":
		m.notice = ""
		switch settingItem(m.cursor) {
		case settingAlerts:
			enable := !store.StorageAlertsEnabled()
			if err := store.SetStorageAlertsEnabled(enable); err != nil {
				m.notice = failStyle.Render(err.Error())
				return m, nil
			}
			return m, m.doToggleAlerts(enable)
		case settingThreshold:
			step := thresholdStep
			if msg.String() == "left" || msg.String() == "h" {
				step = -step
			}
			next := math.Round((store.StorageThreshold()+step)*100) / 100
			next = math.Max(config.MinThreshold, math.Min(config.MaxThreshold, next))
			if err := store.SetStorageThreshold(next); err != nil {
				m.notice = failStyle.Render(err.Error())
			}
		case settingScanOnLaunch:
			if err := store.SetScanOnLaunch(!store.ScanOnLaunch()); err != nil {
				m.notice = failStyle.Render(err.Error())
			}
		}
	case "esc", "backspace":
		m.notice = ""
		m.currentView = viewMenu
		m.cursor = 2
	}
	return m, nil
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleItemCount()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+visible {
		m.scrollOffset = m.cursor - visible + 1
	}
}

func (m Model) visibleItemCount() int {
	// header(2) + column header(1) + status bar(2) + notice(1) + footer(2)
	return max(5, m.height-8)
}

// Views

func (m Model) View() string {
	switch m.currentView {
	case viewDiscover:
		return m.viewRunning("Clean", "Scanning")
	case viewSummary:
		return m.viewSummary()
	case viewCategory:
		return m.viewCategory()
	case viewConfirm:
		return m.viewConfirm()
	case viewClean:
		return m.viewRunning("Clean", "Cleaning")
	case viewFinished:
		return m.viewFinished()
	case viewApps:
		return m.viewApps()
	case viewAppConfirm:
		return m.viewAppConfirm()
	case viewSettings:
		return m.viewSettings()
	default:
		return m.viewMenu()
	}
}

func (m Model) viewMenu() string {
	s := renderHeader()

	for i, item := range menuItems {
		if i == m.cursor {
			s += selectedStyle.Render("> "+item.label) + "  " + dimStyle.Render(item.description) + "\n"
		} else {
			s += fmt.Sprintf("  %-10s %s\n", item.label, dimStyle.Render(item.description))
		}
	}

	s += "\n" + m.viewStorage()
	s += "\n" + renderFooter("j/k navigate | enter select | r refresh storage | q quit")
	return s
}

func (m Model) viewStorage() string {
	switch {
	case m.deps.Storage == nil:
		return ""
	case !m.storageLoaded:
		return dimStyle.Render("  Reading storage...") + "\n"
	case m.snapshot.Unknown():
		return dimStyle.Render("  Storage information unavailable") + "\n"
	}
	snap := m.snapshot
	line := fmt.Sprintf("  Storage  %s %s used\n", renderProgressBar(snap.UsedRatio, 30), utils.FormatRatio(snap.UsedRatio))
	line += dimStyle.Render(fmt.Sprintf("           %s free of %s", utils.FormatSize(snap.FreeBytes), utils.FormatSize(snap.TotalBytes))) + "\n"
	if m.deps.Store != nil && snap.UsedRatio >= m.deps.Store.StorageThreshold() {
		line += warnStyle.Render(fmt.Sprintf("           Above the %s alert threshold", utils.FormatRatio(m.deps.Store.StorageThreshold()))) + "\n"
	}
	return line
}

func (m Model) viewRunning(section, verb string) string {
	s := renderHeader(section) + "\n"
	label := m.status.Label
	if label == "" {
		label = verb + "..."
	}
	s += "  " + m.spinner.View() + " " + label + "\n\n"
	s += "  " + m.progress.ViewAs(m.status.Progress) + "\n"
	if m.currentView == viewDiscover {
		s += dimStyle.Render("\n  "+m.deps.Root) + "\n"
	}
	s += renderFooter("esc cancel | ctrl+c quit")
	return s
}

func (m Model) viewSummary() string {
	s := renderHeader("Clean")

	if m.err != nil {
		s += failStyle.Render(fmt.Sprintf("  Discovery failed: %v", m.err)) + "\n"
		return s + renderFooter("r retry | esc back | q quit")
	}
	if m.summary == nil || m.summary.CandidateCount == 0 {
		s += successStyle.Render("  No junk found. Storage is clean!") + "\n"
		return s + renderFooter("r re-scan | esc back | q quit")
	}

	for i, c := range m.summary.Categories {
		cursor := "  "
		style := lipgloss.NewStyle().Foreground(categoryColor(c.Name))
		if i == m.cursor {
			cursor = "> "
			style = style.Bold(true)
		}
		line := fmt.Sprintf("%s%-22s %10s  (%d items)", cursor, c.Name, utils.FormatSize(c.Bytes), c.Count)
		s += style.Render(line) + "\n"
	}

	s += "\n" + statusBarStyle.Render(fmt.Sprintf("Total reclaimable: %s in %d items",
		utils.FormatSize(m.summary.TotalBytes), m.summary.CandidateCount))
	if m.notice != "" {
		s += "\n" + m.notice
	}
	s += "\n" + renderFooter("j/k navigate | enter details | c clean all | r re-scan | esc back | q quit")
	return s
}

func (m Model) viewCategory() string {
	s := renderHeader("Clean", m.category)
	items := m.categoryItems()

	visible := m.visibleItemCount()
	end := min(m.scrollOffset+visible, len(items))
	for i := m.scrollOffset; i < end; i++ {
		c := items[i]
		risk := ""
		if c.Risk >= scanner.Moderate {
			risk = warnStyle.Render(" [" + c.Risk.String() + "]")
		}
		s += fmt.Sprintf("  %-48s %10s%s\n", truncPath(relPath(m.deps.Root, c.Path), 48), utils.FormatSize(c.Size), risk)
		if c.Description != "" {
			s += dimStyle.Render("    "+c.Description) + "\n"
		}
	}
	if len(items) > visible {
		s += dimStyle.Render(fmt.Sprintf("  [%d-%d of %d]", m.scrollOffset+1, end, len(items))) + "\n"
	}

	s += "\n" + statusBarStyle.Render(fmt.Sprintf("%d items | %s", len(items), utils.FormatSize(scanner.TotalSize(items))))
	s += "\n" + renderFooter("j/k scroll | esc back | q quit")
	return s
}

func (m Model) viewConfirm() string {
	s := dangerStyle.Render(" CONFIRM DELETION ") + "\n\n"

	var risky int
	for _, c := range m.candidates {
		if c.Risk >= scanner.Risky {
			risky++
		}
	}
	if m.summary != nil {
		for _, c := range m.summary.Categories {
			s += fmt.Sprintf("  %-22s %10s  (%d items)\n", c.Name, utils.FormatSize(c.Bytes), c.Count)
		}
	}
	s += "\n"
	if risky > 0 {
		s += warnStyle.Render(fmt.Sprintf("  WARNING: %d items may hold user data!", risky)) + "\n\n"
	}
	s += fmt.Sprintf("  %d items | %s | will be permanently deleted\n",
		len(m.candidates), utils.FormatSize(scanner.TotalSize(m.candidates)))
	s += renderFooter("y confirm | n cancel | q quit")
	return s
}

func (m Model) viewFinished() string {
	s := renderHeader("Clean", "Done")
	if m.report == nil {
		return s + renderFooter("esc menu | q quit")
	}
	r := m.report

	if r.Canceled {
		s += warnStyle.Render("  Cleanup cancelled") + "\n"
	}
	s += successStyle.Render(fmt.Sprintf("  Cleaned: %d items (%s freed)", r.Deleted, utils.FormatSize(r.Reclaimed))) + "\n"
	if r.Failed > 0 {
		s += failStyle.Render(fmt.Sprintf("  Failed:  %d items", r.Failed)) + "\n"
	}
	if m.err != nil {
		s += failStyle.Render(fmt.Sprintf("  %v", m.err)) + "\n"
	}
	if len(r.Categories) > 0 {
		s += "\n"
		for _, c := range r.Categories {
			style := lipgloss.NewStyle().Foreground(categoryColor(c.Name))
			s += style.Render(fmt.Sprintf("  %-22s %10s  (%d items)", c.Name, utils.FormatSize(c.Bytes), c.Count)) + "\n"
		}
	}

	s += "\n" + m.viewStorage()
	s += renderFooter("r re-scan | esc menu | q quit")
	return s
}

func (m Model) viewApps() string {
	s := renderHeader("Apps")

	if m.appsLoading {
		return s + "  " + m.spinner.View() + " Loading installed apps...\n" + renderFooter("esc back | q quit")
	}
	if m.err != nil {
		s += failStyle.Render(fmt.Sprintf("  Could not list apps: %v", m.err)) + "\n"
		return s + renderFooter("esc back | q quit")
	}

	apps := m.visibleApps()
	order := "desc"
	by := config.SortName
	if m.deps.Store != nil {
		by = m.deps.Store.SortBy()
		if m.deps.Store.IsAscending() {
			order = "asc"
		}
	}
	s += dimStyle.Render(fmt.Sprintf("  %-30s %10s  %-10s  %s", "Name", "Size", "Installed", "Sorted by "+string(by)+" ("+order+")")) + "\n"

	visible := m.visibleItemCount()
	end := min(m.scrollOffset+visible, len(apps))
	for i := m.scrollOffset; i < end; i++ {
		a := apps[i]
		installed := "-"
		if !a.FirstInstall.IsZero() {
			installed = a.FirstInstall.Format("2006-01-02")
		}
		line := fmt.Sprintf("%-30s %10s  %-10s", truncPath(a.Label(), 30), utils.FormatSize(a.SizeBytes), installed)
		if a.System {
			line += dimStyle.Render("  system")
		}
		if i == m.cursor {
			s += selectedStyle.Render("> "+line) + "\n"
		} else {
			s += "  " + line + "\n"
		}
	}
	if len(apps) > visible {
		s += dimStyle.Render(fmt.Sprintf("  [%d-%d of %d]", m.scrollOffset+1, end, len(apps))) + "\n"
	}
	if len(apps) == 0 {
		s += dimStyle.Render("  No apps to show") + "\n"
	}

	if m.notice != "" {
		s += "\n" + m.notice + "\n"
	}
	s += renderFooter("j/k navigate | s sort key | o order | a system apps | b backup | u uninstall | esc back")
	return s
}

func (m Model) viewAppConfirm() string {
	s := dangerStyle.Render(" CONFIRM UNINSTALL ") + "\n\n"
	s += fmt.Sprintf("  %s\n", m.pending.Label())
	s += dimStyle.Render("  "+m.pending.PackageName) + "\n"
	if m.pending.System {
		s += "\n" + warnStyle.Render("  WARNING: this is a system app!") + "\n"
	}
	s += renderFooter("y uninstall | n cancel | q quit")
	return s
}

func (m Model) viewSettings() string {
	s := renderHeader("Settings")
	store := m.deps.Store

	rows := []struct{ label, value string }{
		{"Storage alerts", onOff(store.StorageAlertsEnabled())},
		{"Alert threshold", utils.FormatRatio(store.StorageThreshold())},
		{"Scan on launch", onOff(store.ScanOnLaunch())},
	}
	for i, r := range rows {
		line := fmt.Sprintf("%-18s %s", r.label, r.value)
		if i == m.cursor {
			s += selectedStyle.Render("> "+line) + "\n"
		} else {
			s += "  " + line + "\n"
		}
	}

	s += "\n" + dimStyle.Render("  APK backups: "+store.ExtractionPath()) + "\n"
	if m.deps.Scheduler != nil {
		state := "not installed"
		if m.scheduled {
			state = "installed"
		}
		s += dimStyle.Render("  Periodic check: "+state) + "\n"
	}
	s += dimStyle.Render("  Config: "+store.Path()) + "\n"

	if m.notice != "" {
		s += "\n" + m.notice + "\n"
	}
	s += renderFooter("j/k navigate | enter toggle | h/l adjust | esc back | q quit")
	return s
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
