package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			MarginBottom(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorSecondary)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			MarginTop(1)

	statusBarStyle = lipgloss.NewStyle().
			Background(colorSubtle).
			Foreground(colorText).
			Padding(0, 1)

	headerBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(colorPrimary).
			Foreground(colorWhite).
			Padding(0, 1).
			MarginBottom(1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			MarginTop(1)

	successStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWarning)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)

	dangerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorDanger).
			Background(colorDangerBg).
			Padding(0, 1)
)
