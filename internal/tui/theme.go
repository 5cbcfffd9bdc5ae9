package tui

import "github.com/charmbracelet/lipgloss"

// ANSI-256 palette shared by every view.
var (
	colorPrimary   = lipgloss.Color("170")
	colorSecondary = lipgloss.Color("212")
	colorSuccess   = lipgloss.Color("82")
	colorWarning   = lipgloss.Color("214")
	colorDanger    = lipgloss.Color("196")
	colorDim       = lipgloss.Color("241")
	colorSubtle    = lipgloss.Color("236")
	colorText      = lipgloss.Color("252")
	colorWhite     = lipgloss.Color("255")
	colorDangerBg  = lipgloss.Color("52")
)

// categoryColors keys are the built-in junk categories.
var categoryColors = map[string]lipgloss.Color{
	"Thumbnails":        lipgloss.Color("75"),
	"Lost Files":        lipgloss.Color("223"),
	"Messaging Cache":   lipgloss.Color("119"),
	"Debug Logs":        lipgloss.Color("141"),
	"Temporary Files":   lipgloss.Color("220"),
	"Orphaned Folder":   lipgloss.Color("208"),
	"Orphaned App Data": lipgloss.Color("173"),
	"App Cache":         lipgloss.Color("39"),
}

// categoryColor returns the theme color for a junk category. Categories
// added through scan.junk_paths fall back to colorPrimary.
func categoryColor(name string) lipgloss.Color {
	if c, ok := categoryColors[name]; ok {
		return c
	}
	return colorPrimary
}

// Storage bar colors, picked by barColor.
var (
	barColorHigh   = lipgloss.Color("196")
	barColorMedium = lipgloss.Color("214")
	barColorLow    = lipgloss.Color("82")
)

// barColor grades a used ratio: red from 0.75, orange from 0.40, else green.
func barColor(ratio float64) lipgloss.Color {
	switch {
	case ratio >= 0.75:
		return barColorHigh
	case ratio >= 0.40:
		return barColorMedium
	default:
		return barColorLow
	}
}
