package tui

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader draws a header bar with breadcrumb navigation.
func renderHeader(parts ...string) string {
	breadcrumb := "droidbroom"
	for _, p := range parts {
		breadcrumb += " > " + p
	}
	return headerBarStyle.Render(breadcrumb) + "\n"
}

// renderFooter draws a footer with keybind hints.
func renderFooter(hints string) string {
	return footerStyle.Render(hints)
}

// renderProgressBar draws a progress bar of the given width.
// ratio should be between 0.0 and 1.0.
func renderProgressBar(ratio float64, width int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	if filled == 0 && ratio > 0 {
		filled = 1
	}
	empty := width - filled
	color := barColor(ratio)
	fillStyle := lipgloss.NewStyle().Foreground(color)
	return "[" + fillStyle.Render(strings.Repeat("\u2588", filled)) + strings.Repeat("\u2591", empty) + "]"
}

// truncPath shortens s to max runes, keeping the tail.
func truncPath(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[len(r)-max:])
	}
	return "..." + string(r[len(r)-max+3:])
}

// relPath shows path relative to root when it lies beneath it.
func relPath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
