package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

// RiskBreakdown holds candidate bytes grouped by risk level.
type RiskBreakdown struct {
	Safe     int64 `json:"safe"`
	Moderate int64 `json:"moderate"`
	Risky    int64 `json:"risky"`
	Total    int64 `json:"total"`
}

var riskColors = map[scanner.RiskLevel]lipgloss.Color{
	scanner.Safe:     lipgloss.Color("82"),
	scanner.Moderate: lipgloss.Color("214"),
	scanner.Risky:    lipgloss.Color("196"),
}

func (rb *RiskBreakdown) add(level scanner.RiskLevel, n int64) {
	switch level {
	case scanner.Safe:
		rb.Safe += n
	case scanner.Moderate:
		rb.Moderate += n
	case scanner.Risky:
		rb.Risky += n
	}
	rb.Total += n
}

func (rb RiskBreakdown) bytes(level scanner.RiskLevel) int64 {
	switch level {
	case scanner.Safe:
		return rb.Safe
	case scanner.Moderate:
		return rb.Moderate
	case scanner.Risky:
		return rb.Risky
	}
	return 0
}

func riskSummary(cands []scanner.Candidate) RiskBreakdown {
	var rb RiskBreakdown
	for _, c := range cands {
		rb.add(c.Risk, c.Size)
	}
	return rb
}

// riskSummaryLine renders each non-empty bucket with its share of the total.
// Safe is always shown; "" means nothing to summarize.
func riskSummaryLine(rb RiskBreakdown) string {
	if rb.Total == 0 {
		return ""
	}
	var parts []string
	for _, level := range []scanner.RiskLevel{scanner.Safe, scanner.Moderate, scanner.Risky} {
		n := rb.bytes(level)
		if n == 0 && level != scanner.Safe {
			continue
		}
		share := utils.FormatRatio(float64(n) / float64(rb.Total))
		style := lipgloss.NewStyle().Foreground(riskColors[level])
		parts = append(parts, style.Render(fmt.Sprintf("%s: %s (%s)", level, utils.FormatSize(n), share)))
	}
	return strings.Join(parts, "  ")
}
