package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// printCandidates writes candidates grouped by category, keeping discovery
// order for both the groups and their items.
func printCandidates(w io.Writer, cands []scanner.Candidate) {
	if len(cands) == 0 {
		fmt.Fprintln(w, "No junk found.")
		return
	}

	var order []string
	grouped := make(map[string][]scanner.Candidate)
	for _, c := range cands {
		if _, ok := grouped[c.Category]; !ok {
			order = append(order, c.Category)
		}
		grouped[c.Category] = append(grouped[c.Category], c)
	}

	for _, category := range order {
		items := grouped[category]
		fmt.Fprintf(w, "\n%s (%s, %d items)\n", headerStyle.Render(category), utils.FormatSize(scanner.TotalSize(items)), len(items))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, item := range items {
			risk := ""
			if item.Risk >= scanner.Moderate {
				risk = warnStyle.Render(fmt.Sprintf(" [%s]", item.Risk))
			}
			fmt.Fprintf(w, "  %-44s %10s%s\n", truncatePath(item.Path, 44), utils.FormatSize(item.Size), risk)
		}
	}

	fmt.Fprintf(w, "\nTotal reclaimable: %s\n", utils.FormatSize(scanner.TotalSize(cands)))
	if line := riskSummaryLine(riskSummary(cands)); line != "" {
		fmt.Fprintln(w, line)
	}
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}

var stdin io.Reader = os.Stdin

func confirmAction(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(stdin).ReadString('\n')
	return strings.ToLower(strings.TrimSpace(line)) == "y"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// progressPrinter renders engine status updates as a single rewritten line
// on w. It is registered with Engine.OnStatus.
type progressPrinter struct {
	w    io.Writer
	last string
}

func (p *progressPrinter) update(s engine.Status) {
	switch s.State {
	case engine.StateDiscovering, engine.StateCleaning:
		line := fmt.Sprintf("\r%3.0f%%  %s", s.Progress*100, s.Label)
		if line == p.last {
			return
		}
		pad := ""
		if n := len(p.last) - len(line); n > 0 {
			pad = strings.Repeat(" ", n)
		}
		fmt.Fprint(p.w, line+pad)
		p.last = line
	default:
		p.done()
	}
}

func (p *progressPrinter) done() {
	if p.last != "" {
		fmt.Fprint(p.w, "\r"+strings.Repeat(" ", len(p.last))+"\r")
		p.last = ""
	}
}
