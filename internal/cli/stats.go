package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/history"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var statsLast string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cleanup history and statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := history.New(history.DefaultPath())
		stats := h.Stats()
		if statsLast != "" {
			window, err := utils.ParseWindow(statsLast)
			if err != nil {
				return err
			}
			stats = h.StatsSince(time.Now().Add(-window))
		}

		if jsonFlag {
			return printJSON(buildStatsJSON(stats))
		}
		printStats(os.Stdout, stats)
		return nil
	},
}

func printStats(w io.Writer, s history.Stats) {
	fmt.Fprintln(w, headerStyle.Render("droidbroom -- Cleanup Stats"))
	if s.TotalCleanups == 0 {
		fmt.Fprintln(w, "  No cleanup history yet. Run 'droidbroom clean' to get started.")
		return
	}

	fmt.Fprintf(w, "  Freed:     %s\n", okStyle.Render(utils.FormatSize(s.TotalFreed)))
	fmt.Fprintf(w, "  Cleanups:  %d\n", s.TotalCleanups)

	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render("  By category"))
	for _, name := range s.Categories() {
		cs := s.ByCategory[name]
		fmt.Fprintf(w, "    %-22s %10s  (%d %s)\n",
			name, utils.FormatSize(cs.BytesFreed), cs.Cleanups, plural(cs.Cleanups, "cleanup", "cleanups"))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render("  Recent"))
	for _, e := range s.Recent {
		fmt.Fprintf(w, "    %s  %-22s %10s  %d %s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04"), e.Category,
			utils.FormatSize(e.BytesFreed), e.Items, plural(e.Items, "item", "items"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	statsCmd.Flags().StringVar(&statsLast, "last", "", "Only count cleanups within this window, e.g. 7d or 30d")
}
