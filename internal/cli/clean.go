package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/history"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var (
	cleanDryRun  bool
	cleanQuiet   bool
	cleanExclude []string
)

// cleanPrint prints to stdout only when --quiet is not set.
func cleanPrint(format string, a ...any) {
	if !cleanQuiet && !jsonFlag {
		fmt.Printf(format, a...)
	}
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Find junk and delete it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		if len(cleanExclude) > 0 {
			appConfig.Exclude = append(append([]string{}, appConfig.Exclude...), cleanExclude...)
		}
		d, err := buildDeps()
		if err != nil {
			return err
		}
		defer d.engine.Close()

		out := progressOut()
		if cleanQuiet {
			out = nil
		}
		summary, cands, err := discover(ctx, d.engine, out)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		root := utils.ExpandHome(appConfig.Storage.ExternalRoot)

		if len(cands) == 0 {
			cleanPrint("Nothing to clean!\n")
			if jsonFlag {
				return printJSON(cleanJSON{scanJSON: buildScanJSON(summary, root, cands, nil)})
			}
			return nil
		}
		if !cleanQuiet && !jsonFlag {
			printCandidates(os.Stdout, cands)
		}

		if cleanDryRun {
			cleanPrint("\n[DRY RUN] Would delete %d items (%s).\n", len(cands), utils.FormatSize(summary.TotalBytes))
			if jsonFlag {
				return printJSON(cleanJSON{scanJSON: buildScanJSON(summary, root, cands, nil)})
			}
			return nil
		}

		if !yesFlag {
			if jsonFlag {
				return errors.New("--json requires --yes for clean")
			}
			if !confirmAction(fmt.Sprintf("\nPermanently delete %d items (%s)?", len(cands), utils.FormatSize(summary.TotalBytes))) {
				d.engine.Abandon()
				fmt.Println("Cancelled.")
				return nil
			}
		}

		report, err := d.engine.Clean(ctx)
		recordHistory(report)
		if err != nil {
			return fmt.Errorf("cleanup stopped: %w", err)
		}

		if jsonFlag {
			return printJSON(cleanJSON{scanJSON: buildScanJSON(summary, root, cands, nil), Report: &report})
		}
		printCleanReport(report)
		return nil
	},
}

func recordHistory(report engine.CleanReport) {
	if report.Deleted == 0 {
		return
	}
	h := history.New(history.DefaultPath())
	if err := h.Record(history.EntriesFor(report, time.Now())...); err != nil {
		logger.Warn("failed to record cleanup history", "error", err)
	}
}

func printCleanReport(report engine.CleanReport) {
	cleanPrint("\n%s %d items (%s freed)", okStyle.Render("Cleaned"), report.Deleted, utils.FormatSize(report.Reclaimed))
	if report.Failed > 0 {
		cleanPrint(", %s", warnStyle.Render(fmt.Sprintf("%d failed", report.Failed)))
	}
	cleanPrint("\n")
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be deleted without deleting")
	cleanCmd.Flags().BoolVarP(&cleanQuiet, "quiet", "q", false, "Suppress output")
	cleanCmd.Flags().StringSliceVar(&cleanExclude, "exclude", nil, "Exclude paths matching pattern (glob or dir/**)")
}
