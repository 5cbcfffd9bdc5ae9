package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/engine"
	"github.com/lu-zhengda/droidbroom/internal/scancache"
	"github.com/lu-zhengda/droidbroom/internal/scanner"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var scanNoCache bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find junk on shared storage without deleting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		d, err := buildDeps()
		if err != nil {
			return err
		}
		defer d.engine.Close()

		summary, cands, err := discover(ctx, d.engine, progressOut())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		root := utils.ExpandHome(appConfig.Storage.ExternalRoot)
		var diff *scancache.DiffResult
		if !scanNoCache {
			diff = updateScanCache(summary, root)
		}

		if jsonFlag {
			return printJSON(buildScanJSON(summary, root, cands, diff))
		}
		printCandidates(os.Stdout, cands)
		printDiff(os.Stdout, diff)
		return nil
	},
}

// progressOut returns where live progress goes: stderr, or nowhere for
// machine-readable output.
func progressOut() io.Writer {
	if jsonFlag {
		return nil
	}
	return os.Stderr
}

// discover runs one discovery pass over the engine, rendering progress on w
// when it is non-nil.
func discover(ctx context.Context, e *engine.Engine, w io.Writer) (engine.Summary, []scanner.Candidate, error) {
	if w != nil {
		p := &progressPrinter{w: w}
		e.OnStatus(p.update)
		defer p.done()
	}
	summary, err := e.Discover(ctx)
	if err != nil {
		return engine.Summary{}, nil, err
	}
	return summary, e.Candidates(), nil
}

// updateScanCache diffs summary against the previous scan of the same root
// and stores it as the new baseline.
func updateScanCache(summary engine.Summary, root string) *scancache.DiffResult {
	path := scancache.DefaultPath()
	curr := scancache.FromSummary(summary, root, time.Now().UTC())

	var diff *scancache.DiffResult
	if prev, err := scancache.Load(path); err == nil && (prev.Root == "" || prev.Root == root) {
		d := scancache.Diff(prev, curr)
		diff = &d
	}
	if err := scancache.Save(path, curr); err != nil {
		logger.Warn("failed to save scan cache", "error", err)
	}
	return diff
}

func printDiff(w io.Writer, diff *scancache.DiffResult) {
	if diff == nil {
		return
	}
	sign := "+"
	if diff.TotalDelta < 0 {
		sign = ""
	}
	fmt.Fprintf(w, "\nSince last scan (%s): %s%s\n",
		diff.PreviousTimestamp.Local().Format("2006-01-02 15:04"), sign, utils.FormatSize(diff.TotalDelta))
	for _, c := range diff.Categories {
		if c.Delta == 0 {
			continue
		}
		note := ""
		if c.IsNew {
			note = dimStyle.Render(" (new)")
		}
		s := "+"
		if c.Delta < 0 {
			s = ""
		}
		fmt.Fprintf(w, "  %-24s %s%s%s\n", c.Name, s, utils.FormatSize(c.Delta), note)
	}
}

func init() {
	scanCmd.Flags().BoolVar(&scanNoCache, "no-cache", false, "Do not compare with or update the last-scan snapshot")
}
