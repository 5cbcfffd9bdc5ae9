package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/monitor"
	"github.com/lu-zhengda/droidbroom/internal/notify"
	"github.com/lu-zhengda/droidbroom/internal/storage"
	"github.com/lu-zhengda/droidbroom/internal/trends"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var monitorQuiet bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Storage threshold monitoring",
}

var monitorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check storage usage once and notify when above the threshold",
	Long: "Reads the capacity of storage.data_root and sends a notification when usage is\n" +
		"at or above storage_threshold. Alerts are rate limited by monitor.cooldown. This is\n" +
		"the command run by 'droidbroom schedule enable'.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		statePath := appConfig.Monitor.StateFile
		if statePath == "" {
			statePath = monitor.DefaultStatePath()
		}
		m := monitor.New(
			storage.StatfsReader{},
			capacityRoot(appConfig.Storage),
			appStore,
			utils.ExpandHome(statePath),
			config.ParseDuration(appConfig.Monitor.Cooldown, monitor.DefaultCooldown),
		)
		m.SetLogger(logger)

		d, err := m.CheckAndMaybeAlert(ctx)
		if err != nil {
			return err
		}
		if err := trends.NewStore(trends.DefaultPath()).Record(d.Snapshot); err != nil {
			logger.Warn("storage sample not recorded", "error", err)
		}
		if d.Alert {
			n, err := notify.New(appConfig.Notify, logger)
			if err != nil {
				return err
			}
			title, body := monitor.Message(d)
			if err := n.Notify(ctx, title, body); err != nil {
				logger.Warn("storage alert not delivered", "error", err)
			}
		}

		if jsonFlag {
			return printJSON(buildMonitorJSON(d))
		}
		if monitorQuiet {
			return nil
		}
		if d.Alert {
			title, body := monitor.Message(d)
			fmt.Println(warnStyle.Render(title))
			fmt.Println(body)
			return nil
		}
		fmt.Printf("No alert: %s (used %s, threshold %s)\n", d.Reason,
			utils.FormatRatio(d.Snapshot.UsedRatio), utils.FormatRatio(d.Threshold))
		return nil
	},
}

var trendLast string

var monitorTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show storage usage recorded by past checks",
	Long: "Lists the capacity samples recorded by 'droidbroom monitor check' and projects\n" +
		"when free space runs out from the growth between the first and last sample.",
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := utils.ParseWindow(trendLast)
		if err != nil {
			return err
		}
		report, err := trends.NewStore(trends.DefaultPath()).Report(window)
		if err != nil {
			return err
		}
		if jsonFlag {
			return printJSON(report)
		}
		printTrend(os.Stdout, report)
		return nil
	},
}

// capacityRoot is the root queried for device capacity: data_root, or the
// external root when data_root is unset.
func capacityRoot(c config.StorageConfig) string {
	if c.DataRoot != "" {
		return utils.ExpandHome(c.DataRoot)
	}
	return utils.ExpandHome(c.ExternalRoot)
}

func printTrend(w io.Writer, r trends.Report) {
	if len(r.Samples) == 0 {
		fmt.Fprintln(w, "No storage samples recorded yet. Enable the periodic check with 'droidbroom schedule enable'.")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Storage usage (%d samples)", len(r.Samples))))
	for _, s := range r.Samples {
		fmt.Fprintf(w, "  %s  %s  %s free\n", s.Timestamp.Local().Format("2006-01-02 15:04"),
			usageBar(s.UsedRatio, 20), utils.FormatSize(s.Free))
	}
	if r.Forecast == nil {
		return
	}
	f := r.Forecast
	fmt.Fprintln(w)
	switch {
	case f.DaysUntilFull < 0:
		fmt.Fprintf(w, "Usage is not growing (%s/day, %s confidence)\n", utils.FormatSize(f.GrowthPerDay), f.Confidence)
	case f.DaysUntilFull == 0:
		fmt.Fprintln(w, warnStyle.Render("Storage is full"))
	default:
		fmt.Fprintf(w, "Growing %s/day; full in ~%d %s (%s, %s confidence)\n",
			utils.FormatSize(f.GrowthPerDay), f.DaysUntilFull, plural(f.DaysUntilFull, "day", "days"), f.ProjectedDate, f.Confidence)
	}
}

func init() {
	monitorCheckCmd.Flags().BoolVarP(&monitorQuiet, "quiet", "q", false, "Print nothing (for scheduled runs)")
	monitorTrendCmd.Flags().StringVar(&trendLast, "last", "30d", "Time window to show, e.g. 7d, 90d, 12h")
	monitorCmd.AddCommand(monitorCheckCmd)
	monitorCmd.AddCommand(monitorTrendCmd)
}
