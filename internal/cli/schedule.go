package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the periodic storage check",
	Long:  "Enable, disable, or check the status of the periodic storage check (systemd user timer on Linux, LaunchAgent on macOS).",
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the periodic storage check",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appStore.SetStorageAlertsEnabled(true); err != nil {
			return err
		}
		return enableSchedule(cmd)
	},
}

func enableSchedule(cmd *cobra.Command) error {
	interval := config.ParseDuration(appConfig.Monitor.Interval, schedule.DefaultInterval)
	fmt.Printf("Installing storage check every %s...\n", interval)

	err := scheduleToggler{}.Enable(cmd.Context())
	if errors.Is(err, schedule.ErrNotActivated) {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		fmt.Println("The check will start after your next login.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to install schedule: %w", err)
	}

	s := schedule.New()
	fmt.Println("Storage alerts enabled.")
	fmt.Printf("  Manager: %s\n", s.Kind())
	for _, f := range s.Files() {
		fmt.Printf("  File:    %s\n", f)
	}
	return nil
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the periodic storage check",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appStore.SetStorageAlertsEnabled(false); err != nil {
			return err
		}
		return disableSchedule(cmd)
	},
}

func disableSchedule(cmd *cobra.Command) error {
	t := scheduleToggler{}
	if !t.Enabled() {
		fmt.Println("Storage alerts disabled (no schedule was installed).")
		return nil
	}
	if err := t.Disable(cmd.Context()); err != nil {
		return fmt.Errorf("failed to remove schedule: %w", err)
	}
	fmt.Println("Storage alerts disabled.")
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the periodic storage check status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := schedule.New()
		if s.Enabled() {
			fmt.Println("Storage check: scheduled")
			fmt.Printf("  Every:     %s\n", config.ParseDuration(appConfig.Monitor.Interval, schedule.DefaultInterval))
			fmt.Printf("  Threshold: %.0f%%\n", appStore.StorageThreshold()*100)
			fmt.Printf("  Alerts:    %v\n", appStore.StorageAlertsEnabled())
			for _, f := range s.Files() {
				fmt.Printf("  File:      %s\n", f)
			}
		} else {
			fmt.Println("Storage check: not scheduled")
			fmt.Println("  Run 'droidbroom schedule enable' to set up periodic checks.")
		}
		return nil
	},
}

func init() {
	scheduleCmd.AddCommand(enableCmd)
	scheduleCmd.AddCommand(disableCmd)
	scheduleCmd.AddCommand(statusCmd)
}
