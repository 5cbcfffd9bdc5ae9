package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var (
	appsSort     string
	appsDesc     bool
	appsUser     bool
	appsRemember bool
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List installed applications",
	RunE: func(cmd *cobra.Command, args []string) error {
		by, ascending, err := appsOrder(cmd)
		if err != nil {
			return err
		}
		if appsRemember {
			if err := appStore.SetSortBy(by); err != nil {
				return err
			}
			if err := appStore.SetAscending(ascending); err != nil {
				return err
			}
		}

		lister, err := buildLister(appConfig)
		if err != nil {
			return err
		}
		apps, err := lister.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list apps: %w", err)
		}
		if appsUser {
			apps = userApps(apps)
		}
		packages.Sort(apps, by, ascending)

		if jsonFlag {
			return printJSON(appsJSON{
				Version:   version,
				Timestamp: time.Now().UTC(),
				SortBy:    string(by),
				Ascending: ascending,
				Apps:      apps,
			})
		}
		printApps(apps, by)
		return nil
	},
}

// appsOrder resolves the ordering from flags, falling back to the stored
// settings.
func appsOrder(cmd *cobra.Command) (config.SortBy, bool, error) {
	by := appStore.SortBy()
	if cmd.Flags().Changed("sort") {
		parsed, err := config.ParseSortBy(appsSort)
		if err != nil {
			return "", false, err
		}
		by = parsed
	}
	ascending := appStore.IsAscending()
	if cmd.Flags().Changed("desc") {
		ascending = !appsDesc
	}
	return by, ascending, nil
}

func userApps(apps []packages.App) []packages.App {
	out := apps[:0:0]
	for _, a := range apps {
		if !a.System {
			out = append(out, a)
		}
	}
	return out
}

func printApps(apps []packages.App, by config.SortBy) {
	if len(apps) == 0 {
		fmt.Println("No applications found.")
		return
	}
	fmt.Printf("%-32s %-40s %10s  %s\n", "Name", "Package", "Size", by)
	for _, a := range apps {
		fmt.Printf("%-32s %-40s %10s  %s\n",
			truncatePath(a.Label(), 32), truncatePath(a.PackageName, 40), utils.FormatSize(a.SizeBytes), sortColumn(a, by))
	}
	fmt.Printf("\n%d apps\n", len(apps))
}

func sortColumn(a packages.App, by config.SortBy) string {
	switch by {
	case config.SortDate:
		return formatDate(a.FirstInstall)
	case config.SortDateUsed:
		if a.LastUsed == nil {
			return formatDate(a.LastUpdate)
		}
		return formatDate(*a.LastUsed)
	default:
		if a.System {
			return dimStyle.Render("system")
		}
		return ""
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func init() {
	appsCmd.Flags().StringVar(&appsSort, "sort", "", "Sort by Name, Size, Date or \"Date (Used)\"")
	appsCmd.Flags().BoolVar(&appsDesc, "desc", false, "Sort descending")
	appsCmd.Flags().BoolVar(&appsUser, "user", false, "Hide system apps")
	appsCmd.Flags().BoolVar(&appsRemember, "remember", false, "Save the sort order as the default")
}
