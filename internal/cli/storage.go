package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/storage"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var storageReader string

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show free and total space of shared storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readerByName(storageReader)
		if err != nil {
			return err
		}
		root := utils.ExpandHome(appConfig.Storage.ExternalRoot)
		snap := storage.Stat(cmd.Context(), r, root)

		if jsonFlag {
			return printJSON(storageJSON{
				Version:   version,
				Timestamp: time.Now().UTC(),
				Root:      root,
				Known:     !snap.Unknown(),
				Snapshot:  snap,
			})
		}
		fmt.Println(headerStyle.Render("Storage") + dimStyle.Render("  "+root))
		if snap.Unknown() {
			fmt.Println("  Capacity unknown.")
			return nil
		}
		fmt.Printf("  Used:  %s of %s (%s)\n", utils.FormatSize(snap.UsedBytes()), utils.FormatSize(snap.TotalBytes), utils.FormatRatio(snap.UsedRatio))
		fmt.Printf("  Free:  %s\n", utils.FormatSize(snap.FreeBytes))
		fmt.Printf("  %s\n", usageBar(snap.UsedRatio, 40))

		threshold := appStore.StorageThreshold()
		if snap.UsedRatio >= threshold {
			fmt.Println(warnStyle.Render(fmt.Sprintf("  Above alert threshold (%s).", utils.FormatRatio(threshold))))
		}
		return nil
	},
}

func readerByName(name string) (storage.Reader, error) {
	switch name {
	case "", "usage":
		return storage.UsageReader{}, nil
	case "statfs":
		return storage.StatfsReader{}, nil
	default:
		return nil, fmt.Errorf("unknown reader %q (use usage or statfs)", name)
	}
}

func usageBar(ratio float64, width int) string {
	filled := int(ratio*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	bar := ""
	for i := range width {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	if ratio >= appStore.StorageThreshold() {
		return warnStyle.Render(bar)
	}
	return okStyle.Render(bar)
}

func init() {
	storageCmd.Flags().StringVar(&storageReader, "reader", "usage", "Capacity source: usage or statfs")
}
