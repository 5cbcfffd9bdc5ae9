package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/backup"
	"github.com/lu-zhengda/droidbroom/internal/packages"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var backupDest string

var backupCmd = &cobra.Command{
	Use:   "backup <package>",
	Short: "Copy an installed app's APK to the extraction directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps()
		if err != nil {
			return err
		}
		defer d.engine.Close()

		opener, err := openerFor(d.lister)
		if err != nil {
			return err
		}
		apps, err := d.lister.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list apps: %w", err)
		}
		app, ok := packages.Find(apps, args[0])
		if !ok {
			return fmt.Errorf("package %q is not installed", args[0])
		}

		dest := backupDest
		if dest == "" {
			dest = appStore.ExtractionPath()
		}
		path, err := backup.Extract(ctx, opener, app, utils.ExpandHome(dest))
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		logger.Info("apk extracted", "package", app.PackageName, "path", path)

		title, body := backup.CompletionMessage(app, path)
		if err := d.notifier.Notify(ctx, title, body); err != nil {
			logger.Warn("backup notification failed", "error", err)
		}

		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		if jsonFlag {
			return printJSON(backupJSON{Version: version, Timestamp: time.Now().UTC(), Package: app.PackageName, Path: path, Size: size})
		}
		fmt.Printf("%s backed up successfully (%s).\nSaved to: %s\n", app.Label(), utils.FormatSize(size), path)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupDest, "dest", "", "Destination directory (default: extraction_path setting)")
}
