package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/packages"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>",
	Short: "Uninstall an application by package name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkg := args[0]
		lister, err := buildLister(appConfig)
		if err != nil {
			return err
		}
		u, err := uninstallerFor(lister)
		if err != nil {
			return err
		}

		label := pkg
		if apps, err := lister.List(cmd.Context()); err == nil {
			app, ok := packages.Find(apps, pkg)
			if !ok {
				return fmt.Errorf("package %q is not installed", pkg)
			}
			label = fmt.Sprintf("%s (%s)", app.Label(), pkg)
		}

		if !yesFlag && !confirmAction(fmt.Sprintf("Uninstall %s?", label)) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err := u.Uninstall(cmd.Context(), pkg); err != nil {
			return fmt.Errorf("uninstall failed: %w", err)
		}
		logger.Info("app uninstalled", "package", pkg)

		if jsonFlag {
			return printJSON(uninstallJSON{Version: version, Timestamp: time.Now().UTC(), Package: pkg, Removed: true})
		}
		fmt.Printf("Uninstalled %s.\n", label)
		return nil
	},
}
