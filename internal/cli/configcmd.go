package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath := appStore.Path()
		if cfgPath == "" {
			cfgPath = config.DefaultPath()
		}

		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}

		_, warnings := config.LoadAndValidate(data)
		if len(warnings) == 0 {
			fmt.Printf("Config OK (%s)\n", cfgPath)
			return nil
		}

		fmt.Printf("Found %d warning(s) in %s:\n", len(warnings), cfgPath)
		for _, w := range warnings {
			if w.Field != "" {
				fmt.Printf("  [%s] %s\n", w.Field, w.Message)
			} else {
				fmt.Printf("  %s\n", w.Message)
			}
			if w.Suggestion != "" {
				fmt.Printf("    suggestion: %s\n", w.Suggestion)
			}
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:       "get [key]",
	Short:     "Print one setting, or all settings",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: config.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys := config.Keys()
		if len(args) == 1 {
			keys = args
		}
		values := make(map[string]string, len(keys))
		for _, k := range keys {
			v, err := appStore.Get(k)
			if err != nil {
				return err
			}
			values[k] = v
		}
		if jsonFlag {
			return printJSON(values)
		}
		if len(args) == 1 {
			fmt.Println(values[args[0]])
			return nil
		}
		for _, k := range keys {
			fmt.Printf("%-24s %s\n", k, values[k])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change one setting and save it",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		before, _ := appStore.Get(key)
		if err := appStore.Set(key, value); err != nil {
			return err
		}
		after, _ := appStore.Get(key)
		fmt.Printf("%s = %s\n", key, after)

		if key == "storage_alerts_enabled" && before != after {
			enabled, _ := strconv.ParseBool(after)
			if enabled {
				return enableSchedule(cmd)
			}
			return disableSchedule(cmd)
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(appStore.Path())
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
}
