package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/droidbroom/internal/config"
	"github.com/lu-zhengda/droidbroom/internal/logging"
	"github.com/lu-zhengda/droidbroom/internal/tui"
	"github.com/lu-zhengda/droidbroom/internal/utils"
)

var (
	yesFlag    bool
	jsonFlag   bool
	configPath string

	appStore  *config.Store
	appConfig *config.Config
	logger    = slog.New(slog.DiscardHandler)
	closeLog  = func() error { return nil }

	// Set via ldflags at build time.
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "droidbroom",
	Short: "Find and remove junk on Android shared storage",
	Long: "droidbroom finds orphaned folders, leftover app data, caches and other junk on\n" +
		"Android shared storage and removes it. Launch without subcommands for the interactive TUI.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Flags().Changed("version") {
			appStore = config.NewStore(config.Default(), "")
			appConfig = config.Default()
			return nil
		}
		if err := loadConfig(); err != nil {
			return err
		}
		for _, w := range appConfig.Validate() {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
		}
		return setupLogging(os.Stderr)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if shell, _ := cmd.Flags().GetString("generate-completion"); shell != "" {
			switch shell {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", shell)
			}
		}
		return runTUI()
	},
}

func loadConfig() error {
	store, err := config.OpenStore(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	appStore = store
	cfg := store.Config()
	appConfig = &cfg
	return nil
}

// setupLogging replaces the package logger. The console sink is dropped
// while the TUI owns the terminal.
func setupLogging(console io.Writer) error {
	l, closeFn, err := logging.New(appConfig.Log, console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging disabled: %v\n", err)
		return nil
	}
	logger, closeLog = l, closeFn
	logger.Debug("starting", "version", version, "config", appStore.Path())
	return nil
}

func runTUI() error {
	_ = closeLog()
	if err := setupLogging(nil); err != nil {
		return err
	}
	deps, err := buildDeps()
	if err != nil {
		return err
	}
	defer deps.engine.Close()

	m := tui.New(tui.Deps{
		Engine:    deps.engine,
		Lister:    deps.lister,
		Store:     appStore,
		Storage:   deps.storage,
		Root:      utils.ExpandHome(appConfig.Storage.ExternalRoot),
		DataRoot:  utils.ExpandHome(appConfig.Storage.DataRoot),
		Notifier:  deps.notifier,
		Scheduler: scheduleToggler{},
		Logger:    logger,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// RootCmd returns the root cobra command for documentation generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

// signalContext is cancelled on SIGINT or SIGTERM so long scans and
// cleanups stop between items.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("droidbroom %s\n", version))
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Skip confirmation prompts")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/droidbroom/config.yaml)")
	rootCmd.Flags().String("generate-completion", "", "Generate shell completion (bash, zsh, fish)")
	_ = rootCmd.Flags().MarkHidden("generate-completion")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(storageCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(statsCmd)
}
