package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"virtualcare/internal/config"
	"virtualcare/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Virtual Care intake wizard",
	Long: `intake walks a patient through the Virtual Care questionnaire in the
terminal, compresses any teeth photos and submits everything to the
practice's intake endpoints.

Run without arguments to start the wizard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		// The wizard owns the terminal; everything else logs to stderr.
		sink := logging.SinkStderr
		if cmd == cmd.Root() {
			sink = logging.SinkFile
		}
		logger, err = logging.Setup(cfg.Logging, sink, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Get(logging.CategoryBoot).Debug("config loaded",
			zap.String("path", configPath),
			zap.String("base_url", cfg.Endpoints.BaseURL))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWizard(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "intake.yaml", "Config file")

	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(devserverCmd)
	rootCmd.AddCommand(journalCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
