package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/beacon-engine/internal/config"
	"github.com/oshokin/beacon-engine/internal/service/engine"
	"github.com/oshokin/beacon-engine/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// logLevel overrides the log level from the settings file.
	logLevel string
	// listenAddress overrides the event stream address from the settings file.
	listenAddress string
	// once runs every beacon a single time.
	once bool

	// rootCmd represents the base command for running the beacon engine.
	rootCmd = &cobra.Command{
		Use:   "beacond",
		Short: "Watch host conditions and emit beacon events.",
		Long: `Runs the configured beacons on their intervals and publishes the events they fire.

Each beacon samples one host condition (Android devices over adb, network
interface counters, package versions or process liveness), compares it with
what it saw on its previous tick and emits an event for every transition.
Events are streamed over gRPC when listen_address is set.
The settings file is watched and beacons are reconciled when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return engine.Run(ctx, options())
		},
	}

	// runCmd is an explicit alias of the root command.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the beacon engine (default).",
		Args:  cobra.NoArgs,
		RunE:  rootCmd.RunE,
	}

	// validateCmd checks the settings without starting any beacon.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate every configured beacon.",
		Long: `Loads the settings file and prints the validation result of every beacon.

Beacons whose tools are missing on this host are reported as unavailable;
that alone does not fail validation. Exits with a non-zero status when any
beacon configuration is invalid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return engine.Validate(cmd.Context(), options(), cmd.OutOrStdout())
		},
	}
)

// Execute runs the beacond CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(runCmd, validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options collects the flag values.
func options() *engine.Options {
	return &engine.Options{
		ConfigPath:    configPath,
		LogLevel:      logLevel,
		ListenAddress: listenAddress,
		Once:          once,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override the configured log level")
	rootCmd.PersistentFlags().
		StringVar(&listenAddress, "listen-address", "", "override the configured event stream address")
	rootCmd.PersistentFlags().BoolVar(&once, "once", false, "run every beacon once, print the events and exit")
}
