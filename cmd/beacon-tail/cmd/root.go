package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/beacon-engine/internal/service/client"
	"github.com/oshokin/beacon-engine/internal/version"
)

var (
	// wait keeps retrying until the engine is reachable.
	wait bool

	// rootCmd represents the base command for following the event stream.
	rootCmd = &cobra.Command{
		Use:   "beacon-tail [address]",
		Short: "Print beacon events streamed by beacond.",
		Long: `Subscribes to the beacond event stream and prints every event as one JSON line.

The address defaults to ` + client.DefaultAddress + `. Events published while no
subscriber is connected are not replayed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				Wait:   wait,
				Output: cmd.OutOrStdout(),
			}

			if len(args) > 0 {
				options.Address = args[0]
			}

			return client.Run(ctx, options)
		},
	}
)

// Execute runs the beacon-tail CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for beacond instead of failing when it is unreachable")
}
