package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/service/blinker"
	"github.com/oshokin/walle-eyes/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the configured server address.
	serverAddress string

	// rootCmd represents the base command for idle blinking.
	rootCmd = &cobra.Command{
		Use:   "eyes-blinker",
		Short: "Blink the eyes at random intervals until interrupted.",
		Long: `Waits for the eyes server, opens the lids, centers the gaze and blinks
at a random interval between blinker.min_interval and blinker.max_interval.

On SIGINT or SIGTERM the lids are closed and every servo is released.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return blinker.Run(ctx, &blinker.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
			})
		},
	}
)

// Execute runs the eyes-blinker CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&serverAddress, "server", "s", "", "eyes server address, overrides server_addr")
}
