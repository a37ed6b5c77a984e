package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/service/server"
	"github.com/oshokin/walle-eyes/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the HTTP listen address.
	httpAddress string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the eyes server.
	rootCmd = &cobra.Command{
		Use:   "eyes-server [grpc-listen-address]",
		Short: "Drive the eyelid and gaze servos and serve commands over gRPC and HTTP.",
		Long: `Starts the eyes server that owns the servo driver and executes gestures.

Commands arrive over gRPC (for eyes-client and eyes-blinker) and over plain HTTP
(GET or POST /<verb>). Only one gesture moves at a time; concurrent commands wait
for the running one. Every actuator is released after each gesture and on exit.
Only the port from server_addr is used for listening unless an address is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HTTPAddress:   httpAddress,
				LogLevel:      logLevel,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the eyes-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", `HTTP listen address, "-" disables HTTP`)
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
}
