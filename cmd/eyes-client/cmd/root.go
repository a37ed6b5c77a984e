package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/domain/gesture"
	"github.com/oshokin/walle-eyes/internal/service/client"
	"github.com/oshokin/walle-eyes/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the configured server address.
	serverAddress string

	// rootCmd represents the base command for sending one command.
	rootCmd = &cobra.Command{
		Use:   "eyes-client <command>",
		Short: "Send one command to the eyes server.",
		Long: `Sends a gesture verb to the eyes server and prints the reply.

Verbs: ` + strings.Join(gesture.Names(), ", ") + `.

Failed sends are retried client.retries times, client.retry_delay apart.
"ping" asks the server for pong, "status" prints the rig snapshot as JSON and
"wait" polls ping until the server answers or client.ready_timeout passes.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(gesture.Names(), client.CommandPing, client.CommandStatus, client.CommandWait),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				ConfigPath:    cfgPath,
				ServerAddress: serverAddress,
				Command:       args[0],
				Output:        cmd.OutOrStdout(),
			}

			return client.Run(ctx, options)
		},
	}
)

// Execute runs the eyes-client CLI and exits with non-zero status on error.
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
