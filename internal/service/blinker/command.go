package blinker

import (
	"context"

	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/logger"
	"github.com/oshokin/walle-eyes/internal/service/common"
)

// Options configures the eyes-blinker command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string
}

// Run connects to the server and blinks until ctx is cancelled.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := settings.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	conn, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(settings.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = conn.Close()
	}()

	logger.InfoKV(ctx, "Connecting blinker",
		"server_address", serverAddress,
		"min_interval", settings.Blinker.MinInterval,
		"max_interval", settings.Blinker.MaxInterval,
	)

	return New(conn, actor, settings).Run(ctx)
}
