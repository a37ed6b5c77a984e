package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/walle-eyes/internal/api/grpc/eyes"
	"github.com/oshokin/walle-eyes/internal/api/web"
	"github.com/oshokin/walle-eyes/internal/config"
	"github.com/oshokin/walle-eyes/internal/logger"
	pb "github.com/oshokin/walle-eyes/internal/pb/v1"
	"github.com/oshokin/walle-eyes/internal/version"
)

// Options controls the eyes-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the HTTP listen address; "-" disables HTTP.
	HTTPAddress string
	// LogLevel overrides the level from the settings file.
	LogLevel string
}

// HTTPDisabled turns the HTTP surface off when passed as Options.HTTPAddress.
const HTTPDisabled = "-"

// shutdownTimeout bounds the HTTP server shutdown.
const shutdownTimeout = 5 * time.Second

var (
	// ErrNoServerAddress indicates missing server configuration.
	ErrNoServerAddress = errors.New("no server address configured")
	// errUnknownLogLevel is returned for a level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
)

// Run builds the rig, serves gRPC and HTTP and blocks until the context is
// canceled or a server fails. On the way out it waits for the running
// command, releases every servo and closes the driver.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "eyes-server")

	logger.InfoKV(ctx, "Starting eyes-server", version.KV()...)

	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err := applyLogLevel(opts.LogLevel, settings.LogLevel); err != nil {
		return err
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	httpAddress := settings.HTTPAddress
	if opts.HTTPAddress != "" {
		httpAddress = opts.HTTPAddress
	}

	if httpAddress == HTTPDisabled {
		httpAddress = ""
	}

	library, registry, err := buildRig(settings)
	if err != nil {
		return err
	}

	svc := newService(library, registry)

	defer func() {
		if closeErr := svc.Close(ctx); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close servo driver", "error", closeErr)
		}

		logger.Info(ctx, "Servos released")
	}()

	logger.InfoKV(ctx, "Rig ready",
		"driver", settings.Driver.Kind,
		"actuators", len(registry.Actuators()),
		"left_right", library.HasLeftRight(),
	)

	return serve(ctx, svc, listenAddress, httpAddress)
}

// serve runs the gRPC and the optional HTTP server until ctx ends or one of
// them fails, then stops both.
func serve(ctx context.Context, svc *service, grpcAddress, httpAddress string) error {
	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", grpcAddress, err)
	}

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(ctx)))
	pb.RegisterEyesServiceServer(grpcServer, grpcapi.NewServer(svc))

	var httpServer *http.Server

	var httpListener net.Listener

	if httpAddress != "" {
		router, routerErr := web.NewRouter(ctx, svc)
		if routerErr != nil {
			return closeOnError(fmt.Errorf("build http router: %w", routerErr), grpcListener)
		}

		httpListener, err = lc.Listen(ctx, "tcp", httpAddress)
		if err != nil {
			return closeOnError(fmt.Errorf("listen on %s: %w", httpAddress, err), grpcListener)
		}

		httpServer = &http.Server{
			Handler:           router,
			ReadHeaderTimeout: shutdownTimeout,
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoKV(ctx, "gRPC server listening", "listen_address", grpcListener.Addr().String())

		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	if httpServer != nil {
		group.Go(func() error {
			logger.InfoKV(ctx, "HTTP server listening", "listen_address", httpListener.Addr().String())

			if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve HTTP: %w", err)
			}

			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info(ctx, "Shutting down servers")

		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.WarnKV(ctx, "HTTP shutdown incomplete", "error", err)
			}
		}

		grpcServer.GracefulStop()

		return nil
	})

	err = group.Wait()

	logger.Info(ctx, "Servers stopped")

	return err
}

// loggingInterceptor hands the server logger to every gRPC handler.
func loggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	l := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, l)
		ctx = logger.WithKV(ctx, "method", info.FullMethod)

		return handler(ctx, req)
	}
}

// applyLogLevel sets the global level from the flag, falling back to the settings.
func applyLogLevel(flagLevel, settingsLevel string) error {
	name := flagLevel
	if name == "" {
		name = settingsLevel
	}

	level, ok := logger.ParseLogLevel(name)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, name)
	}

	logger.SetLevel(level)

	return nil
}

// closeOnError closes l and adds its failure to err.
func closeOnError(err error, l net.Listener) error {
	return multierr.Append(err, l.Close())
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "wall-e.local:50051" -> ":50051").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
