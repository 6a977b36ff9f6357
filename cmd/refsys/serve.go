package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobrunner/refsys/internal/app"
	"github.com/jobrunner/refsys/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	logger.Info("starting refsys",
		"version", version,
		"address", cfg.Server.Address(),
		"registry_format", cfg.Registry.Format,
		"datum_shift_method", cfg.Referencing.DatumShiftMethod,
	)
	return serve(ctx, application, cfg.Server)
}

// serve runs the application until ctx is cancelled or the server fails, then
// shuts it down within the configured timeout.
func serve(ctx context.Context, application *app.App, cfg config.ServerConfig) error {
	done := make(chan error, 1)
	go func() {
		done <- application.Start(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		application.Logger.Info("shutdown requested")
	case err := <-done:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serving: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("shutting down: %w", err))
	}

	application.Logger.Info("server stopped")
	return runErr
}
