// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpAdapter "github.com/jobrunner/refsys/internal/adapters/http"
	"github.com/jobrunner/refsys/internal/adapters/metrics"
	"github.com/jobrunner/refsys/internal/adapters/sqlite"
	"github.com/jobrunner/refsys/internal/adapters/storage"
	"github.com/jobrunner/refsys/internal/adapters/watcher"
	"github.com/jobrunner/refsys/internal/application"
	"github.com/jobrunner/refsys/internal/config"
	"github.com/jobrunner/refsys/internal/operation"
	"github.com/jobrunner/refsys/internal/ports/output"
	"github.com/jobrunner/refsys/internal/registry"
)

// Engine holds the components that resolve and apply coordinate operations. The
// CLI uses it directly; the server wraps it in App.
type Engine struct {
	Catalog   *application.Catalog
	Finder    *operation.Finder
	Transform *application.TransformService
	Sources   []output.DefinitionSource

	database *sqlite.Source
}

// NewEngine builds the catalog over the configured definition source and the
// operation services on top of it. Definitions are not loaded until Catalog.Load.
func NewEngine(ctx context.Context, cfg *config.Config, metricsCollector output.MetricsCollector, logger *slog.Logger) (*Engine, error) {
	hints, err := cfg.Referencing.Hints()
	if err != nil {
		return nil, err
	}

	base, err := registry.Builtin()
	if err != nil {
		return nil, err
	}

	e := &Engine{}
	switch cfg.Registry.Format {
	case config.FormatBuiltin:
	case config.FormatYAML:
		e.Sources = append(e.Sources, storage.NewFileSource(cfg.Registry.Path))
	case config.FormatSQLite:
		db, err := sqlite.Open(ctx, cfg.Registry.Path)
		if err != nil {
			return nil, fmt.Errorf("opening definitions database: %w", err)
		}
		e.database = db
		e.Sources = append(e.Sources, db)
	case config.FormatHTTP:
		e.Sources = append(e.Sources, storage.NewHTTPSource(storage.HTTPConfig{
			URL:      cfg.Registry.HTTP.URL,
			Timeout:  cfg.Registry.HTTP.Timeout,
			Username: cfg.Registry.HTTP.Username,
			Password: cfg.Registry.HTTP.Password,
		}))
	default:
		return nil, fmt.Errorf("unknown registry format: %s", cfg.Registry.Format)
	}

	e.Catalog = application.NewCatalog(base, metricsCollector, logger, e.Sources...)
	e.Finder = operation.NewFinder(
		operation.WithAuthority(e.Catalog),
		operation.WithCacheObserver(metricsCollector),
		operation.WithLogger(logger),
	)
	e.Transform = application.NewTransformService(e.Finder, metricsCollector, logger, application.TransformServiceConfig{
		Hints:     hints,
		Densify:   cfg.Referencing.EnvelopeDensify,
		MaxPoints: cfg.Server.MaxPoints,
	})

	return e, nil
}

// Load reads the configured definition source. It is a no-op for the built-in
// registry.
func (e *Engine) Load(ctx context.Context) error {
	if len(e.Sources) == 0 {
		return nil
	}
	_, err := e.Catalog.Load(ctx)
	return err
}

// Close releases the definitions database, if any.
func (e *Engine) Close() error {
	if e.database != nil {
		return e.database.Close()
	}
	return nil
}

// App holds all application components.
type App struct {
	*Engine

	Config        *config.Config
	Logger        *slog.Logger
	HealthService *application.HealthService
	ReloadService *application.ReloadService
	HTTPServer    *httpAdapter.Server
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
	MetricsServer *metrics.Server
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize metrics
	var serverOpts []httpAdapter.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.Metrics = metrics.NewCollector(cfg.Metrics.Namespace, reg)

		serverOpts = append(serverOpts, httpAdapter.WithMiddleware(app.Metrics.Middleware))
		if cfg.Metrics.Port == 0 {
			serverOpts = append(serverOpts, httpAdapter.WithMetricsHandler(cfg.Metrics.Path, app.Metrics.Handler()))
		} else {
			app.MetricsServer = metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, app.Metrics.Handler(), logger)
		}
	}

	var metricsCollector output.MetricsCollector
	if app.Metrics != nil {
		metricsCollector = app.Metrics
	} else {
		metricsCollector = &output.NoOpMetrics{}
	}

	engine, err := NewEngine(ctx, cfg, metricsCollector, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	app.Engine = engine

	// Initialize health and reload services
	app.HealthService = application.NewHealthService(app.Catalog, app.Finder)
	if len(app.Sources) > 0 {
		app.ReloadService = application.NewReloadService(
			app.Catalog,
			cfg.Registry.ReloadInterval,
			cfg.Registry.ReloadCooldown,
			logger,
		)
		serverOpts = append(serverOpts, httpAdapter.WithReloadService(app.ReloadService))
	}

	// Initialize HTTP server
	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		app.Transform,
		app.Catalog,
		app.HealthService,
		logger,
		serverOpts...,
	)

	// Initialize file watcher for hot-reload
	if cfg.Registry.Watch && app.ReloadService != nil {
		watchCfg := watcher.Config{
			Paths:    []string{cfg.Registry.Path},
			Debounce: cfg.Registry.Debounce,
		}
		if cfg.Registry.Format == config.FormatYAML {
			watchCfg.Filter = storage.IsDefinitionFile
		}

		w, err := watcher.New(watchCfg, app.handleFileEvent, logger)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start starts all application components. It blocks until the HTTP server stops.
func (a *App) Start(ctx context.Context) error {
	// Load definitions; on failure the built-in registry keeps serving
	if err := a.Load(ctx); err != nil {
		a.Logger.Warn("failed to load definitions", "error", err)
	}

	if a.ReloadService != nil {
		a.ReloadService.Start(ctx)
	}

	// Start file watcher
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	// Start metrics server in background
	if a.MetricsServer != nil {
		go func() {
			if err := a.MetricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("metrics server error", "error", err)
			}
		}()
	}

	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	// Stop watcher
	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}

	if a.ReloadService != nil {
		a.ReloadService.Stop()
	}

	// Shutdown metrics server
	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	return a.Close()
}

// handleFileEvent reloads all definitions when a watched file changes. Removed
// files drop their definitions, so deletions reload as well.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("file event", "path", event.Path, "operation", event.Operation.String())

	_, err := a.ReloadService.Reload(ctx)
	return err
}
