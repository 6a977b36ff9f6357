// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/refsys/internal/application"
	"github.com/jobrunner/refsys/internal/config"
	"github.com/jobrunner/refsys/internal/ports/input"
)

// maxBodyBytes limits POST request bodies.
const maxBodyBytes = 32 << 20

// Server wraps the HTTP server with application handlers.
type Server struct {
	server    *http.Server
	router    *mux.Router
	transform input.TransformService
	catalog   input.Catalog
	health    input.HealthChecker
	reload    *application.ReloadService
	logger    *slog.Logger
	config    config.ServerConfig
}

// Option configures optional server features.
type Option func(*Server)

// WithMiddleware adds middleware in front of all routes.
func WithMiddleware(mw mux.MiddlewareFunc) Option {
	return func(s *Server) {
		s.router.Use(mw)
	}
}

// WithMetricsHandler serves h on path of the API server.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		s.router.Handle(path, h).Methods(http.MethodGet)
	}
}

// WithReloadService enables the reload endpoint.
func WithReloadService(reload *application.ReloadService) Option {
	return func(s *Server) {
		s.reload = reload
	}
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg config.ServerConfig,
	transform input.TransformService,
	catalog input.Catalog,
	health input.HealthChecker,
	logger *slog.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		transform: transform,
		catalog:   catalog,
		health:    health,
		logger:    logger,
		config:    cfg,
	}

	// Middleware runs in registration order, so options may add to it before routes.
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
	if cfg.CORS.Enabled() {
		s.router.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Catalog endpoints
	api.HandleFunc("/crs", s.handleListCRS).Methods(http.MethodGet)
	api.HandleFunc("/crs/{code}", s.handleGetCRS).Methods(http.MethodGet)

	// Operation endpoints
	api.HandleFunc("/operation", s.handleOperation).Methods(http.MethodGet)
	api.HandleFunc("/transform", s.handleTransformQuery).Methods(http.MethodGet)
	api.HandleFunc("/transform", s.handleTransformBody).Methods(http.MethodPost)
	api.HandleFunc("/envelope", s.handleEnvelope).Methods(http.MethodGet)

	// Reload endpoint (only if a reload service is configured)
	if s.reload != nil {
		api.HandleFunc("/reload", s.handleReload).Methods(http.MethodPost)
	}

	// OpenAPI spec and Swagger UI
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)
	r.HandleFunc("/docs", s.handleSwaggerUI).Methods(http.MethodGet)

	// Preflight requests must match a route for the CORS middleware to run.
	if s.config.CORS.Enabled() {
		r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		level := slog.LevelInfo
		if wrapped.statusCode >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
