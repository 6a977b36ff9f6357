// Package config provides configuration management using Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/operation"
)

// Registry formats.
const (
	FormatBuiltin = "builtin"
	FormatYAML    = "yaml"
	FormatSQLite  = "sqlite"
	FormatHTTP    = "http"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Referencing ReferencingConfig `mapstructure:"referencing"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxPoints       int           `mapstructure:"max_points"` // per transform request
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// ReferencingConfig selects the operation factory hints applied to every request.
type ReferencingConfig struct {
	LenientDatumShift            bool   `mapstructure:"lenient_datum_shift"`
	DatumShiftMethod             string `mapstructure:"datum_shift_method"` // molodenski, abridged_molodenski, geocentric
	ForceLongitudeFirstAxisOrder bool   `mapstructure:"force_longitude_first_axis_order"`
	ForceStandardAxisDirections  bool   `mapstructure:"force_standard_axis_directions"`
	ForceStandardAxisUnits       bool   `mapstructure:"force_standard_axis_units"`
	EnvelopeDensify              int    `mapstructure:"envelope_densify"`
}

// Hints converts the configuration into operation factory hints.
func (c *ReferencingConfig) Hints() (operation.Hints, error) {
	method, err := operation.ParseDatumShiftMethod(c.DatumShiftMethod)
	if err != nil {
		return operation.Hints{}, err
	}
	return operation.Hints{
		LenientDatumShift:            c.LenientDatumShift,
		DatumShiftMethod:             method,
		ForceLongitudeFirstAxisOrder: c.ForceLongitudeFirstAxisOrder,
		ForceStandardAxisDirections:  c.ForceStandardAxisDirections,
		ForceStandardAxisUnits:       c.ForceStandardAxisUnits,
	}, nil
}

// RegistryConfig holds the source of CRS definitions added to the built-in ones.
type RegistryConfig struct {
	Format         string        `mapstructure:"format"` // builtin, yaml, sqlite, http
	Path           string        `mapstructure:"path"`   // file or directory for yaml, database for sqlite
	Watch          bool          `mapstructure:"watch"`
	Debounce       time.Duration `mapstructure:"debounce"`
	ReloadInterval time.Duration `mapstructure:"reload_interval"` // 0 disables periodic reloads
	ReloadCooldown time.Duration `mapstructure:"reload_cooldown"` // minimum time between API-triggered reloads
	HTTP           RegistryHTTP  `mapstructure:"http"`
}

// RegistryHTTP holds configuration for definitions served over HTTP.
type RegistryHTTP struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Port      int    `mapstructure:"port"` // 0 serves metrics on the API server
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_points", 100000)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	// Referencing defaults
	viper.SetDefault("referencing.lenient_datum_shift", false)
	viper.SetDefault("referencing.datum_shift_method", string(operation.MethodMolodenski))
	viper.SetDefault("referencing.force_longitude_first_axis_order", false)
	viper.SetDefault("referencing.force_standard_axis_directions", false)
	viper.SetDefault("referencing.force_standard_axis_units", false)
	viper.SetDefault("referencing.envelope_densify", 20)

	// Registry defaults
	viper.SetDefault("registry.format", FormatBuiltin)
	viper.SetDefault("registry.path", "")
	viper.SetDefault("registry.watch", false)
	viper.SetDefault("registry.debounce", 500*time.Millisecond)
	viper.SetDefault("registry.reload_interval", time.Duration(0))
	viper.SetDefault("registry.reload_cooldown", 30*time.Second)
	viper.SetDefault("registry.http.url", "")
	viper.SetDefault("registry.http.timeout", 30*time.Second)
	viper.SetDefault("registry.http.username", "")
	viper.SetDefault("registry.http.password", "")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 0)
	viper.SetDefault("metrics.namespace", "refsys")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix("REFSYS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/refsys")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &domain.ConfigError{Field: "server.port", Message: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	if c.Server.MaxPoints < 1 {
		return &domain.ConfigError{Field: "server.max_points", Message: "must be positive"}
	}

	if _, err := c.Referencing.Hints(); err != nil {
		return &domain.ConfigError{Field: "referencing.datum_shift_method", Message: err.Error()}
	}
	if c.Referencing.EnvelopeDensify < 0 {
		return &domain.ConfigError{Field: "referencing.envelope_densify", Message: "must not be negative"}
	}
	if c.Referencing.EnvelopeDensify > domain.MaxEnvelopeDensify {
		return &domain.ConfigError{Field: "referencing.envelope_densify", Message: fmt.Sprintf("must not exceed %d", domain.MaxEnvelopeDensify)}
	}
	if n := domain.BoundaryPoints(c.Referencing.EnvelopeDensify); n > c.Server.MaxPoints {
		return &domain.ConfigError{Field: "referencing.envelope_densify", Message: fmt.Sprintf("boundary of %d points exceeds server.max_points", n)}
	}

	switch c.Registry.Format {
	case FormatBuiltin:
	case FormatYAML, FormatSQLite:
		if c.Registry.Path == "" {
			return &domain.ConfigError{Field: "registry.path", Message: c.Registry.Format + " registry requires a path"}
		}
	case FormatHTTP:
		if c.Registry.HTTP.URL == "" {
			return &domain.ConfigError{Field: "registry.http.url", Message: "http registry requires a URL"}
		}
		if c.Registry.Watch {
			return &domain.ConfigError{Field: "registry.watch", Message: "cannot watch an http registry, use reload_interval"}
		}
	default:
		return &domain.ConfigError{Field: "registry.format", Message: "unknown format " + c.Registry.Format}
	}
	if c.Registry.ReloadInterval < 0 {
		return &domain.ConfigError{Field: "registry.reload_interval", Message: "must not be negative"}
	}

	if c.Metrics.Enabled {
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return &domain.ConfigError{Field: "metrics.path", Message: "must start with /"}
		}
		if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
			return &domain.ConfigError{Field: "metrics.port", Message: fmt.Sprintf("invalid port %d", c.Metrics.Port)}
		}
		if c.Metrics.Port != 0 && c.Metrics.Port == c.Server.Port {
			return &domain.ConfigError{Field: "metrics.port", Message: "must differ from server.port"}
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return &domain.ConfigError{Field: "logging.format", Message: "must be json or text"}
	}

	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
