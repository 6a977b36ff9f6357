package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/operation"
)

func validConfig() Config {
	return Config{
		Server:      ServerConfig{Host: "localhost", Port: 8080, MaxPoints: 100},
		Referencing: ReferencingConfig{DatumShiftMethod: "molodenski", EnvelopeDensify: 20},
		Registry:    RegistryConfig{Format: FormatBuiltin},
		Metrics:     MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging:     LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("Load() with missing explicit file should fail, got %+v", cfg)
	}

	viper.Reset()
	t.Chdir(t.TempDir())
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Registry.Format != FormatBuiltin {
		t.Errorf("Registry.Format = %q, want %q", cfg.Registry.Format, FormatBuiltin)
	}
	if cfg.Referencing.EnvelopeDensify != 20 {
		t.Errorf("Referencing.EnvelopeDensify = %d, want 20", cfg.Referencing.EnvelopeDensify)
	}
	if cfg.Registry.ReloadCooldown != 30*time.Second {
		t.Errorf("Registry.ReloadCooldown = %v, want 30s", cfg.Registry.ReloadCooldown)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v, want enabled on /metrics", cfg.Metrics)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "refsys.yaml")
	content := `server:
  port: 9090
referencing:
  lenient_datum_shift: true
  datum_shift_method: geocentric
registry:
  format: yaml
  path: /etc/refsys/crs.yaml
  watch: true
logging:
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("REFSYS_REGISTRY_PATH", "/srv/crs")
	t.Setenv("REFSYS_REFERENCING_FORCE_LONGITUDE_FIRST_AXIS_ORDER", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Registry.Path != "/srv/crs" {
		t.Errorf("Registry.Path = %q, want env override /srv/crs", cfg.Registry.Path)
	}
	if !cfg.Registry.Watch {
		t.Error("Registry.Watch = false, want true")
	}

	hints, err := cfg.Referencing.Hints()
	if err != nil {
		t.Fatalf("Hints() error = %v", err)
	}
	want := operation.Hints{
		LenientDatumShift:            true,
		DatumShiftMethod:             operation.MethodGeocentric,
		ForceLongitudeFirstAxisOrder: true,
	}
	if hints != want {
		t.Errorf("Hints() = %+v, want %+v", hints, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "invalid port", modify: func(c *Config) { c.Server.Port = 0 }, field: "server.port"},
		{name: "no max points", modify: func(c *Config) { c.Server.MaxPoints = 0 }, field: "server.max_points"},
		{name: "unknown datum shift method", modify: func(c *Config) { c.Referencing.DatumShiftMethod = "ntv2" }, field: "referencing.datum_shift_method"},
		{name: "negative densify", modify: func(c *Config) { c.Referencing.EnvelopeDensify = -1 }, field: "referencing.envelope_densify"},
		{name: "densify beyond limit", modify: func(c *Config) { c.Referencing.EnvelopeDensify = 1 << 30 }, field: "referencing.envelope_densify"},
		{name: "densify boundary over max points", modify: func(c *Config) { c.Referencing.EnvelopeDensify = 25 }, field: "referencing.envelope_densify"},
		{name: "yaml without path", modify: func(c *Config) { c.Registry.Format = FormatYAML }, field: "registry.path"},
		{name: "sqlite without path", modify: func(c *Config) { c.Registry.Format = FormatSQLite }, field: "registry.path"},
		{
			name: "sqlite with path",
			modify: func(c *Config) {
				c.Registry.Format = FormatSQLite
				c.Registry.Path = "/var/lib/refsys/crs.db"
			},
		},
		{name: "http without url", modify: func(c *Config) { c.Registry.Format = FormatHTTP }, field: "registry.http.url"},
		{
			name: "http watch",
			modify: func(c *Config) {
				c.Registry.Format = FormatHTTP
				c.Registry.HTTP.URL = "https://example.com/crs.yaml"
				c.Registry.Watch = true
			},
			field: "registry.watch",
		},
		{name: "unknown format", modify: func(c *Config) { c.Registry.Format = "wkt" }, field: "registry.format"},
		{name: "negative reload interval", modify: func(c *Config) { c.Registry.ReloadInterval = -time.Second }, field: "registry.reload_interval"},
		{name: "relative metrics path", modify: func(c *Config) { c.Metrics.Path = "metrics" }, field: "metrics.path"},
		{name: "metrics port clash", modify: func(c *Config) { c.Metrics.Port = 8080 }, field: "metrics.port"},
		{
			name: "metrics disabled ignores path",
			modify: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Path = ""
			},
		},
		{name: "unknown log format", modify: func(c *Config) { c.Logging.Format = "logfmt" }, field: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *domain.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *domain.ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.field)
			}
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Error("ConfigError should wrap ErrInvalidInput")
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8081}
	if got := cfg.Address(); got != "127.0.0.1:8081" {
		t.Errorf("Address() = %q, want %q", got, "127.0.0.1:8081")
	}
}

func TestCORSEnabled(t *testing.T) {
	var cfg CORSConfig
	if cfg.Enabled() {
		t.Error("Enabled() = true without origins")
	}
	cfg.AllowedOrigins = []string{"*.example.com"}
	if !cfg.Enabled() {
		t.Error("Enabled() = false with origins")
	}
}
