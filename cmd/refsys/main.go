// Package main provides the refsys command line: the HTTP server and the
// transform, operation and crs commands that run the engine in-process.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/refsys/internal/config"
)

// Set at build time with -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "refsys",
	Short: "Find and apply coordinate operations between reference systems",
	Long: `refsys resolves the coordinate operation between two coordinate reference
systems given by authority code and applies it to points or envelopes.

Geographic, geocentric, projected, vertical, temporal, engineering and
compound CRSs are supported. Datum shifts use Bursa-Wolf parameters through
Molodenski or geocentric translation. Definitions come from the built-in
registry, YAML files, a SQLite database or an HTTP endpoint.

Without a subcommand refsys runs the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "refsys %s (commit %s, built %s)\n", version, commit, buildDate)
		return err
	},
}

// persistentFlags maps each global flag to its configuration key.
var persistentFlags = []struct {
	name, key string
}{
	{"log-level", "logging.level"},
	{"log-format", "logging.format"},
	{"registry-format", "registry.format"},
	{"registry-path", "registry.path"},
	{"watch", "registry.watch"},
	{"datum-shift-method", "referencing.datum_shift_method"},
	{"longitude-first", "referencing.force_longitude_first_axis_order"},
	{"host", "server.host"},
	{"port", "server.port"},
	{"cors", "server.cors.allowed_origins"},
}

func init() {
	cobra.OnInitialize(func() {
		config.Defaults()
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")
	flags.String("registry-format", config.FormatBuiltin, "definition source (builtin, yaml, sqlite, http)")
	flags.String("registry-path", "", "definitions file, directory or database")
	flags.Bool("watch", false, "reload definitions when files change")
	flags.String("datum-shift-method", "molodenski", "datum shift method (molodenski, abridged_molodenski, geocentric)")
	flags.Bool("longitude-first", false, "force longitude-first axis order")
	flags.String("host", "0.0.0.0", "server host")
	flags.Int("port", 8080, "server port")
	flags.StringSlice("cors", nil, "allowed CORS origins (e.g. https://example.com,*.sub.domain.tld)")

	for _, f := range persistentFlags {
		_ = viper.BindPFlag(f.key, flags.Lookup(f.name))
	}

	rootCmd.AddCommand(serveCmd, transformCmd, operationCmd, crsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes JSON, or text when configured, to w. Unknown levels fall back
// to info. Timestamps are UTC.
func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: utcTime}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func utcTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}
