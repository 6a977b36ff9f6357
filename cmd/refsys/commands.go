package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/jobrunner/refsys/internal/adapters/sqlite"
	"github.com/jobrunner/refsys/internal/app"
	"github.com/jobrunner/refsys/internal/config"
	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/ports/output"
	"github.com/jobrunner/refsys/internal/registry"
)

// operationFlags are shared by the transform and operation commands.
type operationFlags struct {
	source  string
	target  string
	lenient bool
	output  string
}

func (f *operationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, "source", "s", "", "source CRS code (e.g. EPSG:4326)")
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "target CRS code")
	cmd.Flags().BoolVar(&f.lenient, "lenient", false, "accept operations without a datum shift")
	cmd.Flags().StringVarP(&f.output, "output", "o", "text", "output format (text, json)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
}

var (
	transformFlags operationFlags
	operationOpts  operationFlags
	crsExport      string
)

var transformCmd = &cobra.Command{
	Use:   "transform [x y [z]]",
	Short: "Transform coordinates between two CRSs",
	Long: `Transform one point given as arguments, or one point per line read from
stdin. Ordinates are separated by spaces or commas and follow the axis order
of the source CRS.`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		return runTransform(cmd.Context(), engine, transformFlags, args, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var operationCmd = &cobra.Command{
	Use:   "operation",
	Short: "Show the coordinate operation between two CRSs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		engine, err := loadEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		return runOperation(cmd.Context(), engine, operationOpts, cmd.OutOrStdout())
	},
}

var crsCmd = &cobra.Command{
	Use:   "crs [code]",
	Short: "List CRS definitions or show one as YAML",
	Long: `Without arguments, list every known CRS. With a code, print its definition
as YAML. With --export, write all definitions to a YAML file or, for .db and
.sqlite paths, to a definitions database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := loadEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		switch {
		case crsExport != "":
			return runExport(cmd.Context(), engine, crsExport, cmd.OutOrStdout())
		case len(args) == 1:
			return runShowCRS(cmd.Context(), engine, args[0], cmd.OutOrStdout())
		default:
			return runListCRS(cmd.Context(), engine, cmd.OutOrStdout())
		}
	},
}

func init() {
	transformFlags.register(transformCmd)
	operationOpts.register(operationCmd)
	crsCmd.Flags().StringVar(&crsExport, "export", "", "write all definitions to a .yaml or .db file")
}

// loadEngine builds an engine from the configuration and loads its definitions.
// Logs go to stderr so that stdout carries only results.
func loadEngine(ctx context.Context) (*app.Engine, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.Logging, os.Stderr)

	engine, err := app.NewEngine(ctx, cfg, &output.NoOpMetrics{}, logger)
	if err != nil {
		return nil, err
	}
	if err := engine.Load(ctx); err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("loading definitions: %w", err)
	}
	return engine, nil
}

func runTransform(ctx context.Context, engine *app.Engine, flags operationFlags, args []string, in io.Reader, out io.Writer) error {
	var points [][]float64
	if len(args) > 0 {
		p, err := parsePoint(strings.Join(args, " "))
		if err != nil {
			return err
		}
		points = append(points, p)
	} else {
		scanner := bufio.NewScanner(in)
		for line := 1; scanner.Scan(); line++ {
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			p, err := parsePoint(text)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			points = append(points, p)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading points: %w", err)
		}
	}

	result, err := engine.Transform.Transform(ctx, domain.TransformRequest{
		Source:  flags.source,
		Target:  flags.target,
		Lenient: flags.lenient,
		Points:  points,
	})
	if err != nil {
		return err
	}

	if flags.output == "json" {
		return writeJSON(out, map[string]any{
			"operation": result.Operation,
			"points":    result.Points,
		})
	}
	for _, p := range result.Points {
		fields := make([]string, len(p))
		for i, v := range p {
			fields[i] = cast.ToString(v)
		}
		if _, err := fmt.Fprintln(out, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}

func runOperation(ctx context.Context, engine *app.Engine, flags operationFlags, out io.Writer) error {
	info, err := engine.Transform.Resolve(ctx, flags.source, flags.target, flags.lenient)
	if err != nil {
		return err
	}

	if flags.output == "json" {
		return writeJSON(out, info)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
	fmt.Fprintf(tw, "Source:\t%s (%s)\n", info.Source, strings.Join(info.SourceAxes, ", "))
	fmt.Fprintf(tw, "Target:\t%s (%s)\n", info.Target, strings.Join(info.TargetAxes, ", "))
	if len(info.Accuracy) > 0 {
		fmt.Fprintf(tw, "Accuracy:\t%s\n", strings.Join(info.Accuracy, ", "))
	}
	fmt.Fprintf(tw, "Positional error:\t%g m\n", info.PositionalError)
	fmt.Fprintf(tw, "Transform:\t%s\n", info.Transform)
	return tw.Flush()
}

func runListCRS(ctx context.Context, engine *app.Engine, out io.Writer) error {
	defs, err := engine.Catalog.ListDefinitions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tKIND\tNAME")
	for _, def := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", def.Code, def.Kind, def.Name)
	}
	return tw.Flush()
}

func runShowCRS(ctx context.Context, engine *app.Engine, code string, out io.Writer) error {
	def, err := engine.Catalog.GetDefinition(ctx, code)
	if err != nil {
		return err
	}
	data, err := registry.MarshalDefinition(*def)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runExport(ctx context.Context, engine *app.Engine, path string, out io.Writer) error {
	defs, err := engine.Catalog.ListDefinitions(ctx)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		if err := sqlite.Write(ctx, path, defs); err != nil {
			return err
		}
	default:
		data, err := registry.Marshal(defs)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	_, err = fmt.Fprintf(out, "exported %d definitions to %s\n", len(defs), path)
	return err
}

// parsePoint splits a line of ordinates separated by spaces or commas.
func parsePoint(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, &domain.ValidationError{Field: "point", Value: s, Constraint: "x y [z]", Message: "no ordinates"}
	}

	point := make([]float64, len(fields))
	for i, f := range fields {
		v, err := cast.ToFloat64E(f)
		if err != nil {
			return nil, &domain.ValidationError{Field: "point", Value: f, Constraint: "number", Message: "invalid ordinate"}
		}
		point[i] = v
	}
	return point, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
