package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/refsys/internal/ports/output"
)

var (
	_ output.DefinitionSource = (*FileSource)(nil)
	_ output.DefinitionSource = (*HTTPSource)(nil)
)

const ed50YAML = `crs:
  - code: EPSG:4230
    name: ED50
    kind: geographic
    datum:
      name: European Datum 1950
      ellipsoid: International 1924
      towgs84: [-87, -98, -121]
`

const ed50UTMYAML = `crs:
  - code: EPSG:23032
    name: ED50 / UTM zone 32N
    kind: projected
    base: EPSG:4230
    projection:
      method: Transverse_Mercator
      parameters:
        central_meridian: 9
        scale_factor: 0.9996
        false_easting: 500000
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
}

func TestNewFileSource(t *testing.T) {
	src := NewFileSource("/etc/refsys/crs.yaml")

	if src.Path() != "/etc/refsys/crs.yaml" {
		t.Errorf("Path() = %q, want %q", src.Path(), "/etc/refsys/crs.yaml")
	}
	if src.Name() != "file:/etc/refsys/crs.yaml" {
		t.Errorf("Name() = %q, want %q", src.Name(), "file:/etc/refsys/crs.yaml")
	}
}

func TestFileSourceLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crs.yaml")
	writeFile(t, path, ed50YAML)

	defs, err := NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(defs) != 1 || defs[0].Code != "EPSG:4230" {
		t.Errorf("Load() = %v, want EPSG:4230", defs)
	}
}

func TestFileSourceLoadDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	// Lexical order puts the base CRS first.
	writeFile(t, filepath.Join(tmpDir, "10-ed50.yaml"), ed50YAML)
	writeFile(t, filepath.Join(tmpDir, "20-projected", "ed50-utm.yml"), ed50UTMYAML)
	writeFile(t, filepath.Join(tmpDir, "README.txt"), "ignored")
	writeFile(t, filepath.Join(tmpDir, "empty.json"), "")

	src := NewFileSource(tmpDir)

	files, err := src.Files(context.Background())
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	if len(files) != 3 {
		t.Errorf("len(files) = %d, want 3", len(files))
	}

	defs, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Code != "EPSG:4230" || defs[1].Code != "EPSG:23032" {
		t.Errorf("codes = %s, %s, want EPSG:4230, EPSG:23032", defs[0].Code, defs[1].Code)
	}
}

func TestFileSourceErrors(t *testing.T) {
	t.Run("non-existent path", func(t *testing.T) {
		_, err := NewFileSource("/nonexistent/path").Load(context.Background())
		if err == nil {
			t.Error("Load() should error for non-existent path")
		}
	})

	t.Run("invalid document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		writeFile(t, path, "crs:\n  - code: EPSG:1\n    bogus: true\n")

		_, err := NewFileSource(path).Load(context.Background())
		if err == nil {
			t.Error("Load() should error for unknown fields")
		}
	})
}

func TestIsDefinitionFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"crs.yaml", true},
		{"crs.YML", true},
		{"/data/crs.json", true},
		{"crs.yaml.bak", false},
		{"crs.db", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsDefinitionFile(tt.path); got != tt.want {
				t.Errorf("IsDefinitionFile(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
