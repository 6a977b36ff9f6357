// Package sqlite provides a read-only authority database of CRS definitions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/registry"
)

// Schema of a definitions database. Rows are loaded in rowid order, so a projected
// or compound definition must be inserted after the definitions it references.
const Schema = `
CREATE TABLE IF NOT EXISTS crs_definitions (
	code       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	definition TEXT NOT NULL,
	deprecated INTEGER NOT NULL DEFAULT 0
)`

// Source implements the DefinitionSource port over a SQLite database.
type Source struct {
	path string
	db   *sql.DB
}

// Open opens the database at path read-only and checks its schema.
func Open(ctx context.Context, path string) (*Source, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_query_only=true", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening definitions database %s: %w", path, err)
	}

	var count int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='crs_definitions'`,
	).Scan(&count)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if count == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("%s: no crs_definitions table: %w", path, domain.ErrInvalidInput)
	}

	return &Source{path: path, db: db}, nil
}

// Name implements output.DefinitionSource.
func (s *Source) Name() string {
	return "sqlite:" + s.path
}

// Load implements output.DefinitionSource. Deprecated rows are skipped.
func (s *Source) Load(ctx context.Context) ([]registry.Definition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, definition FROM crs_definitions WHERE deprecated = 0 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("reading definitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []registry.Definition
	for rows.Next() {
		var code, body string
		if err := rows.Scan(&code, &body); err != nil {
			return nil, fmt.Errorf("scanning definition: %w", err)
		}

		def, err := registry.ParseDefinition([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", code, err)
		}
		if def.Code == "" {
			def.Code = code
		}
		if !sameCode(def.Code, code) {
			return nil, fmt.Errorf("definition %s declares code %s: %w", code, def.Code, domain.ErrInvalidInput)
		}
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// Lookup returns the definition stored under code, including deprecated ones.
func (s *Source) Lookup(ctx context.Context, code string) (registry.Definition, error) {
	normalized, err := domain.ParseCode(code)
	if err != nil {
		return registry.Definition{}, err
	}

	var body string
	err = s.db.QueryRowContext(ctx,
		`SELECT definition FROM crs_definitions WHERE code = ?`, normalized,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return registry.Definition{}, fmt.Errorf("%s: %w", normalized, domain.ErrCRSNotFound)
	}
	if err != nil {
		return registry.Definition{}, err
	}

	def, err := registry.ParseDefinition([]byte(body))
	if err != nil {
		return registry.Definition{}, fmt.Errorf("definition %s: %w", normalized, err)
	}
	if def.Code == "" {
		def.Code = normalized
	}
	return def, nil
}

// Close closes the database.
func (s *Source) Close() error {
	return s.db.Close()
}

func sameCode(a, b string) bool {
	na, err := domain.ParseCode(a)
	if err != nil {
		return false
	}
	nb, err := domain.ParseCode(b)
	if err != nil {
		return false
	}
	return na == nb
}
