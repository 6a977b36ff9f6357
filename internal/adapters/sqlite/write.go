package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/registry"
)

// Write creates or updates the definitions database at path. Definitions are
// written in order; an existing row with the same code is replaced and moves to
// the end of the load order.
func Write(ctx context.Context, path string, defs []registry.Definition) error {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO crs_definitions (code, name, kind, definition) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, def := range defs {
		code, err := domain.ParseCode(def.Code)
		if err != nil {
			return fmt.Errorf("definition %q: %w", def.Name, err)
		}
		def.Code = code

		body, err := registry.MarshalDefinition(def)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", code, err)
		}
		if _, err := stmt.ExecContext(ctx, code, def.Name, def.Kind, string(body)); err != nil {
			return fmt.Errorf("writing %s: %w", code, err)
		}
	}

	return tx.Commit()
}

// Deprecate marks codes as deprecated so that Load skips them.
func Deprecate(ctx context.Context, path string, codes ...string) error {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	for _, c := range codes {
		code, err := domain.ParseCode(c)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, `UPDATE crs_definitions SET deprecated = 1 WHERE code = ?`, code); err != nil {
			return fmt.Errorf("deprecating %s: %w", code, err)
		}
	}
	return nil
}
