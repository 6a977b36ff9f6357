// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"

	"github.com/jobrunner/refsys/internal/registry"
)

// DefinitionSource defines the secondary port for CRS definitions that extend the
// built-in registry.
type DefinitionSource interface {
	// Name identifies the source in logs and health output.
	Name() string

	// Load returns all definitions currently held by the source.
	Load(ctx context.Context) ([]registry.Definition, error)
}

// SourceType represents the kind of definition source.
type SourceType string

const (
	SourceTypeBuiltin SourceType = "builtin"
	SourceTypeFile    SourceType = "file"
	SourceTypeHTTP    SourceType = "http"
	SourceTypeSQLite  SourceType = "sqlite"
)
