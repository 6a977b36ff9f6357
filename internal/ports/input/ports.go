// Package input defines the primary/driving ports of the application.
package input

import (
	"context"
	"time"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/registry"
)

// TransformService defines the primary port for coordinate operations.
type TransformService interface {
	// Resolve finds the operation between two CRSs without transforming anything.
	Resolve(ctx context.Context, source, target string, lenient bool) (*domain.OperationInfo, error)

	// Transform converts points from the source to the target CRS.
	Transform(ctx context.Context, req domain.TransformRequest) (*domain.TransformResult, error)

	// ReprojectEnvelope converts a bounding box from the source to the target CRS.
	ReprojectEnvelope(ctx context.Context, req domain.EnvelopeRequest) (*domain.EnvelopeResult, error)
}

// Catalog defines the primary port for browsing CRS definitions.
type Catalog interface {
	// ListDefinitions returns all registered definitions.
	ListDefinitions(ctx context.Context) ([]registry.Definition, error)

	// GetDefinition returns the definition registered under code.
	GetDefinition(ctx context.Context, code string) (*registry.Definition, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy           bool              // Overall health status
	Ready             bool              // Ready to accept requests
	DefinitionsLoaded int               // Number of registered CRS codes
	OperationsCached  int               // Operations held by the shared factories
	LastReload        time.Time         // Time of the last successful definition load
	Components        map[string]string // Component statuses
}
