package application

import (
	"context"
	"time"

	"github.com/jobrunner/refsys/internal/operation"
	"github.com/jobrunner/refsys/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	catalog *Catalog
	finder  *operation.Finder
}

// NewHealthService creates a new health service.
func NewHealthService(catalog *Catalog, finder *operation.Finder) *HealthService {
	return &HealthService{
		catalog: catalog,
		finder:  finder,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true // Basic health check
}

// IsReady returns true if the service is ready to accept requests. The built-in
// definitions are always available, so the service is ready unless the catalog has
// sources that never loaded.
func (s *HealthService) IsReady(_ context.Context) bool {
	if s.catalog.Len() == 0 {
		return false
	}
	if len(s.catalog.SourceNames()) == 0 {
		return true
	}
	return !s.catalog.LoadedAt().IsZero()
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	components := map[string]string{
		"registry": "ok",
	}
	for _, name := range s.catalog.SourceNames() {
		components[name] = "ok"
	}
	if err := s.catalog.LastError(); err != nil {
		for _, name := range s.catalog.SourceNames() {
			components[name] = "error: " + err.Error()
		}
	}

	return input.HealthDetails{
		Healthy:           s.IsHealthy(ctx),
		Ready:             s.IsReady(ctx),
		DefinitionsLoaded: s.catalog.Len(),
		OperationsCached:  s.OperationsCached(),
		LastReload:        s.catalog.LoadedAt(),
		Components:        components,
	}
}

// OperationsCached returns the number of operations cached by the shared
// strict and lenient factories.
func (s *HealthService) OperationsCached() int {
	if s.finder == nil {
		return 0
	}
	return s.finder.CachedOperations()
}

// Uptime reports how long ago the catalog last loaded, or zero if it never did.
func (s *HealthService) Uptime() time.Duration {
	loaded := s.catalog.LoadedAt()
	if loaded.IsZero() {
		return 0
	}
	return time.Since(loaded)
}
