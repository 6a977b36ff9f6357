// Package application contains the application services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/refsys/internal/domain"
	"github.com/jobrunner/refsys/internal/ports/output"
	"github.com/jobrunner/refsys/internal/registry"
)

// Catalog holds the current CRS registry: the built-in definitions extended by the
// configured sources. A reload builds a new registry and swaps it in, so lookups
// never see a partially loaded state.
type Catalog struct {
	mu       sync.RWMutex
	base     *registry.Registry
	current  *registry.Registry
	loadedAt time.Time
	lastErr  error

	loadMu  sync.Mutex
	sources []output.DefinitionSource
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// LoadStats contains statistics from a load.
type LoadStats struct {
	Definitions int // registered codes after the load
	Added       int
	Removed     int
	Changed     int
}

// NewCatalog creates a catalog serving base until the first Load.
func NewCatalog(
	base *registry.Registry,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	sources ...output.DefinitionSource,
) *Catalog {
	metrics.SetDefinitionsLoaded(base.Len())

	return &Catalog{
		base:    base,
		current: base,
		sources: sources,
		metrics: metrics,
		logger:  logger,
	}
}

// Load reads all sources and replaces the current registry. On error the current
// registry stays in place.
func (c *Catalog) Load(ctx context.Context) (LoadStats, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	var defs []registry.Definition
	for _, src := range c.sources {
		c.logger.Debug("loading definitions", "source", src.Name())

		loaded, err := src.Load(ctx)
		if err != nil {
			c.metrics.IncDefinitionReloads(src.Name(), false)
			c.fail(fmt.Errorf("loading %s: %w", src.Name(), err))
			return LoadStats{}, c.LastError()
		}
		defs = append(defs, loaded...)
	}

	next, err := c.base.Extend(defs...)
	if err != nil {
		for _, src := range c.sources {
			c.metrics.IncDefinitionReloads(src.Name(), false)
		}
		c.fail(err)
		return LoadStats{}, err
	}

	c.mu.Lock()
	stats := diff(c.current, next)
	c.current = next
	c.loadedAt = time.Now()
	c.lastErr = nil
	c.mu.Unlock()

	for _, src := range c.sources {
		c.metrics.IncDefinitionReloads(src.Name(), true)
	}
	c.metrics.SetDefinitionsLoaded(stats.Definitions)

	c.logger.Info("definitions loaded",
		"definitions", stats.Definitions,
		"added", stats.Added,
		"removed", stats.Removed,
		"changed", stats.Changed,
	)
	return stats, nil
}

func (c *Catalog) fail(err error) {
	c.logger.Error("failed to load definitions", "error", err)

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// diff compares the code sets and CRS structures of two registries.
func diff(prev, next *registry.Registry) LoadStats {
	stats := LoadStats{Definitions: next.Len()}

	for _, code := range next.Codes() {
		before, err := prev.CRS(code)
		if err != nil {
			stats.Added++
			continue
		}
		after, err := next.CRS(code)
		if err == nil && !domain.Equal(before, after) {
			stats.Changed++
		}
	}
	for _, code := range prev.Codes() {
		if _, err := next.CRS(code); err != nil {
			stats.Removed++
		}
	}
	return stats
}

func (c *Catalog) snapshot() *registry.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// CRS resolves an authority code against the current registry. It makes the
// catalog usable as the authority of an operation factory.
func (c *Catalog) CRS(code string) (domain.CRS, error) {
	return c.snapshot().CRS(code)
}

// ListDefinitions returns all definitions in registration order.
func (c *Catalog) ListDefinitions(_ context.Context) ([]registry.Definition, error) {
	return c.snapshot().Definitions(), nil
}

// GetDefinition returns the definition registered under code.
func (c *Catalog) GetDefinition(_ context.Context, code string) (*registry.Definition, error) {
	normalized, err := domain.ParseCode(code)
	if err != nil {
		return nil, err
	}

	def, ok := c.snapshot().Definition(normalized)
	if !ok {
		return nil, fmt.Errorf("%s: %w", normalized, domain.ErrCRSNotFound)
	}
	return &def, nil
}

// Codes returns the registered codes in sorted order.
func (c *Catalog) Codes() []string {
	return c.snapshot().Codes()
}

// Len returns the number of registered codes.
func (c *Catalog) Len() int {
	return c.snapshot().Len()
}

// LoadedAt returns the time of the last successful Load, or the zero time.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// LastError returns the error of the last Load, or nil if it succeeded.
func (c *Catalog) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// SourceNames returns the names of the configured sources.
func (c *Catalog) SourceNames() []string {
	names := make([]string, len(c.sources))
	for i, src := range c.sources {
		names[i] = src.Name()
	}
	return names
}
