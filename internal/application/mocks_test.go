package application

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jobrunner/refsys/internal/operation"
	"github.com/jobrunner/refsys/internal/ports/output"
	"github.com/jobrunner/refsys/internal/registry"
)

// mockSource implements output.DefinitionSource for testing.
type mockSource struct {
	mu    sync.Mutex
	name  string
	defs  []registry.Definition
	err   error
	loads int
}

func (m *mockSource) Name() string {
	return m.name
}

func (m *mockSource) Load(_ context.Context) ([]registry.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	return m.defs, nil
}

func (m *mockSource) set(defs []registry.Definition, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs = defs
	m.err = err
}

// mockMetrics implements output.MetricsCollector for testing.
type mockMetrics struct {
	mu          sync.Mutex
	outcomes    map[string]int
	cacheHits   int
	cacheMisses int
	points      int
	definitions int
	reloads     map[bool]int
	durations   int
}

var _ output.MetricsCollector = (*mockMetrics)(nil)

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		outcomes: make(map[string]int),
		reloads:  make(map[bool]int),
	}
}

func (m *mockMetrics) IncOperationsResolved(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *mockMetrics) ObserveResolveDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *mockMetrics) RecordCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *mockMetrics) AddPointsTransformed(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points += count
}

func (m *mockMetrics) SetDefinitionsLoaded(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions = count
}

func (m *mockMetrics) IncDefinitionReloads(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reloads[success]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func builtin(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Builtin()
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	return r
}

// testServices wires a catalog, finder and transform service the way the
// application does.
type testServices struct {
	catalog   *Catalog
	finder    *operation.Finder
	transform *TransformService
	metrics   *mockMetrics
}

func newTestServices(t *testing.T, sources ...output.DefinitionSource) *testServices {
	t.Helper()
	metrics := newMockMetrics()
	catalog := NewCatalog(builtin(t), metrics, testLogger(), sources...)
	finder := operation.NewFinder(
		operation.WithAuthority(catalog),
		operation.WithCacheObserver(metrics),
		operation.WithLogger(testLogger()),
	)
	return &testServices{
		catalog:   catalog,
		finder:    finder,
		transform: NewTransformService(finder, metrics, testLogger(), TransformServiceConfig{}),
		metrics:   metrics,
	}
}

var (
	ed50 = registry.Definition{
		Code: "EPSG:4230",
		Name: "ED50",
		Kind: registry.KindGeographic,
		Datum: &registry.DatumDefinition{
			Name:      "European Datum 1950",
			Ellipsoid: &registry.EllipsoidDefinition{Name: "International 1924"},
			ToWGS84:   []any{-87, -98, -121},
		},
	}

	// Tokyo has no shift parameters, so only lenient factories relate it to WGS 84.
	tokyo = registry.Definition{
		Code: "EPSG:4301",
		Name: "Tokyo",
		Kind: registry.KindGeographic,
		Datum: &registry.DatumDefinition{
			Name:      "Tokyo",
			Ellipsoid: &registry.EllipsoidDefinition{Name: "Bessel 1841"},
		},
	}
)
