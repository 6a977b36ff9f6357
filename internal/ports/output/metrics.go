package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncOperationsResolved counts an operation lookup by outcome
	// ("resolved", "not_found", "error").
	IncOperationsResolved(outcome string)

	// ObserveResolveDuration records how long an operation lookup took.
	ObserveResolveDuration(duration time.Duration)

	// RecordCacheLookup counts an operation cache hit or miss.
	RecordCacheLookup(hit bool)

	// AddPointsTransformed counts transformed points.
	AddPointsTransformed(count int)

	// SetDefinitionsLoaded sets the number of registered CRS codes.
	SetDefinitionsLoaded(count int)

	// IncDefinitionReloads counts definition reloads.
	IncDefinitionReloads(source string, success bool)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncOperationsResolved implements MetricsCollector.
func (n *NoOpMetrics) IncOperationsResolved(_ string) {}

// ObserveResolveDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveResolveDuration(_ time.Duration) {}

// RecordCacheLookup implements MetricsCollector.
func (n *NoOpMetrics) RecordCacheLookup(_ bool) {}

// AddPointsTransformed implements MetricsCollector.
func (n *NoOpMetrics) AddPointsTransformed(_ int) {}

// SetDefinitionsLoaded implements MetricsCollector.
func (n *NoOpMetrics) SetDefinitionsLoaded(_ int) {}

// IncDefinitionReloads implements MetricsCollector.
func (n *NoOpMetrics) IncDefinitionReloads(_ string, _ bool) {}
