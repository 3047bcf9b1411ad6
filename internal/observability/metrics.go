// Package observability assembles the Prometheus metrics used across the
// application and exposes them over HTTP.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tphakala/birdstream/internal/observability/metrics"
)

// Metrics is the top-level container for all subsystem metrics.
type Metrics struct {
	Gate     *metrics.GateMetrics
	Stream   *metrics.StreamMetrics
	registry *prometheus.Registry
}

// NewMetrics creates a fresh registry with all subsystem metrics plus the
// standard Go runtime and process collectors registered.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gateMetrics, err := metrics.NewGateMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate metrics: %w", err)
	}

	streamMetrics, err := metrics.NewStreamMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream metrics: %w", err)
	}

	return &Metrics{
		Gate:     gateMetrics,
		Stream:   streamMetrics,
		registry: registry,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
