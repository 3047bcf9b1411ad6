// Package metrics provides custom Prometheus metrics for the birdstream
// components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// GateMetrics contains all Prometheus metrics related to confidence gating.
type GateMetrics struct {
	BatchesProcessed *prometheus.CounterVec
	EmittedTotal     prometheus.Counter
	SpeciesUnlocked  prometheus.Counter
	registry         *prometheus.Registry
}

// NewGateMetrics creates a new instance of GateMetrics and registers it
// with the given registry.
func NewGateMetrics(registry *prometheus.Registry) (*GateMetrics, error) {
	m := &GateMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize gate metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register gate metrics: %w", err)
	}
	return m, nil
}

func (m *GateMetrics) initMetrics() error {
	m.BatchesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_batches_processed_total",
		Help: "Total number of prediction batches processed, by frame activity",
	}, []string{"activity"})

	m.EmittedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_recognitions_emitted_total",
		Help: "Total number of recognitions emitted past the confidence gate",
	})

	m.SpeciesUnlocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_species_unlocked_total",
		Help: "Total number of species unlocked this process lifetime",
	})

	return nil
}

// RecordBatch increments the processed batch counter for the given frame
// activity ("active" or "silent").
func (m *GateMetrics) RecordBatch(activity string) {
	m.BatchesProcessed.WithLabelValues(activity).Inc()
}

// RecordEmitted adds the number of recognitions emitted for one batch.
func (m *GateMetrics) RecordEmitted(count int) {
	m.EmittedTotal.Add(float64(count))
}

// RecordSpeciesUnlocked increments the unlocked species counter.
func (m *GateMetrics) RecordSpeciesUnlocked() {
	m.SpeciesUnlocked.Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *GateMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.BatchesProcessed.Describe(ch)
	m.EmittedTotal.Describe(ch)
	m.SpeciesUnlocked.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *GateMetrics) Collect(ch chan<- prometheus.Metric) {
	m.BatchesProcessed.Collect(ch)
	m.EmittedTotal.Collect(ch)
	m.SpeciesUnlocked.Collect(ch)
}
