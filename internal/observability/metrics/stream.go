package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics contains all Prometheus metrics related to stream
// distribution and SSE fan-out.
type StreamMetrics struct {
	BroadcastsTotal  *prometheus.CounterVec
	BroadcastErrors  *prometheus.CounterVec
	ConnectedClients *prometheus.GaugeVec
	DroppedFrames    *prometheus.CounterVec
	registry         *prometheus.Registry
}

// NewStreamMetrics creates a new instance of StreamMetrics and registers it
// with the given registry.
func NewStreamMetrics(registry *prometheus.Registry) (*StreamMetrics, error) {
	m := &StreamMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize stream metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register stream metrics: %w", err)
	}
	return m, nil
}

func (m *StreamMetrics) initMetrics() error {
	m.BroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_broadcasts_total",
		Help: "Total number of values broadcast to subscribers, by stream",
	}, []string{"stream"})

	m.BroadcastErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_broadcast_errors_total",
		Help: "Total number of failed subscriber deliveries, by stream",
	}, []string{"stream"})

	m.ConnectedClients = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stream_connected_clients",
		Help: "Number of currently connected SSE clients, by stream",
	}, []string{"stream"})

	m.DroppedFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_dropped_frames_total",
		Help: "Total number of items dropped before broadcast, by stream",
	}, []string{"stream"})

	return nil
}

// RecordBroadcast increments the broadcast counter for a stream.
func (m *StreamMetrics) RecordBroadcast(stream string) {
	m.BroadcastsTotal.WithLabelValues(stream).Inc()
}

// RecordBroadcastError increments the delivery error counter for a stream.
func (m *StreamMetrics) RecordBroadcastError(stream string) {
	m.BroadcastErrors.WithLabelValues(stream).Inc()
}

// SetConnectedClients sets the connected client gauge for a stream.
func (m *StreamMetrics) SetConnectedClients(stream string, count int) {
	m.ConnectedClients.WithLabelValues(stream).Set(float64(count))
}

// RecordDroppedFrame increments the dropped item counter for a stream.
func (m *StreamMetrics) RecordDroppedFrame(stream string) {
	m.DroppedFrames.WithLabelValues(stream).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *StreamMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.BroadcastsTotal.Describe(ch)
	m.BroadcastErrors.Describe(ch)
	m.ConnectedClients.Describe(ch)
	m.DroppedFrames.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *StreamMetrics) Collect(ch chan<- prometheus.Metric) {
	m.BroadcastsTotal.Collect(ch)
	m.BroadcastErrors.Collect(ch)
	m.ConnectedClients.Collect(ch)
	m.DroppedFrames.Collect(ch)
}
