// Package api hosts the HTTP server and the SSE endpoints that push gated
// detection events and raw spectrogram frames to live viewers.
package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tphakala/birdstream/internal/observability"
)

// Stream names used to segment SSE clients.
const (
	StreamDetections  = "detections"
	StreamSpectrogram = "spectrogram"
)

// Envelope event types on the wire.
const (
	EventConnected   = "connected"
	EventDetection   = "detection"
	EventSpectrogram = "spectrogram-frame"
	EventHeartbeat   = "heartbeat"
)

// Event is one tagged message queued for delivery to a client. Type maps to
// the SSE event field, Data to its JSON payload.
type Event struct {
	Type string
	Data any
}

// SSEClient represents a connected SSE client.
type SSEClient struct {
	ID      string
	Stream  string
	Channel chan Event
	Done    chan struct{}
}

// BroadcastOutcome reports per-subscriber delivery results for one
// broadcast call.
type BroadcastOutcome struct {
	Delivered int
	Failed    []string // client IDs whose delivery failed; they are removed
}

// SSEManager manages SSE connections and broadcasts. A slow client never
// blocks delivery past the per-client send timeout; blocked clients are
// evicted and excluded from future broadcasts.
type SSEManager struct {
	clients     map[string]*SSEClient
	mutex       sync.RWMutex
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewSSEManager creates a new SSE manager. metrics may be nil.
func NewSSEManager(sendTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *SSEManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSEManager{
		clients:     make(map[string]*SSEClient),
		sendTimeout: sendTimeout,
		logger:      logger,
		metrics:     metrics,
	}
}

// AddClient registers a new SSE client.
func (m *SSEManager) AddClient(client *SSEClient) {
	m.mutex.Lock()
	m.clients[client.ID] = client
	total := len(m.clients)
	m.mutex.Unlock()

	m.logger.Info("SSE client connected",
		"client_id", client.ID,
		"stream", client.Stream,
		"total", total)
	m.updateClientGauges()
}

// RemoveClient removes an SSE client and closes its channels.
func (m *SSEManager) RemoveClient(clientID string) {
	m.mutex.Lock()
	client, exists := m.clients[clientID]
	if exists {
		close(client.Channel)
		close(client.Done)
		delete(m.clients, clientID)
	}
	total := len(m.clients)
	m.mutex.Unlock()

	if exists {
		m.logger.Info("SSE client disconnected",
			"client_id", clientID,
			"stream", client.Stream,
			"total", total)
		m.updateClientGauges()
	}
}

// Broadcast sends an event to every client subscribed to the given stream.
// Clients whose channel stays full past the send timeout are reported in
// the outcome and removed so they cannot slow future broadcasts.
func (m *SSEManager) Broadcast(stream string, event Event) BroadcastOutcome {
	m.mutex.RLock()

	if len(m.clients) == 0 {
		m.mutex.RUnlock()
		return BroadcastOutcome{}
	}

	var outcome BroadcastOutcome
	for clientID, client := range m.clients {
		if client.Stream != stream {
			continue
		}
		select {
		case client.Channel <- event:
			outcome.Delivered++
		case <-time.After(m.sendTimeout):
			m.logger.Warn("SSE client appears blocked, will remove",
				"client_id", clientID,
				"stream", stream)
			outcome.Failed = append(outcome.Failed, clientID)
		}
	}

	// Release the read lock before removing clients to avoid deadlock
	m.mutex.RUnlock()

	for _, clientID := range outcome.Failed {
		go m.RemoveClient(clientID)
	}
	return outcome
}

// ClientCount returns the number of connected clients for a stream, or all
// clients when stream is empty.
func (m *SSEManager) ClientCount(stream string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if stream == "" {
		return len(m.clients)
	}
	count := 0
	for _, client := range m.clients {
		if client.Stream == stream {
			count++
		}
	}
	return count
}

func (m *SSEManager) updateClientGauges() {
	if m.metrics == nil {
		return
	}
	m.metrics.Stream.SetConnectedClients(StreamDetections, m.ClientCount(StreamDetections))
	m.metrics.Stream.SetConnectedClients(StreamSpectrogram, m.ClientCount(StreamSpectrogram))
}
