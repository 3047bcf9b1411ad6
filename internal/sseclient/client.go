// Package sseclient implements a reconnecting SSE subscriber. It parses
// envelope messages from the detection or spectrogram stream and forwards
// typed payloads to the registered sinks. Malformed envelopes are dropped
// with a warning; decode problems are never fatal to the subscription.
package sseclient

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/errors"
	"github.com/tphakala/birdstream/internal/logging"
	"github.com/tphakala/birdstream/internal/spectrogram"
)

const (
	initialRetryInterval = time.Second
	maxRetryInterval     = 30 * time.Second
)

// Envelope is the tagged wrapper decoded from one SSE message.
type Envelope struct {
	EventType string
	Data      json.RawMessage
}

// heartbeatPayload mirrors the keep-alive message body.
type heartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
	Clients   int   `json:"clients"`
}

// Client subscribes to one SSE stream URL and reconnects automatically
// with a capped retry interval on any drop.
type Client struct {
	url           string
	httpClient    *http.Client
	logger        *slog.Logger
	onDetection   func(detection.Event)
	onSpectrogram func(spectrogram.Frame)
}

// Option configures a Client.
type Option func(*Client)

// WithDetectionSink registers the callback for detection events.
func WithDetectionSink(sink func(detection.Event)) Option {
	return func(c *Client) { c.onDetection = sink }
}

// WithSpectrogramSink registers the callback for spectrogram frames.
func WithSpectrogramSink(sink func(spectrogram.Frame)) Option {
	return func(c *Client) { c.onSpectrogram = sink }
}

// WithHTTPClient replaces the default HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a subscriber for the given stream URL.
func New(url string, opts ...Option) *Client {
	logger := logging.ForService("sseclient")
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
		logger:     logger.With("url", url),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run subscribes and keeps the subscription alive until the context is
// cancelled, reconnecting with exponential backoff capped at
// maxRetryInterval. The backoff resets after every successful connection.
func (c *Client) Run(ctx context.Context) {
	retryInterval := initialRetryInterval

	for {
		connected, err := c.consume(ctx)
		if connected {
			retryInterval = initialRetryInterval
		}
		if err != nil {
			c.logger.Warn("SSE stream dropped, will reconnect",
				"error", err,
				"retry_in", retryInterval)
		}

		select {
		case <-ctx.Done():
			c.logger.Info("SSE subscriber stopping")
			return
		case <-time.After(retryInterval):
		}

		retryInterval *= 2
		if retryInterval > maxRetryInterval {
			retryInterval = maxRetryInterval
		}
	}
}

// consume opens the stream and dispatches messages until the connection
// drops or the context is cancelled. The connected result reports whether
// the server accepted the subscription; a nil error means clean shutdown.
func (c *Client) consume(ctx context.Context) (connected bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.New(err).
			Component("sseclient").
			Category(errors.CategoryNetwork).
			Context("url", c.url).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Info("SSE stream connected", "status", resp.StatusCode)

	var eventType string
	var data strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line terminates one SSE message
			if eventType != "" || data.Len() > 0 {
				c.dispatch(Envelope{
					EventType: eventType,
					Data:      json.RawMessage(data.String()),
				})
			}
			eventType = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Comment lines and unknown fields are ignored per the SSE format
	}

	if ctx.Err() != nil {
		return true, nil
	}
	return true, scanner.Err()
}

// dispatch decodes one envelope and forwards it to the matching sink.
func (c *Client) dispatch(env Envelope) {
	switch env.EventType {
	case "connected":
		c.logger.Info("subscription acknowledged", "payload", string(env.Data))

	case "heartbeat":
		var hb heartbeatPayload
		if err := json.Unmarshal(env.Data, &hb); err != nil {
			c.logger.Warn("dropping malformed heartbeat", "error", err)
			return
		}
		c.logger.Debug("heartbeat received", "clients", hb.Clients)

	case "detection":
		if c.onDetection == nil {
			return
		}
		var event detection.Event
		if err := json.Unmarshal(env.Data, &event); err != nil {
			c.logger.Warn("dropping malformed detection envelope", "error", err)
			return
		}
		c.onDetection(event)

	case "spectrogram-frame":
		if c.onSpectrogram == nil {
			return
		}
		var frame spectrogram.Frame
		if err := json.Unmarshal(env.Data, &frame); err != nil {
			c.logger.Warn("dropping malformed spectrogram envelope", "error", err)
			return
		}
		if len(frame.Data) != spectrogram.FrameSize {
			c.logger.Warn("dropping spectrogram frame with unexpected size",
				"size", len(frame.Data))
			return
		}
		c.onSpectrogram(frame)

	default:
		c.logger.Warn("dropping envelope with unknown event type",
			"event_type", env.EventType)
	}
}
