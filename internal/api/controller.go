package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/tphakala/birdstream/internal/conf"
	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/errors"
	"github.com/tphakala/birdstream/internal/logging"
	"github.com/tphakala/birdstream/internal/observability"
	"github.com/tphakala/birdstream/internal/spectrogram"
)

// Controller wires the SSE endpoints into an echo server.
type Controller struct {
	Echo       *echo.Echo
	Group      *echo.Group
	sseManager *SSEManager
	settings   *conf.Settings
	metrics    *observability.Metrics
}

// New creates the API controller and registers all routes. metrics may be nil.
func New(settings *conf.Settings, metrics *observability.Metrics) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	logger := logging.ForService("api")
	c := &Controller{
		Echo:       e,
		Group:      e.Group("/api/v1"),
		sseManager: NewSSEManager(settings.Stream.SendTimeout, logger, metrics),
		settings:   settings,
		metrics:    metrics,
	}
	c.initRoutes()

	if metrics != nil {
		metrics.RegisterEndpoint(e)
	}
	return c
}

func (c *Controller) initRoutes() {
	// Rate limit SSE connection attempts per IP
	rateLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      connectionRate(c.settings.WebServer.RateLimit),
				Burst:     max(c.settings.WebServer.RateLimit, 1),
				ExpiresIn: 1 * time.Minute,
			},
		),
		IdentifierExtractor: middleware.DefaultRateLimiterConfig.IdentifierExtractor,
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded for SSE connections",
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many SSE connection attempts, please wait before trying again",
			})
		},
	})

	c.Group.GET("/detections/stream", c.streamHandler(StreamDetections), rateLimiter)
	c.Group.GET("/spectrogram/stream", c.streamHandler(StreamSpectrogram), rateLimiter)
	c.Group.GET("/sse/status", c.GetSSEStatus)
}

// streamHandler returns the SSE connection handler for one stream.
func (c *Controller) streamHandler(stream string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctx.Response().Header().Set("Content-Type", "text/event-stream")
		ctx.Response().Header().Set("Cache-Control", "no-cache")
		ctx.Response().Header().Set("Connection", "keep-alive")
		ctx.Response().Header().Set("Access-Control-Allow-Origin", "*")
		ctx.Response().Header().Set("Access-Control-Allow-Headers", "Cache-Control")

		client := &SSEClient{
			ID:      uuid.New().String(),
			Stream:  stream,
			Channel: make(chan Event, c.settings.Stream.ClientBufferSize),
			Done:    make(chan struct{}),
		}
		c.sseManager.AddClient(client)
		defer c.sseManager.RemoveClient(client.ID)

		if err := c.sendSSEMessage(ctx, EventConnected, map[string]string{
			"clientId": client.ID,
			"stream":   stream,
		}); err != nil {
			return err
		}

		ticker := time.NewTicker(c.settings.Stream.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return nil
				}
				if err := c.sendSSEMessage(ctx, event.Type, event.Data); err != nil {
					return err
				}

			case <-ticker.C:
				if err := c.sendSSEMessage(ctx, EventHeartbeat, map[string]any{
					"timestamp": time.Now().Unix(),
					"clients":   c.sseManager.ClientCount(stream),
				}); err != nil {
					// Heartbeat failure means the client is likely gone
					return nil
				}

			case <-ctx.Request().Context().Done():
				return nil

			case <-client.Done:
				return nil
			}
		}
	}
}

// sendSSEMessage writes one Server-Sent Event to the response.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	message := fmt.Sprintf("event: %s\ndata: %s\n\n", event, jsonData)

	// Bound the write so a dead connection cannot hang the handler
	if conn, ok := ctx.Response().Writer.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}

	if _, err := ctx.Response().Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}

	if flusher, ok := ctx.Response().Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

// GetSSEStatus returns connected client counts per stream.
func (c *Controller) GetSSEStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status": "active",
		"connected_clients": map[string]int{
			StreamDetections:  c.sseManager.ClientCount(StreamDetections),
			StreamSpectrogram: c.sseManager.ClientCount(StreamSpectrogram),
		},
	})
}

// BroadcastDetection pushes one gated detection event to all detection
// stream subscribers.
func (c *Controller) BroadcastDetection(event *detection.Event) error {
	if c.sseManager == nil {
		return errors.Newf("SSE manager not initialized").
			Component("api").
			Category(errors.CategoryState).
			Build()
	}
	if event == nil {
		return errors.Newf("detection event is nil").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	c.sseManager.Broadcast(StreamDetections, Event{Type: EventDetection, Data: event})
	return nil
}

// BroadcastSpectrogram pushes one raw spectrogram frame to all spectrogram
// stream subscribers.
func (c *Controller) BroadcastSpectrogram(frame *spectrogram.Frame) error {
	if c.sseManager == nil {
		return errors.Newf("SSE manager not initialized").
			Component("api").
			Category(errors.CategoryState).
			Build()
	}
	if frame == nil {
		return errors.Newf("spectrogram frame is nil").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	c.sseManager.Broadcast(StreamSpectrogram, Event{Type: EventSpectrogram, Data: frame})
	return nil
}

// Start runs the HTTP server on the configured port (blocking).
func (c *Controller) Start() error {
	return c.Echo.Start(":" + c.settings.WebServer.Port)
}

// connectionRate converts a per-minute connection budget into the
// per-second limit the rate limiter store expects.
func connectionRate(perMinute int) rate.Limit {
	if perMinute < 1 {
		perMinute = 1
	}
	return rate.Limit(float64(perMinute) / 60.0)
}
