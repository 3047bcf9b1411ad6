// Package stream runs the background distribution workers that drain the
// bounded per-stream queues and hand each item to the SSE broadcaster. One
// Manager owns one worker; the detection event stream and the spectrogram
// frame stream each get their own instance.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/birdstream/internal/errors"
	"github.com/tphakala/birdstream/internal/logging"
	"github.com/tphakala/birdstream/internal/observability"
)

// BroadcastFunc delivers one value to all current subscribers. Failures are
// per-subscriber concerns; an error return only signals that delivery could
// not be attempted at all.
type BroadcastFunc[T any] func(value T) error

// Manager owns the lifecycle of one stream distribution worker. Start,
// Stop, Restart and IsRunning are safe to call concurrently; all state
// transitions happen under one mutex.
type Manager[T any] struct {
	mutex     sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	// wg belongs to the current worker session and is replaced on every
	// Start, so a worker abandoned by a forced Stop cannot be counted
	// against its replacement.
	wg              *sync.WaitGroup
	name            string
	input           <-chan T
	broadcast       BroadcastFunc[T]
	shutdownTimeout time.Duration
	logThrottle     *cache.Cache
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewManager creates a manager for one stream. name labels logs and
// metrics; input is the bounded queue the worker drains; broadcast hands
// items to the fan-out. metrics may be nil.
func NewManager[T any](name string, input <-chan T, broadcast BroadcastFunc[T], shutdownTimeout, logThrottleInterval time.Duration, metrics *observability.Metrics) *Manager[T] {
	logger := logging.ForService("stream")
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager[T]{
		name:            name,
		input:           input,
		broadcast:       broadcast,
		shutdownTimeout: shutdownTimeout,
		logThrottle:     cache.New(logThrottleInterval, logThrottleInterval),
		logger:          logger.With("stream", name),
		metrics:         metrics,
	}
}

// Start launches the distribution worker. Calling Start on a running
// manager is a no-op.
func (m *Manager[T]) Start() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.isRunning {
		m.logger.Debug("stream worker is already running")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg = &sync.WaitGroup{}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(ctx)
	}()

	m.isRunning = true
	m.logger.Info("stream worker started")
	return nil
}

// Stop signals the worker to exit and waits for it with a bounded timeout.
// If the worker does not return in time the manager forces its state to
// stopped rather than blocking the caller. Stop on a stopped manager is a
// no-op.
func (m *Manager[T]) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.isRunning {
		m.logger.Debug("stream worker is not running")
		return
	}

	m.logger.Info("stopping stream worker")

	if m.cancel != nil {
		m.cancel()
	}

	wg := m.wg
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Debug("stream worker stopped cleanly")
	case <-time.After(m.shutdownTimeout):
		// Forced shutdown, never hang the caller
		err := errors.Newf("stream worker did not stop within %s", m.shutdownTimeout).
			Component("stream").
			Category(errors.CategoryTimeout).
			Build()
		m.logger.Warn("stream worker shutdown timed out, forcing cleanup", "error", err)
	}

	m.isRunning = false
	m.cancel = nil
	m.wg = nil
	m.logger.Info("stream worker stopped")
}

// Restart stops and starts the worker.
func (m *Manager[T]) Restart() error {
	m.logger.Info("restarting stream worker")
	m.Stop()
	return m.Start()
}

// IsRunning returns whether the distribution worker is currently active.
func (m *Manager[T]) IsRunning() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.isRunning
}

// run drains the input queue and broadcasts each item until cancelled.
// Items are handed off in the order they were enqueued; a broadcast failure
// never stops the loop.
func (m *Manager[T]) run(ctx context.Context) {
	m.logger.Info("stream worker running")

	for {
		// A worker abandoned by a forced Stop must exit here once it
		// unblocks, before it can steal queue items from its replacement
		if ctx.Err() != nil {
			m.logger.Info("stream worker exiting")
			return
		}

		select {
		case <-ctx.Done():
			m.logger.Info("stream worker exiting")
			return
		case value, ok := <-m.input:
			if !ok {
				m.logger.Warn("stream input queue closed, worker exiting")
				return
			}
			if err := m.broadcast(value); err != nil {
				if m.metrics != nil {
					m.metrics.Stream.RecordBroadcastError(m.name)
				}
				m.warnThrottled("error broadcasting stream value", err)
				continue
			}
			if m.metrics != nil {
				m.metrics.Stream.RecordBroadcast(m.name)
			}
		}
	}
}

// warnThrottled logs a broadcast error at most once per throttle interval
// to avoid log storms under sustained subscriber failures.
func (m *Manager[T]) warnThrottled(msg string, err error) {
	const key = "broadcast-error"
	if _, found := m.logThrottle.Get(key); found {
		return
	}
	m.logThrottle.Set(key, struct{}{}, cache.DefaultExpiration)
	m.logger.Warn(msg, "error", err)
}
