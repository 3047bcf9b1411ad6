// Package realtime implements the command that runs the full live
// pipeline: ingest, confidence gating, and SSE distribution.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/birdstream/internal/api"
	"github.com/tphakala/birdstream/internal/conf"
	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/errors"
	"github.com/tphakala/birdstream/internal/logging"
	"github.com/tphakala/birdstream/internal/observability"
	"github.com/tphakala/birdstream/internal/spectrogram"
	"github.com/tphakala/birdstream/internal/stream"
)

// Command returns the realtime subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "realtime",
		Short: "Run the live detection and spectrogram streaming service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunRealtime(settings)
		},
	}
}

// RunRealtime wires the pipeline together and blocks until the process
// receives SIGINT or SIGTERM.
func RunRealtime(settings *conf.Settings) error {
	log := logging.ForService("realtime")

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLog, closeLog, err := logging.NewFileLogger(settings.Main.Log.Path, "realtime", level)
		if err != nil {
			if log != nil {
				log.Warn("failed to open log file, keeping console logging",
					"path", settings.Main.Log.Path, "error", err)
			}
		} else {
			defer func() { _ = closeLog() }()
			log = fileLog.With("node", settings.Main.Name)
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		// Metrics are not worth refusing to start over
		if log != nil {
			log.Warn("failed to initialize metrics, continuing without", "error", err)
		}
		metrics = nil
	}

	controller := api.New(settings, metrics)

	detectionQueue := make(chan detection.PredictionBatch, settings.Stream.DetectionQueueSize)
	frameQueue := make(chan spectrogram.Frame, settings.Stream.SpectrogramQueueSize)
	buffer := spectrogram.NewBuffer(settings.Stream.SpectrogramQueueSize, metrics)
	controller.AttachIngest(detectionQueue, buffer)

	policy := detection.Policy{
		SingingThreshold:      settings.SoundID.SingingThreshold,
		InitialThreshold:      settings.SoundID.InitialThreshold,
		UnlockedThreshold:     settings.SoundID.UnlockedThreshold,
		MinDetectionsToUnlock: settings.SoundID.MinDetectionsToUnlock,
	}
	gate := detection.NewGate(policy, settings.SoundID.SentinelName, metrics)

	var lifeList *detection.LifeList
	if settings.SoundID.LifeListPath != "" {
		lifeList, err = detection.LoadLifeList(settings.SoundID.LifeListPath)
		if err != nil {
			// New-species flagging is optional; the stream runs without it
			if log != nil {
				log.Warn("failed to load life list, new-species flagging disabled", "error", err)
			}
			lifeList = nil
		} else if log != nil {
			log.Info("life list loaded", "species", lifeList.Len())
		}
	}

	detectionManager := stream.NewDetectionManager(gate, lifeList, controller, detectionQueue, &settings.Stream, metrics)
	spectrogramManager := stream.NewSpectrogramManager(controller, frameQueue, &settings.Stream, metrics)

	if err := detectionManager.Start(); err != nil {
		return errors.New(err).
			Component("realtime").
			Category(errors.CategoryState).
			Context("stream", "detections").
			Build()
	}
	if err := spectrogramManager.Start(); err != nil {
		detectionManager.Stop()
		return errors.New(err).
			Component("realtime").
			Category(errors.CategoryState).
			Context("stream", "spectrogram").
			Build()
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	defer cancelMonitor()
	go buffer.Monitor(monitorCtx, frameQueue)

	serverErr := make(chan error, 1)
	if settings.WebServer.Enabled {
		go func() {
			if err := controller.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		if log != nil {
			log.Info("shutdown signal received", "signal", sig.String())
		}
	case err := <-serverErr:
		if log != nil {
			log.Error("HTTP server failed", "error", err)
		}
	}

	cancelMonitor()
	detectionManager.Stop()
	spectrogramManager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := controller.Echo.Shutdown(shutdownCtx); err != nil && log != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}

	if log != nil {
		log.Info("realtime pipeline stopped")
	}
	return nil
}
