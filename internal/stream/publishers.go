// publishers.go: concrete manager constructors for the two live streams.
package stream

import (
	"github.com/tphakala/birdstream/internal/conf"
	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/observability"
	"github.com/tphakala/birdstream/internal/spectrogram"
)

// DetectionBroadcaster fans one gated detection event out to subscribers.
type DetectionBroadcaster interface {
	BroadcastDetection(event *detection.Event) error
}

// SpectrogramBroadcaster fans one spectrogram frame out to subscribers.
type SpectrogramBroadcaster interface {
	BroadcastSpectrogram(frame *spectrogram.Frame) error
}

// NewDetectionManager builds the detection stream worker. Each dequeued
// batch runs through the gate synchronously on the worker goroutine, so
// session state never sees concurrent access and batches reach subscribers
// in enqueue order. lifeList may be nil; when set, emitted species missing
// from it are flagged as new.
func NewDetectionManager(gate *detection.Gate, lifeList *detection.LifeList, broadcaster DetectionBroadcaster, input <-chan detection.PredictionBatch, settings *conf.StreamSettings, metrics *observability.Metrics) *Manager[detection.PredictionBatch] {
	broadcast := func(batch detection.PredictionBatch) error {
		for _, r := range gate.Process(batch) {
			event := detection.Event{
				Timestamp:   batch.Timestamp,
				Recognition: r,
				NewSpecies:  lifeList != nil && !lifeList.Contains(r.ScientificName),
			}
			if err := broadcaster.BroadcastDetection(&event); err != nil {
				return err
			}
		}
		return nil
	}
	return NewManager("detections", input, broadcast, settings.ShutdownTimeout, settings.LogThrottleInterval, metrics)
}

// NewSpectrogramManager builds the spectrogram stream worker.
func NewSpectrogramManager(broadcaster SpectrogramBroadcaster, input <-chan spectrogram.Frame, settings *conf.StreamSettings, metrics *observability.Metrics) *Manager[spectrogram.Frame] {
	broadcast := func(frame spectrogram.Frame) error {
		return broadcaster.BroadcastSpectrogram(&frame)
	}
	return NewManager("spectrogram", input, broadcast, settings.ShutdownTimeout, settings.LogThrottleInterval, metrics)
}
