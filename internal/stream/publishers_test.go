package stream

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdstream/internal/conf"
	"github.com/tphakala/birdstream/internal/detection"
	"github.com/tphakala/birdstream/internal/spectrogram"
)

type captureBroadcaster struct {
	mu     sync.Mutex
	events []detection.Event
	frames []spectrogram.Frame
}

func (c *captureBroadcaster) BroadcastDetection(event *detection.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, *event)
	return nil
}

func (c *captureBroadcaster) BroadcastSpectrogram(frame *spectrogram.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, *frame)
	return nil
}

func (c *captureBroadcaster) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *captureBroadcaster) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

const sentinelName = "generic bird sound"

func activeBatch(confidence float64) detection.PredictionBatch {
	return detection.PredictionBatch{
		Timestamp: time.Now(),
		Results: []detection.Recognition{
			{CommonName: sentinelName, Confidence: 0.9},
			{CommonName: "Robin", ScientificName: "Erithacus rubecula", Confidence: confidence},
		},
	}
}

// TestDetectionManagerGatesBeforeBroadcast verifies batches flow through
// the gate on the worker goroutine and only unlocked species reach the
// broadcaster.
func TestDetectionManagerGatesBeforeBroadcast(t *testing.T) {
	settings := conf.DefaultSettings()
	gate := detection.NewGate(detection.Policy{
		SingingThreshold:      0.5,
		InitialThreshold:      0.7,
		UnlockedThreshold:     0.4,
		MinDetectionsToUnlock: 2,
	}, sentinelName, nil)

	capture := &captureBroadcaster{}
	input := make(chan detection.PredictionBatch, 8)
	m := NewDetectionManager(gate, nil, capture, input, &settings.Stream, nil)
	require.NoError(t, m.Start())
	defer m.Stop()

	input <- activeBatch(0.8) // first appearance, gated out
	input <- activeBatch(0.8) // unlocks and is emitted

	assert.Eventually(t, func() bool {
		return capture.eventCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.Equal(t, "Robin", capture.events[0].Recognition.CommonName)
	assert.False(t, capture.events[0].NewSpecies, "no life list configured")
}

// TestDetectionManagerFlagsNewSpecies verifies the life list drives the
// new-species flag on emitted events.
func TestDetectionManagerFlagsNewSpecies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lifelist.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("1,2026-08-01,Garden,Eurasian Wren,Troglodytes troglodytes\n"), 0o644))
	lifeList, err := detection.LoadLifeList(path)
	require.NoError(t, err)

	settings := conf.DefaultSettings()
	gate := detection.NewGate(detection.Policy{
		SingingThreshold:      0.5,
		InitialThreshold:      0.7,
		UnlockedThreshold:     0.4,
		MinDetectionsToUnlock: 2,
	}, sentinelName, nil)

	capture := &captureBroadcaster{}
	input := make(chan detection.PredictionBatch, 8)
	m := NewDetectionManager(gate, lifeList, capture, input, &settings.Stream, nil)
	require.NoError(t, m.Start())
	defer m.Stop()

	input <- activeBatch(0.8)
	input <- activeBatch(0.8)

	assert.Eventually(t, func() bool {
		return capture.eventCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	capture.mu.Lock()
	defer capture.mu.Unlock()
	assert.True(t, capture.events[0].NewSpecies, "Robin is not on the life list")
}

func TestSpectrogramManagerForwardsFrames(t *testing.T) {
	settings := conf.DefaultSettings()
	capture := &captureBroadcaster{}
	input := make(chan spectrogram.Frame, 8)
	m := NewSpectrogramManager(capture, input, &settings.Stream, nil)
	require.NoError(t, m.Start())
	defer m.Stop()

	frame, err := spectrogram.NewFrame(time.Now(), make([]byte, spectrogram.FrameSize))
	require.NoError(t, err)
	input <- frame

	assert.Eventually(t, func() bool {
		return capture.frameCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
