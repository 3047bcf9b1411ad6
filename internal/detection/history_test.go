package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryTrackerCounts(t *testing.T) {
	tracker := HistoryTracker{}

	previous := []Recognition{rec("Robin", 0.8), rec("Wren", 0.7)}
	current := []Recognition{rec("Robin", 0.9), rec("Tit", 0.75)}

	counts := tracker.Update(previous, current)

	assert.Equal(t, 2, counts["Robin"], "appears in both frames")
	assert.Equal(t, 1, counts["Wren"], "appears only in previous frame")
	assert.Equal(t, 1, counts["Tit"], "appears only in current frame")
	assert.Zero(t, counts["Crow"])
}

func TestHistoryTrackerEmptyInputs(t *testing.T) {
	tracker := HistoryTracker{}

	assert.Empty(t, tracker.Update(nil, nil))
	assert.Equal(t, map[string]int{"Robin": 1}, tracker.Update(nil, []Recognition{rec("Robin", 0.8)}))
	assert.Equal(t, map[string]int{"Robin": 1}, tracker.Update([]Recognition{rec("Robin", 0.8)}, nil))
}

func TestPolicyMinConfidencePriority(t *testing.T) {
	p := testPolicy()

	// Sentinel wins even when unlocked
	assert.InDelta(t, p.SingingThreshold, p.minConfidence(sentinel, sentinel, true), 1e-9)
	assert.InDelta(t, p.SingingThreshold, p.minConfidence(sentinel, sentinel, false), 1e-9)

	assert.InDelta(t, p.UnlockedThreshold, p.minConfidence("Robin", sentinel, true), 1e-9)
	assert.InDelta(t, p.InitialThreshold, p.minConfidence("Robin", sentinel, false), 1e-9)
}
