package detection

import (
	"log/slog"
	"slices"

	"github.com/tphakala/birdstream/internal/observability"
)

// Gate is the confidence gating engine. It filters each prediction batch
// against the threshold policy, advances the rolling detection history, and
// permanently unlocks species that keep reappearing, lowering their
// effective threshold for the rest of the session.
//
// A Gate holds per-session state and is not safe for concurrent use; each
// session owns its own instance and delivers batches from a single
// goroutine.
type Gate struct {
	policy   Policy
	sentinel string
	tracker  HistoryTracker
	unlocked map[string]struct{}
	previous []Recognition
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewGate creates a gate with empty session state. metrics may be nil.
func NewGate(policy Policy, sentinelName string, metrics *observability.Metrics) *Gate {
	return &Gate{
		policy:   policy,
		sentinel: sentinelName,
		unlocked: make(map[string]struct{}),
		logger:   slog.Default().With("service", "gate"),
		metrics:  metrics,
	}
}

// Process filters one prediction batch and returns the recognitions to
// surface, sorted ascending by confidence with stable ties. Species are
// emitted only once unlocked; a species that crosses the unlock bar during
// this batch is included immediately. The sentinel recognition gates the
// frame and is never part of the result.
func (g *Gate) Process(batch PredictionBatch) []Recognition {
	// An empty batch resets the rolling window but touches nothing else.
	if len(batch.Results) == 0 {
		g.previous = nil
		return nil
	}

	filtered := g.filterByThreshold(batch.Results)

	// Without the sentinel the frame is judged silent: no history update,
	// no unlock evaluation, nothing emitted.
	if !g.containsSentinel(filtered) {
		if g.metrics != nil {
			g.metrics.Gate.RecordBatch("silent")
		}
		return nil
	}

	counts := g.tracker.Update(g.previous, filtered)
	g.previous = filtered

	for _, r := range filtered {
		if r.CommonName == g.sentinel {
			continue
		}
		if _, ok := g.unlocked[r.CommonName]; ok {
			continue
		}
		if counts[r.CommonName] >= g.policy.MinDetectionsToUnlock {
			g.unlocked[r.CommonName] = struct{}{}
			g.logger.Info("species unlocked",
				"species", r.CommonName,
				"detections", counts[r.CommonName])
			if g.metrics != nil {
				g.metrics.Gate.RecordSpeciesUnlocked()
			}
		}
	}

	emitted := make([]Recognition, 0, len(filtered))
	for _, r := range filtered {
		if r.CommonName == g.sentinel {
			continue
		}
		if _, ok := g.unlocked[r.CommonName]; ok {
			emitted = append(emitted, r)
		}
	}

	slices.SortStableFunc(emitted, func(a, b Recognition) int {
		switch {
		case a.Confidence < b.Confidence:
			return -1
		case a.Confidence > b.Confidence:
			return 1
		default:
			return 0
		}
	})

	if g.metrics != nil {
		g.metrics.Gate.RecordBatch("active")
		g.metrics.Gate.RecordEmitted(len(emitted))
	}
	return emitted
}

// filterByThreshold keeps recognitions at or above the priority-resolved
// minimum confidence for their species.
func (g *Gate) filterByThreshold(results []Recognition) []Recognition {
	filtered := make([]Recognition, 0, len(results))
	for _, r := range results {
		_, unlocked := g.unlocked[r.CommonName]
		if r.Confidence >= g.policy.minConfidence(r.CommonName, g.sentinel, unlocked) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func (g *Gate) containsSentinel(results []Recognition) bool {
	for _, r := range results {
		if r.CommonName == g.sentinel {
			return true
		}
	}
	return false
}

// ReplacePolicy installs a new threshold policy wholesale. Session state
// (unlocked species, rolling history) is retained.
func (g *Gate) ReplacePolicy(policy Policy) {
	g.policy = policy
}

// IsUnlocked reports whether a species has crossed the unlock bar this session.
func (g *Gate) IsUnlocked(name string) bool {
	_, ok := g.unlocked[name]
	return ok
}

// UnlockedSpecies returns the unlocked species names in sorted order.
func (g *Gate) UnlockedSpecies() []string {
	names := make([]string, 0, len(g.unlocked))
	for name := range g.unlocked {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
