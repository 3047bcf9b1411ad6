// Package detection implements the confidence gating core: typed prediction
// results, the threshold policy, the rolling detection history, and the gate
// engine that decides which species are surfaced to viewers.
package detection

import "time"

// Recognition is a single per-species classifier result for one frame.
// CommonName is the stable identity key within a session.
type Recognition struct {
	CommonName     string  `json:"commonName"`
	ScientificName string  `json:"scientificName"`
	Confidence     float64 `json:"confidence"`
}

// PredictionBatch is the ordered set of recognitions produced by the
// classifier for one frame.
type PredictionBatch struct {
	Timestamp time.Time     `json:"timestamp"`
	Results   []Recognition `json:"results"`
}

// Event is one gated recognition as delivered to subscribers. NewSpecies
// marks species not on the configured life list.
type Event struct {
	Timestamp   time.Time   `json:"timestamp"`
	Recognition Recognition `json:"recognition"`
	NewSpecies  bool        `json:"newSpecies,omitempty"`
}
