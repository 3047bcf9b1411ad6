package detection

// HistoryTracker computes the rolling per-species detection counts used by
// the unlock evaluation. The window covers exactly two frames: the previous
// batch's filtered recognitions and the current one's. It is a pure
// function; the Gate owns carrying the "previous" slice across calls. A
// future decay policy would extend this type rather than the gate itself.
type HistoryTracker struct{}

// Update returns the per-species occurrence counts across the two filtered
// recognition slices. Each slice holds at most one recognition per species,
// so counts are capped at two.
func (HistoryTracker) Update(previous, current []Recognition) map[string]int {
	counts := make(map[string]int, len(previous)+len(current))
	for _, r := range previous {
		counts[r.CommonName]++
	}
	for _, r := range current {
		counts[r.CommonName]++
	}
	return counts
}
