package detection

// Policy holds the confidence thresholds and unlock requirement that drive
// the gate. A Policy value is immutable once handed to a Gate; configuration
// reloads replace the whole value, never mutate it in place.
type Policy struct {
	// SingingThreshold gates the sentinel recognition that marks a frame as
	// containing bird-like sound.
	SingingThreshold float64
	// InitialThreshold applies to species not yet unlocked.
	InitialThreshold float64
	// UnlockedThreshold applies to species that have crossed the unlock bar.
	// Expected to be lower than InitialThreshold so repeat visitors keep
	// showing up through quieter song.
	UnlockedThreshold float64
	// MinDetectionsToUnlock is how many appearances within the rolling
	// history a species needs before it unlocks.
	MinDetectionsToUnlock int
}

// minConfidence resolves the effective minimum confidence for a species.
// Priority order: sentinel, then unlocked, then initial.
func (p Policy) minConfidence(name, sentinel string, unlocked bool) float64 {
	switch {
	case name == sentinel:
		return p.SingingThreshold
	case unlocked:
		return p.UnlockedThreshold
	default:
		return p.InitialThreshold
	}
}
