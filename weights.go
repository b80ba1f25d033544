package reminisce

import "math"

// SearchWeights is the normalized routine-vs-story emphasis pair. The two
// weights always sum to 1.0 and stay inside the [Min, Max] band. State is
// owned by one agent session and mutated only by Adjust after each query;
// it is never persisted across runs.
type SearchWeights struct {
	Routine float64
	Story   float64

	Min  float64 // lower clamp for either weight
	Max  float64 // upper clamp for either weight
	Step float64 // additive reinforcement step
}

// DefaultSearchWeights starts balanced with the standard band and step.
func DefaultSearchWeights() SearchWeights {
	return SearchWeights{
		Routine: 0.5,
		Story:   0.5,
		Min:     0.2,
		Max:     0.8,
		Step:    0.1,
	}
}

// Adjust nudges the recommended side up by one step, clamps both weights
// to the band, and renormalizes so they sum to exactly 1.0. A balanced
// (or unrecognized) recommendation is a no-op: both weights stay
// numerically unchanged. Simple additive reinforcement, not a model.
func (w *SearchWeights) Adjust(rec FocusRecommendation) {
	switch rec {
	case RecommendRoutine:
		w.Routine = math.Min(w.Max, w.Routine+w.Step)
	case RecommendMemory:
		w.Story = math.Min(w.Max, w.Story+w.Step)
	default:
		return
	}

	w.Routine = clamp(w.Routine, w.Min, w.Max)
	w.Story = clamp(w.Story, w.Min, w.Max)

	total := w.Routine + w.Story
	w.Routine /= total
	w.Story /= total
}

// WeightFor returns the current weight for a node's source: Routine for
// activity nodes, Story for person and memory nodes.
func (w SearchWeights) WeightFor(typ NodeType) float64 {
	if typ == NodeActivity {
		return w.Routine
	}
	return w.Story
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
