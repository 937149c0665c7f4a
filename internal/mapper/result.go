package mapper

import (
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/output"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
)

// Result is the serialisable outcome of mapping one feature. It is what the
// cache stores and what the worker publishes.
type Result struct {
	FeatureID  string        `json:"feature_id"`
	Discarded  bool          `json:"discarded"`
	Summary    pic.Summary   `json:"summary"`
	Matched    []output.Pair `json:"matched"`
	Missing    []output.Pair `json:"missing"`
	OutOfRange []output.Pair `json:"out_of_range"`
}

func ResultOf(f *pic.FeatureIndex) Result {
	return Result{
		FeatureID:  f.ID,
		Discarded:  f.Discarded(),
		Summary:    f.Summary(),
		Matched:    output.PairsOf(f.Matched()),
		Missing:    output.PairsOf(f.Missing()),
		OutOfRange: output.PairsOf(f.OutOfRange()),
	}
}
