package pic

import "math"

// Summary describes a feature's buckets after refinement.
type Summary struct {
	FeatureID        string   `json:"feature_id" yaml:"feature_id"`
	Matched          int      `json:"matched" yaml:"matched"`
	Missing          int      `json:"missing" yaml:"missing"`
	OutOfRange       int      `json:"out_of_range" yaml:"out_of_range"`
	DistinctScans    int      `json:"distinct_scans" yaml:"distinct_scans"`
	WeightedMeanMass *float64 `json:"weighted_mean_mass,omitempty" yaml:"weighted_mean_mass,omitempty"`
	StddevMass       *float64 `json:"stddev_mass,omitempty" yaml:"stddev_mass,omitempty"`
}

func (f *FeatureIndex) Summary() Summary {
	f.Finalize()
	s := Summary{
		FeatureID:  f.ID,
		Matched:    len(f.matched),
		Missing:    len(f.missing),
		OutOfRange: len(f.outOfRange),
	}
	scans := make(map[int]struct{}, len(f.matched))
	for _, p := range f.matched {
		scans[p.ScanIndex] = struct{}{}
	}
	s.DistinctScans = len(scans)
	if mean, err := WeightedMean(f.matched); err == nil {
		s.WeightedMeanMass = &mean
	}
	if variance, _, err := UnbiasedWeightedVariance(f.matched); err == nil {
		stddev := math.Sqrt(variance)
		s.StddevMass = &stddev
	}
	return s
}
