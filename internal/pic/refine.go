package pic

import (
	"fmt"
	"math"
)

// OutlierSigmas is the half-width of the kept band, in standard deviations.
const OutlierSigmas = 3.0

// RemoveOutliers keeps the matched points whose mass lies within
// OutlierSigmas standard deviations of the weighted mean, preserving order.
// It is a single pass. A degenerate bucket is left untouched and the error
// satisfies IsDegenerate.
func (f *FeatureIndex) RemoveOutliers() (int, error) {
	f.Finalize()
	variance, mean, err := UnbiasedWeightedVariance(f.matched)
	if err != nil {
		return 0, fmt.Errorf("removing outliers from %s: %w", f.ID, err)
	}
	stddev := math.Sqrt(variance)
	lo := mean - OutlierSigmas*stddev
	hi := mean + OutlierSigmas*stddev

	kept := make([]Point, 0, len(f.matched))
	for _, p := range f.matched {
		if p.Mass >= lo && p.Mass <= hi {
			kept = append(kept, p)
		}
	}
	removed := len(f.matched) - len(kept)
	f.matched = kept
	return removed, nil
}

// RemoveDuplicatesInScan keeps one matched point per scan index: the one
// whose mass is closest to the weighted mean of the whole bucket, computed
// once up front. Ties go to the earlier point. Scans appear in the order
// they are first seen.
func (f *FeatureIndex) RemoveDuplicatesInScan() (int, error) {
	f.Finalize()
	mean, err := WeightedMean(f.matched)
	if err != nil {
		return 0, fmt.Errorf("removing duplicates from %s: %w", f.ID, err)
	}
	slot := make(map[int]int)
	kept := make([]Point, 0, len(f.matched))
	for _, p := range f.matched {
		i, seen := slot[p.ScanIndex]
		if !seen {
			slot[p.ScanIndex] = len(kept)
			kept = append(kept, p)
			continue
		}
		if math.Abs(p.Mass-mean) < math.Abs(kept[i].Mass-mean) {
			kept[i] = p
		}
	}
	removed := len(f.matched) - len(kept)
	f.matched = kept
	return removed, nil
}
