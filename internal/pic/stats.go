package pic

import "math"

// WeightedMean returns the intensity-weighted mean mass of points.
func WeightedMean(points []Point) (float64, error) {
	if len(points) == 0 {
		return 0, ErrEmptyBucket
	}
	var sum, weights float64
	for _, p := range points {
		sum += p.Mass * p.Intensity
		weights += p.Intensity
	}
	if weights == 0 {
		return 0, ErrZeroWeight
	}
	return sum / weights, nil
}

// UnbiasedWeightedVariance returns the reliability-weighted sample variance
// of the masses, with intensities as weights, and the weighted mean:
//
//	Σw / ((Σw)² − Σw²) · Σ w(m − x̄*)²
//
// The denominator vanishes for a single point, so fewer than two points is
// an error.
func UnbiasedWeightedVariance(points []Point) (variance, mean float64, err error) {
	if len(points) < 2 {
		if len(points) == 0 {
			return 0, 0, ErrEmptyBucket
		}
		return 0, 0, ErrInsufficientPoints
	}
	mean, err = WeightedMean(points)
	if err != nil {
		return 0, 0, err
	}
	var weights, squaredWeights, deviations float64
	for _, p := range points {
		weights += p.Intensity
		squaredWeights += p.Intensity * p.Intensity
		d := p.Mass - mean
		deviations += p.Intensity * d * d
	}
	denom := weights*weights - squaredWeights
	if denom == 0 {
		return 0, 0, ErrInsufficientPoints
	}
	variance = weights / denom * deviations
	if math.IsNaN(variance) || variance < 0 {
		return 0, 0, ErrInsufficientPoints
	}
	return variance, mean, nil
}
