package pic

import "github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"

// Classify places obs on g. Matching is exact: the retention time and mass
// must equal a grid coordinate bit for bit.
func Classify(g *grid.Grid, obs Observation) (Class, Point) {
	p := Point{
		ScanIndex:     NoIndex,
		MassIndex:     NoIndex,
		RetentionTime: obs.RetentionTime,
		Mass:          obs.Mass,
		Intensity:     obs.Intensity,
	}
	if !g.TimeRange().Contains(obs.RetentionTime) {
		return OutOfRange, p
	}
	scan, ok := g.ScanIndex(obs.RetentionTime)
	if !ok {
		// in range, but no scan to resolve a mass range against
		return Missing, p
	}
	p.ScanIndex = scan
	if j, ok := g.MassIndex(scan, obs.Mass); ok {
		p.MassIndex = j
		return Matched, p
	}
	if g.MassRange(scan).Contains(obs.Mass) {
		return Missing, p
	}
	return OutOfRange, p
}
