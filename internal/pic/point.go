// Package pic maps the observations of one feature run onto a reference grid
// and refines the matched points with intensity-weighted statistics.
package pic

import "errors"

// NoIndex marks a coordinate that did not resolve to a grid index.
const NoIndex = -1

var (
	ErrEmptyBucket        = errors.New("matched bucket is empty")
	ErrInsufficientPoints = errors.New("variance needs at least two weighted points")
	ErrZeroWeight         = errors.New("total intensity is zero")
	ErrFinalized          = errors.New("feature index is finalized")
)

// IsDegenerate reports whether err means the matched bucket cannot support
// the requested statistic. Callers skip the refinement in that case.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrEmptyBucket) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrZeroWeight)
}

// Observation is one (retention time, m/z, intensity) triplet of a feature
// run.
type Observation struct {
	RetentionTime float64
	Mass          float64
	Intensity     float64
}

// Point is a classified observation. ScanIndex and MassIndex are NoIndex
// when the coordinate could not be placed on the grid.
type Point struct {
	ScanIndex     int
	MassIndex     int
	RetentionTime float64
	Mass          float64
	Intensity     float64
}

// HasScan reports whether the retention time resolved to a scan index.
func (p Point) HasScan() bool {
	return p.ScanIndex != NoIndex
}

// HasMass reports whether the mass resolved to a mass index.
func (p Point) HasMass() bool {
	return p.MassIndex != NoIndex
}

// Class is the outcome of classifying an observation against the grid.
type Class int

const (
	Matched Class = iota
	Missing
	OutOfRange
)

func (c Class) String() string {
	switch c {
	case Matched:
		return "matched"
	case Missing:
		return "missing"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Classes lists every Class in output order.
var Classes = []Class{Matched, Missing, OutOfRange}
