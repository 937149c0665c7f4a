package pic

import "github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"

// FeatureIndex accumulates the classified points of one feature. It starts
// accumulating; the first refinement or read finalizes it, after which Push
// fails. A FeatureIndex is not safe for concurrent use, the grid it reads is.
type FeatureIndex struct {
	ID         string
	grid       *grid.Grid
	matched    []Point
	missing    []Point
	outOfRange []Point
	finalized  bool
}

func New(id string, g *grid.Grid) *FeatureIndex {
	return &FeatureIndex{
		ID:   id,
		grid: g,
	}
}

// Push classifies obs and appends it to exactly one bucket.
func (f *FeatureIndex) Push(obs Observation) (Class, error) {
	if f.finalized {
		return -1, ErrFinalized
	}
	class, p := Classify(f.grid, obs)
	switch class {
	case Matched:
		f.matched = append(f.matched, p)
	case Missing:
		f.missing = append(f.missing, p)
	default:
		f.outOfRange = append(f.outOfRange, p)
	}
	return class, nil
}

// Finalize ends the accumulating phase. It is idempotent.
func (f *FeatureIndex) Finalize() {
	f.finalized = true
}

func (f *FeatureIndex) Finalized() bool {
	return f.finalized
}

// Points returns a copy of the bucket for class.
func (f *FeatureIndex) Points(class Class) []Point {
	f.Finalize()
	src := f.bucket(class)
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

func (f *FeatureIndex) Matched() []Point    { return f.Points(Matched) }
func (f *FeatureIndex) Missing() []Point    { return f.Points(Missing) }
func (f *FeatureIndex) OutOfRange() []Point { return f.Points(OutOfRange) }

// Len returns the size of the bucket for class.
func (f *FeatureIndex) Len(class Class) int {
	return len(f.bucket(class))
}

// Discarded reports whether the feature has no matched points. Such features
// are left out of every output.
func (f *FeatureIndex) Discarded() bool {
	return len(f.matched) == 0
}

func (f *FeatureIndex) bucket(class Class) []Point {
	switch class {
	case Matched:
		return f.matched
	case Missing:
		return f.missing
	default:
		return f.outOfRange
	}
}
