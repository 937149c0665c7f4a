// Package grid builds the reference coordinate grid of a run: retention time
// to scan index and, per scan, m/z to mass index. Keys match on the exact
// bit pattern of the float64 value.
package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
)

// Range is a closed interval. A zero Range is undefined and contains nothing.
type Range struct {
	Min     float64
	Max     float64
	Defined bool
}

// Contains reports whether v lies in [Min, Max]. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return r.Defined && v >= r.Min && v <= r.Max
}

func rangeOf(values []float64) Range {
	if len(values) == 0 {
		return Range{}
	}
	r := Range{Min: values[0], Max: values[0], Defined: true}
	for _, v := range values[1:] {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	return r
}

// Grid is immutable once built and safe for concurrent readers.
type Grid struct {
	scanByTime  map[uint64]int
	massByMass  []map[uint64]int
	timeRange   Range
	massRanges  []Range
	fingerprint string
}

// Build indexes a reference run given its ordered retention times and the
// index-aligned per-scan mass lists. A repeated retention time maps to its
// last scan. Scans without a mass list are treated as empty.
func Build(times []float64, masses [][]float64) *Grid {
	g := &Grid{
		scanByTime: make(map[uint64]int, len(times)),
		massByMass: make([]map[uint64]int, len(times)),
		timeRange:  rangeOf(times),
		massRanges: make([]Range, len(times)),
	}
	h := sha256.New()
	var buf [8]byte
	for i, t := range times {
		g.scanByTime[math.Float64bits(t)] = i

		var scan []float64
		if i < len(masses) {
			scan = masses[i]
		}
		byMass := make(map[uint64]int, len(scan))
		for j, m := range scan {
			byMass[math.Float64bits(m)] = j
		}
		g.massByMass[i] = byMass
		g.massRanges[i] = rangeOf(scan)

		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(t))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(len(scan)))
		h.Write(buf[:])
		for _, m := range scan {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(m))
			h.Write(buf[:])
		}
	}
	g.fingerprint = hex.EncodeToString(h.Sum(nil)[:16])
	return g
}

// FromRun builds a grid from a decoded reference run.
func FromRun(run spectra.Run) *Grid {
	return Build(run.Times(), run.MassLists())
}

// ScanIndex returns the scan index whose retention time is exactly rt.
func (g *Grid) ScanIndex(rt float64) (int, bool) {
	i, ok := g.scanByTime[math.Float64bits(rt)]
	return i, ok
}

// MassIndex returns the index of mass within scan, matching exactly.
func (g *Grid) MassIndex(scan int, mass float64) (int, bool) {
	if scan < 0 || scan >= len(g.massByMass) {
		return 0, false
	}
	j, ok := g.massByMass[scan][math.Float64bits(mass)]
	return j, ok
}

func (g *Grid) TimeRange() Range {
	return g.timeRange
}

// MassRange returns the m/z range of scan, undefined for an empty or unknown
// scan.
func (g *Grid) MassRange(scan int) Range {
	if scan < 0 || scan >= len(g.massRanges) {
		return Range{}
	}
	return g.massRanges[scan]
}

// Scans returns the number of scans the grid was built from.
func (g *Grid) Scans() int {
	return len(g.massByMass)
}

// Empty reports whether the grid has no retention times; every observation
// falls outside it.
func (g *Grid) Empty() bool {
	return !g.timeRange.Defined
}

// Fingerprint identifies the grid's coordinates. Two grids built from the
// same times and masses share a fingerprint.
func (g *Grid) Fingerprint() string {
	return g.fingerprint
}
