package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
)

func TestBuild(t *testing.T) {
	g := Build(
		[]float64{1.0, 2.0, 0.5},
		[][]float64{{100.0, 101.0}, {100.0}, {}},
	)

	assert.Equal(t, 3, g.Scans())
	assert.False(t, g.Empty())
	assert.Equal(t, Range{Min: 0.5, Max: 2.0, Defined: true}, g.TimeRange())

	for rt, want := range map[float64]int{1.0: 0, 2.0: 1, 0.5: 2} {
		got, ok := g.ScanIndex(rt)
		require.True(t, ok, "rt %v", rt)
		assert.Equal(t, want, got)
	}
	_, ok := g.ScanIndex(1.5)
	assert.False(t, ok)

	j, ok := g.MassIndex(0, 101.0)
	require.True(t, ok)
	assert.Equal(t, 1, j)
	_, ok = g.MassIndex(1, 101.0)
	assert.False(t, ok)
	_, ok = g.MassIndex(7, 100.0)
	assert.False(t, ok)

	assert.Equal(t, Range{Min: 100, Max: 101, Defined: true}, g.MassRange(0))
	assert.Equal(t, Range{Min: 100, Max: 100, Defined: true}, g.MassRange(1))
	assert.False(t, g.MassRange(2).Defined)
	assert.False(t, g.MassRange(-1).Defined)
}

func TestBuildDuplicateTimesLastWins(t *testing.T) {
	g := Build([]float64{1.0, 1.0}, [][]float64{{10.0}, {20.0}})
	i, ok := g.ScanIndex(1.0)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = g.MassIndex(i, 10.0)
	assert.False(t, ok)
}

func TestBuildShortMassLists(t *testing.T) {
	g := Build([]float64{1.0, 2.0}, [][]float64{{10.0}})
	assert.Equal(t, 2, g.Scans())
	assert.False(t, g.MassRange(1).Defined)
}

func TestEmptyGrid(t *testing.T) {
	g := Build(nil, nil)
	assert.True(t, g.Empty())
	assert.False(t, g.TimeRange().Contains(0))
	assert.Equal(t, 0, g.Scans())
}

func TestExactBitKeys(t *testing.T) {
	a, b := 0.1, 0.2
	sum := a + b
	g := Build([]float64{0.0}, [][]float64{{sum}})

	_, ok := g.ScanIndex(math.Copysign(0, -1))
	assert.False(t, ok, "negative zero must not match positive zero")

	_, ok = g.MassIndex(0, 0.3)
	assert.False(t, ok, "0.3 differs from 0.1+0.2 in its bit pattern")
	_, ok = g.MassIndex(0, sum)
	assert.True(t, ok)
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 1, Max: 2, Defined: true}
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(2.0000001))
	assert.False(t, r.Contains(math.NaN()))
	assert.False(t, Range{}.Contains(0))
}

func TestFingerprint(t *testing.T) {
	run := spectra.Run{Scans: []spectra.Scan{
		{RetentionTime: 1.0, Mz: []float64{100.0}, Intensity: []float64{1}},
		{RetentionTime: 2.0, Mz: []float64{200.0}, Intensity: []float64{1}},
	}}
	a := FromRun(run)
	b := Build([]float64{1.0, 2.0}, [][]float64{{100.0}, {200.0}})
	c := Build([]float64{1.0, 2.0}, [][]float64{{100.0, 200.0}, {}})

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)
}

func BenchmarkBuild(b *testing.B) {
	times := make([]float64, 2000)
	masses := make([][]float64, len(times))
	for i := range times {
		times[i] = float64(i) * 0.37
		masses[i] = make([]float64, 300)
		for j := range masses[i] {
			masses[i][j] = 100 + float64(j)*1.7
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(times, masses)
	}
}
