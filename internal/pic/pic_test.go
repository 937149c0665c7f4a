package pic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"
)

// referenceGrid has times [1.0, 2.0], scan 0 masses [100.0, 101.0] and
// scan 1 masses [100.0].
func referenceGrid() *grid.Grid {
	return grid.Build(
		[]float64{1.0, 2.0},
		[][]float64{{100.0, 101.0}, {100.0}},
	)
}

func TestClassify(t *testing.T) {
	g := referenceGrid()
	tests := []struct {
		name      string
		obs       Observation
		wantClass Class
		wantScan  int
		wantMass  int
	}{
		{"exact grid point", Observation{1.0, 100.0, 5}, Matched, 0, 0},
		{"second mass of scan 0", Observation{1.0, 101.0, 5}, Matched, 0, 1},
		{"scan 1", Observation{2.0, 100.0, 5}, Matched, 1, 0},
		{"mass inside scan range", Observation{1.0, 100.5, 5}, Missing, 0, NoIndex},
		{"mass above scan range", Observation{1.0, 102.0, 5}, OutOfRange, 0, NoIndex},
		{"mass below scan range", Observation{2.0, 99.0, 5}, OutOfRange, 1, NoIndex},
		{"time after range", Observation{3.0, 100.0, 5}, OutOfRange, NoIndex, NoIndex},
		{"time before range", Observation{0.5, 100.0, 5}, OutOfRange, NoIndex, NoIndex},
		{"time between scans", Observation{1.5, 100.0, 5}, Missing, NoIndex, NoIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, p := Classify(g, tt.obs)
			assert.Equal(t, tt.wantClass, class)
			assert.Equal(t, tt.wantScan, p.ScanIndex)
			assert.Equal(t, tt.wantMass, p.MassIndex)
			assert.Equal(t, tt.obs.RetentionTime, p.RetentionTime)
			assert.Equal(t, tt.obs.Mass, p.Mass)
			assert.Equal(t, tt.obs.Intensity, p.Intensity)
		})
	}
}

func TestClassifyEveryGridPointMatches(t *testing.T) {
	times := []float64{0.25, 0.5, 0.75, 1.0}
	masses := [][]float64{{10, 20, 30}, {15.5}, {}, {1e3, 2e3}}
	g := grid.Build(times, masses)
	for i, rt := range times {
		for j, m := range masses[i] {
			class, p := Classify(g, Observation{RetentionTime: rt, Mass: m, Intensity: 1})
			require.Equal(t, Matched, class, "rt %v mass %v", rt, m)
			assert.Equal(t, i, p.ScanIndex)
			assert.Equal(t, j, p.MassIndex)
		}
	}
}

func TestClassifyEmptyScanIsOutOfRange(t *testing.T) {
	g := grid.Build([]float64{1.0, 2.0}, [][]float64{{100.0}, {}})
	class, p := Classify(g, Observation{2.0, 100.0, 1})
	assert.Equal(t, OutOfRange, class)
	assert.Equal(t, 1, p.ScanIndex)
}

func TestClassifyEmptyReference(t *testing.T) {
	g := grid.Build(nil, nil)
	for _, obs := range []Observation{{0, 0, 1}, {1.0, 100.0, 5}} {
		class, _ := Classify(g, obs)
		assert.Equal(t, OutOfRange, class)
	}
}

func TestFeatureIndexPush(t *testing.T) {
	f := New("feature-a", referenceGrid())
	for _, obs := range []Observation{
		{1.0, 100.0, 5},
		{1.0, 102.0, 5},
		{3.0, 100.0, 5},
		{1.5, 100.0, 5},
	} {
		_, err := f.Push(obs)
		require.NoError(t, err)
	}

	assert.False(t, f.Discarded())
	assert.Equal(t, 1, f.Len(Matched))
	assert.Equal(t, 1, f.Len(Missing))
	assert.Equal(t, 2, f.Len(OutOfRange))

	assert.Equal(t, []Point{{ScanIndex: 0, MassIndex: 0, RetentionTime: 1.0, Mass: 100.0, Intensity: 5}}, f.Matched())
	assert.Equal(t, []Point{{ScanIndex: NoIndex, MassIndex: NoIndex, RetentionTime: 1.5, Mass: 100.0, Intensity: 5}}, f.Missing())
	oor := f.OutOfRange()
	assert.Equal(t, 0, oor[0].ScanIndex)
	assert.Equal(t, NoIndex, oor[1].ScanIndex)
	assert.Equal(t, 3.0, oor[1].RetentionTime)

	assert.True(t, f.Finalized())
	_, err := f.Push(Observation{1.0, 100.0, 5})
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestFeatureIndexDiscarded(t *testing.T) {
	f := New("empty", referenceGrid())
	_, err := f.Push(Observation{9.0, 100.0, 1})
	require.NoError(t, err)
	assert.True(t, f.Discarded())
}

func TestPointsReturnsCopy(t *testing.T) {
	f := withMatched(Point{ScanIndex: 0, Mass: 1, Intensity: 1})
	pts := f.Matched()
	pts[0].Mass = 99
	assert.Equal(t, 1.0, f.Matched()[0].Mass)
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "matched", Matched.String())
	assert.Equal(t, "missing", Missing.String())
	assert.Equal(t, "out_of_range", OutOfRange.String())
	assert.Equal(t, "unknown", Class(9).String())
}

func BenchmarkFeatureIndexPush(b *testing.B) {
	times := make([]float64, 1000)
	masses := make([][]float64, len(times))
	for i := range times {
		times[i] = float64(i)
		masses[i] = []float64{100, 200, 300}
	}
	g := grid.Build(times, masses)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := New("bench", g)
		for j := 0; j < 1000; j++ {
			_, _ = f.Push(Observation{RetentionTime: float64(j), Mass: 200, Intensity: 1})
		}
	}
}
