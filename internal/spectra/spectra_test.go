package spectra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

func sampleRun() Run {
	return Run{
		ID: "sample",
		Scans: []Scan{
			{ScanNumber: 1, RetentionTime: 1.0, Mz: []float64{100.0, 150.0, 200.0}, Intensity: []float64{1, 2, 3}},
			{ScanNumber: 2, RetentionTime: 2.0},
			{ScanNumber: 3, RetentionTime: 3.0, Mz: []float64{120.0, 210.0}, Intensity: []float64{4, 5}},
			{ScanNumber: 4, RetentionTime: 9.0, Mz: []float64{100.0}, Intensity: []float64{6}},
		},
	}
}

func TestRunValidate(t *testing.T) {
	require.NoError(t, sampleRun().Validate())

	bad := Run{ID: "bad", Scans: []Scan{{RetentionTime: 1, Mz: []float64{1, 2}, Intensity: []float64{1}}}}
	err := bad.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRunAccessors(t *testing.T) {
	run := sampleRun()
	assert.Equal(t, []float64{1, 2, 3, 9}, run.Times())
	assert.Len(t, run.MassLists(), 4)
	assert.Nil(t, run.MassLists()[1])
	assert.Equal(t, 6, run.PeakCount())
}

func TestScanNumber(t *testing.T) {
	assert.Equal(t, 42, ScanNumber("controllerType=0 controllerNumber=1 scan=42"))
	assert.Equal(t, 7, ScanNumber("scan=7"))
	assert.Equal(t, 0, ScanNumber("index=3"))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("1.5:3, 100:150,200:250")
	require.NoError(t, err)
	assert.Equal(t, Interval{Lo: 1.5, Hi: 3}, f.RT)
	assert.Equal(t, []Interval{{Lo: 100, Hi: 150}, {Lo: 200, Hi: 250}}, f.Mz)

	for _, expr := range []string{"", "1", "a:2", "1:b", "3:1", "1:2,5"} {
		_, err := ParseFilter(expr)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, "expr %q", expr)
	}
}

func TestApplyFilters(t *testing.T) {
	run := sampleRun()

	t.Run("no filters drops scans without peaks", func(t *testing.T) {
		out := ApplyFilters(run, nil)
		require.Len(t, out.Scans, 3)
		assert.Equal(t, []int{1, 3, 4}, []int{out.Scans[0].ScanNumber, out.Scans[1].ScanNumber, out.Scans[2].ScanNumber})
	})

	t.Run("first accepting filter decides", func(t *testing.T) {
		first, err := ParseFilter("0:3,100:160")
		require.NoError(t, err)
		second, err := ParseFilter("0:10,200:220")
		require.NoError(t, err)

		out := ApplyFilters(run, []Filter{first, second})
		require.Len(t, out.Scans, 3)
		assert.Equal(t, []float64{100.0, 150.0}, out.Scans[0].Mz)
		assert.Equal(t, []float64{1, 2}, out.Scans[0].Intensity)
		assert.Equal(t, []float64{120.0}, out.Scans[1].Mz)
		assert.Empty(t, out.Scans[2].Mz)
		assert.Equal(t, 9.0, out.Scans[2].RetentionTime)
	})

	t.Run("scans outside every window are dropped", func(t *testing.T) {
		f, err := ParseFilter("2.5:3.5,0:1000")
		require.NoError(t, err)
		out := ApplyFilters(run, []Filter{f})
		require.Len(t, out.Scans, 1)
		assert.Equal(t, 3, out.Scans[0].ScanNumber)
	})
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run.json", "run.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Write(path, sampleRun()))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, sampleRun(), got)
		})
	}
}

func TestWriteFailureRemovesTempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0755))

	require.Error(t, Write(path, sampleRun()))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadDefaultsID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feature_12.json")
	body := `{"scans":[{"retentionTime":1.5,"mz":[100.0],"intensity":[5]},{"retentionTime":2.0,"mz":null}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	run, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "feature_12", run.ID)
	require.Len(t, run.Scans, 2)
	assert.False(t, run.Scans[1].HasPeaks())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scans": [`), 0644))
	_, err = Load(path)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBaseNameAndTrimExt(t *testing.T) {
	assert.Equal(t, "ref", BaseName("/data/ref.json"))
	assert.Equal(t, "ref", BaseName("/data/ref.json.gz"))
	assert.Equal(t, "/data/ref", TrimExt("/data/ref.json.gz"))
	assert.Equal(t, "ref", TrimExt("ref.json"))
}
