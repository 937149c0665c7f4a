package output

import (
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/grid"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
)

func mappedFeatures(t *testing.T) []*pic.FeatureIndex {
	t.Helper()
	g := grid.Build([]float64{1.0, 2.0}, [][]float64{{100.0, 101.0}, {100.0}})

	a := pic.New("feature-a", g)
	for _, obs := range []pic.Observation{
		{RetentionTime: 1.0, Mass: 100.0, Intensity: 5},
		{RetentionTime: 2.0, Mass: 100.0, Intensity: 5},
		{RetentionTime: 1.0, Mass: 102.0, Intensity: 5},
		{RetentionTime: 3.0, Mass: 100.0, Intensity: 5},
		{RetentionTime: 1.5, Mass: 100.0, Intensity: 5},
	} {
		_, err := a.Push(obs)
		require.NoError(t, err)
	}
	b := pic.New("42", g)
	_, err := b.Push(pic.Observation{RetentionTime: 1.0, Mass: 101.0, Intensity: 1})
	require.NoError(t, err)
	return []*pic.FeatureIndex{a, b}
}

func TestPairOf(t *testing.T) {
	assert.Equal(t, Pair{IndexCoord(3), IndexCoord(4)}, PairOf(pic.Point{ScanIndex: 3, MassIndex: 4}))
	assert.Equal(t, Pair{IndexCoord(3), ValueCoord(99.5)}, PairOf(pic.Point{ScanIndex: 3, MassIndex: pic.NoIndex, Mass: 99.5}))
	assert.Equal(t, Pair{ValueCoord(1.5), ValueCoord(99.5)},
		PairOf(pic.Point{ScanIndex: pic.NoIndex, MassIndex: pic.NoIndex, RetentionTime: 1.5, Mass: 99.5}))
}

func TestCoordString(t *testing.T) {
	assert.Equal(t, "7", IndexCoord(7).String())
	assert.Equal(t, "100.0", ValueCoord(100).String())
	assert.Equal(t, "1.5", ValueCoord(1.5).String())
	assert.Equal(t, "1e-05", ValueCoord(0.00001).String())
	assert.Equal(t, "NaN", ValueCoord(math.NaN()).String())
}

func TestEncodeText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeText(&buf, Collect(mappedFeatures(t), pic.Matched)))
	assert.Equal(t, "ID=feature-a\n0 0\n1 0\nID=42\n0 1\n", buf.String())
}

func TestYAMLRoundTrip(t *testing.T) {
	features := mappedFeatures(t)
	for _, class := range pic.Classes {
		t.Run(class.String(), func(t *testing.T) {
			var buf bytes.Buffer
			doc := Collect(features, class)
			require.NoError(t, EncodeYAML(&buf, doc))

			path := filepath.Join(t.TempDir(), "doc.yml")
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
			got, err := ReadYAML(path)
			require.NoError(t, err)
			assert.Equal(t, doc, got)
		})
	}
}

func TestYAMLKeepsFeatureOrderAndTypes(t *testing.T) {
	doc := Document{
		{ID: "zeta", Pairs: []Pair{{IndexCoord(0), ValueCoord(100)}}},
		{ID: "alpha", Pairs: []Pair{}},
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeYAML(&buf, doc))
	out := buf.String()

	assert.Less(t, bytes.Index(buf.Bytes(), []byte("zeta")), bytes.Index(buf.Bytes(), []byte("alpha")))
	assert.Contains(t, out, "[0, 100.0]")
	assert.Contains(t, out, "alpha: []")
}

func TestWriteAll(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "reference")
	paths, err := WriteAll(base, mappedFeatures(t))
	require.NoError(t, err)
	assert.Equal(t, base+".featurePIC.yml", paths.Matched)
	assert.Equal(t, base+".featurePIC_oor.yml", paths.OutOfRange)
	assert.Equal(t, base+".featurePIC_missing.yml", paths.Missing)
	assert.Equal(t, base+".featurePIC.txt", paths.Text)

	matched, err := ReadYAML(paths.Matched)
	require.NoError(t, err)
	pairs, ok := matched.Get("feature-a")
	require.True(t, ok)
	assert.Equal(t, []Pair{{IndexCoord(0), IndexCoord(0)}, {IndexCoord(1), IndexCoord(0)}}, pairs)

	oor, err := ReadYAML(paths.OutOfRange)
	require.NoError(t, err)
	pairs, _ = oor.Get("feature-a")
	assert.Equal(t, []Pair{{IndexCoord(0), ValueCoord(102)}, {ValueCoord(3), ValueCoord(100)}}, pairs)
	pairs, ok = oor.Get("42")
	require.True(t, ok)
	assert.Empty(t, pairs)

	missing, err := ReadYAML(paths.Missing)
	require.NoError(t, err)
	pairs, _ = missing.Get("feature-a")
	assert.Equal(t, []Pair{{ValueCoord(1.5), ValueCoord(100)}}, pairs)

	text, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Equal(t, "ID=feature-a\n0 0\n1 0\nID=42\n0 1\n", string(text))

	_, err = os.Stat(paths.Text + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestPairJSON(t *testing.T) {
	pairs := []Pair{{IndexCoord(2), IndexCoord(0)}, {ValueCoord(1.5), ValueCoord(100)}}
	data, err := gojson.Marshal(pairs)
	require.NoError(t, err)
	assert.JSONEq(t, `[[2,0],[1.5,100.0]]`, string(data))

	var got []Pair
	require.NoError(t, gojson.Unmarshal(data, &got))
	assert.Equal(t, pairs, got)
}

func TestPairJSONNonFinite(t *testing.T) {
	pairs := []Pair{
		{ValueCoord(math.Inf(1)), ValueCoord(math.Inf(-1))},
		{IndexCoord(1), ValueCoord(math.NaN())},
	}
	data, err := gojson.Marshal(pairs)
	require.NoError(t, err)
	assert.JSONEq(t, `[["+Inf","-Inf"],[1,"NaN"]]`, string(data))

	var got []Pair
	require.NoError(t, gojson.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.True(t, math.IsInf(got[0].First.Value, 1))
	assert.True(t, math.IsInf(got[0].Second.Value, -1))
	assert.Equal(t, IndexCoord(1), got[1].First)
	assert.True(t, math.IsNaN(got[1].Second.Value))
	assert.False(t, got[1].Second.IsIndex)

	var bad Pair
	assert.Error(t, gojson.Unmarshal([]byte(`["12", 2]`), &bad))
}

func TestCollectDuplicateIDs(t *testing.T) {
	g := grid.Build([]float64{1.0, 2.0}, [][]float64{{100.0}, {100.0}})
	first := pic.New("feat", g)
	_, err := first.Push(pic.Observation{RetentionTime: 1.0, Mass: 100.0, Intensity: 1})
	require.NoError(t, err)
	other := pic.New("other", g)
	_, err = other.Push(pic.Observation{RetentionTime: 1.0, Mass: 100.0, Intensity: 1})
	require.NoError(t, err)
	last := pic.New("feat", g)
	_, err = last.Push(pic.Observation{RetentionTime: 2.0, Mass: 100.0, Intensity: 1})
	require.NoError(t, err)

	doc := Collect([]*pic.FeatureIndex{first, other, last}, pic.Matched)
	assert.Equal(t, Document{
		{ID: "feat", Pairs: []Pair{{IndexCoord(1), IndexCoord(0)}}},
		{ID: "other", Pairs: []Pair{{IndexCoord(0), IndexCoord(0)}}},
	}, doc)

	paths, err := WriteAll(filepath.Join(t.TempDir(), "reference"), []*pic.FeatureIndex{first, other, last})
	require.NoError(t, err)
	data, err := os.ReadFile(paths.Matched)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(data, &generic))
	assert.Len(t, generic, 2)

	text, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Equal(t, "ID=feat\n1 0\nID=other\n0 0\n", string(text))
}

func TestReadYAMLRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.yml")
	require.NoError(t, os.WriteFile(path, []byte("feat:\n  - [0, 0]\nfeat:\n  - [1, 0]\n"), 0644))
	_, err := ReadYAML(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `feature "feat" already defined at line 1`)
}

func TestWriteFailureRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.yml")
	failing := errors.New("disk full")

	err := writeFileAtomic(path, func(w io.Writer) error { return failing })
	require.ErrorIs(t, err, failing)
	_, statErr := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0755))
	err = writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "feat: []\n")
		return err
	})
	require.Error(t, err)
	_, statErr = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteReferenceDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.jsona")
	run := spectra.Run{Scans: []spectra.Scan{
		{ScanNumber: 12, RetentionTime: 1.0, Mz: []float64{100.0, 101.5}, Intensity: []float64{3, 4}},
	}}
	require.NoError(t, WriteReferenceDump(path, run))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0: 12\n100.0, 101.5\n3.0, 4.0\n", string(data))
}
