package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/pic"
	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
)

// Paths are the files written for one reference run.
type Paths struct {
	Matched    string
	OutOfRange string
	Missing    string
	Text       string
}

// PathsFor derives the output file names from base, the reference path
// without its extension.
func PathsFor(base string) Paths {
	return Paths{
		Matched:    base + ".featurePIC.yml",
		OutOfRange: base + ".featurePIC_oor.yml",
		Missing:    base + ".featurePIC_missing.yml",
		Text:       base + ".featurePIC.txt",
	}
}

// WriteAll writes the three bucket documents and the matched text listing.
func WriteAll(base string, features []*pic.FeatureIndex) (Paths, error) {
	paths := PathsFor(base)
	files := []struct {
		path  string
		class pic.Class
	}{
		{paths.Matched, pic.Matched},
		{paths.OutOfRange, pic.OutOfRange},
		{paths.Missing, pic.Missing},
	}
	for _, file := range files {
		doc := Collect(features, file.class)
		if err := writeFileAtomic(file.path, func(w io.Writer) error {
			return EncodeYAML(w, doc)
		}); err != nil {
			return paths, err
		}
	}
	matched := Collect(features, pic.Matched)
	if err := writeFileAtomic(paths.Text, func(w io.Writer) error {
		return EncodeText(w, matched)
	}); err != nil {
		return paths, err
	}
	return paths, nil
}

// ReadYAML loads a bucket document written by WriteAll.
func ReadYAML(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feature document %s: %w", path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing feature document %s: %w", path, err)
	}
	return doc, nil
}

// WriteReferenceDump writes, per reference scan, "<time>: <scan number>"
// followed by its comma-separated masses and intensities.
func WriteReferenceDump(path string, run spectra.Run) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		for _, s := range run.Scans {
			if _, err := fmt.Fprintf(w, "%s: %d\n%s\n%s\n",
				formatFloat(s.RetentionTime), s.ScanNumber, joinFloats(s.Mz), joinFloats(s.Intensity)); err != nil {
				return err
			}
		}
		return nil
	})
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ", ")
}

// writeFileAtomic writes to a .tmp file first and renames on success. The
// temp file is removed on any failure.
func writeFileAtomic(path string, fn func(w io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", path, err)
	}
	return nil
}
