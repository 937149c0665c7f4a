package spectra

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Load reads a decoded run document from path. Gzip-compressed documents are
// detected by their magic bytes. When the document carries no id, the file
// base name without extensions is used.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Run{}, apperrors.Newf(apperrors.ErrNotFound, "run file %s", path)
		}
		return Run{}, fmt.Errorf("opening run file %s: %w", path, err)
	}
	defer f.Close()

	run, err := Decode(f)
	if err != nil {
		return Run{}, fmt.Errorf("decoding run file %s: %w", path, err)
	}
	if run.ID == "" {
		run.ID = BaseName(path)
	}
	if err := run.Validate(); err != nil {
		return Run{}, err
	}
	return run, nil
}

// Decode reads one run document from r, transparently gunzipping it.
func Decode(r io.Reader) (Run, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(len(gzipMagic)); err == nil && magic[0] == gzipMagic[0] && magic[1] == gzipMagic[1] {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return Run{}, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		src = zr
	}
	var run Run
	if err := gojson.NewDecoder(src).Decode(&run); err != nil {
		return Run{}, apperrors.Newf(apperrors.ErrInvalidInput, "malformed run document: %v", err)
	}
	return run, nil
}

// Write atomically stores run at path, compressing it when path ends in
// ".gz". It writes to a .tmp file first and renames on success; the temp
// file is removed on any failure.
func Write(path string, run Run) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating run directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp run file: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}
	if err := gojson.NewEncoder(w).Encode(run); err != nil {
		return fmt.Errorf("encoding run %q: %w", run.ID, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing run file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing run file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming run file: %w", err)
	}
	return nil
}

// BaseName strips the directory, a trailing ".gz" and the last remaining
// extension from path.
func BaseName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TrimExt strips a trailing ".gz" and the last remaining extension, keeping
// the directory.
func TrimExt(path string) string {
	p := strings.TrimSuffix(path, ".gz")
	return strings.TrimSuffix(p, filepath.Ext(p))
}
