// Package spectra holds decoded spectral runs: an ordered list of scans, each
// with a retention time and parallel m/z and intensity lists.
package spectra

import (
	"regexp"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

type Scan struct {
	ScanNumber    int       `json:"scanNumber,omitempty"`
	RetentionTime float64   `json:"retentionTime"`
	Mz            []float64 `json:"mz"`
	Intensity     []float64 `json:"intensity"`
}

// HasPeaks reports whether the scan carries an m/z list. Scans without one
// produce no observations.
func (s Scan) HasPeaks() bool {
	return s.Mz != nil
}

type Run struct {
	ID    string `json:"id"`
	Scans []Scan `json:"scans"`
}

// Validate checks that every scan with an m/z list has an intensity list of
// the same length.
func (r Run) Validate() error {
	for i, s := range r.Scans {
		if s.Mz == nil {
			continue
		}
		if len(s.Intensity) != len(s.Mz) {
			return apperrors.Newf(apperrors.ErrInvalidInput,
				"run %q scan %d: %d m/z values but %d intensities", r.ID, i, len(s.Mz), len(s.Intensity))
		}
	}
	return nil
}

func (r Run) Times() []float64 {
	times := make([]float64, len(r.Scans))
	for i, s := range r.Scans {
		times[i] = s.RetentionTime
	}
	return times
}

func (r Run) MassLists() [][]float64 {
	masses := make([][]float64, len(r.Scans))
	for i, s := range r.Scans {
		masses[i] = s.Mz
	}
	return masses
}

// PeakCount returns the number of (m/z, intensity) observations in the run.
func (r Run) PeakCount() int {
	n := 0
	for _, s := range r.Scans {
		n += len(s.Mz)
	}
	return n
}

var scanNumberPattern = regexp.MustCompile(`scan=(\d+)`)

// ScanNumber extracts the scan number from a native spectrum id such as
// "controllerType=0 controllerNumber=1 scan=42". It returns 0 when the id
// carries none.
func ScanNumber(id string) int {
	m := scanNumberPattern.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
