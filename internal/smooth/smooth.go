// Package smooth extracts a chromatogram from a run and smooths it with a
// sliding median.
package smooth

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/featurepic/internal/spectra"
	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

// DefaultPoints is the default median window width.
const DefaultPoints = 29

// Type selects a smoothing algorithm.
type Type string

const (
	TypeMedian Type = "median"
	TypeNone   Type = "none"
)

// ParseType accepts "median" and "none".
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeMedian, TypeNone:
		return Type(s), nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, "unsupported smoother type %q (median|none)", s)
	}
}

// Series is an x/y curve. X and Y have equal length.
type Series struct {
	X []float64
	Y []float64
}

func (s Series) Len() int { return len(s.X) }

// Chromatogram returns (retention time, first intensity) for every scan that
// carries an m/z list. A scan with an empty intensity list contributes 0.
func Chromatogram(run spectra.Run) Series {
	var s Series
	for _, scan := range run.Scans {
		if !scan.HasPeaks() {
			continue
		}
		y := 0.0
		if len(scan.Intensity) > 0 {
			y = scan.Intensity[0]
		}
		s.X = append(s.X, scan.RetentionTime)
		s.Y = append(s.Y, y)
	}
	return s
}

// Median slides a window of points consecutive samples over s. Each full
// window contributes its middle x and the upper median of its y values, so
// the result has s.Len()-points+1 samples, or none when s is shorter than
// the window.
func Median(s Series, points int) (Series, error) {
	if points < 1 || points%2 == 0 {
		return Series{}, apperrors.Newf(apperrors.ErrInvalidInput, "median window must be a positive odd number, got %d", points)
	}
	n := s.Len() - points + 1
	if n <= 0 {
		return Series{X: []float64{}, Y: []float64{}}, nil
	}
	out := Series{X: make([]float64, n), Y: make([]float64, n)}
	window := make([]float64, points)
	for i := 0; i < n; i++ {
		copy(window, s.Y[i:i+points])
		slices.Sort(window)
		out.X[i] = s.X[i+points/2]
		out.Y[i] = window[points/2]
	}
	return out, nil
}

// Apply runs the smoother selected by t.
func Apply(t Type, s Series, points int) (Series, error) {
	switch t {
	case TypeNone:
		return s, nil
	case TypeMedian:
		return Median(s, points)
	default:
		return Series{}, apperrors.Newf(apperrors.ErrInvalidInput, "unsupported smoother type %q", t)
	}
}

// Write emits one "<x> <y>" line per sample.
func Write(w io.Writer, s Series) error {
	bw := bufio.NewWriter(w)
	for i := range s.X {
		bw.WriteString(strconv.FormatFloat(s.X[i], 'g', -1, 64))
		bw.WriteByte(' ')
		bw.WriteString(strconv.FormatFloat(s.Y[i], 'g', -1, 64))
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing series: %w", err)
	}
	return nil
}
