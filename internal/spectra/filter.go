package spectra

import (
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

// Interval is a closed range [Lo, Hi].
type Interval struct {
	Lo float64
	Hi float64
}

func (iv Interval) Contains(v float64) bool {
	return v >= iv.Lo && v <= iv.Hi
}

// Filter accepts scans inside a retention time window and keeps only the
// peaks that fall in one of its m/z windows.
type Filter struct {
	RT Interval
	Mz []Interval
}

// ParseFilter parses "<rt>:<rt>,<m/z>:<m/z>[,...]".
func ParseFilter(expr string) (Filter, error) {
	parts := strings.Split(expr, ",")
	ranges := make([]Interval, 0, len(parts))
	for _, part := range parts {
		bounds := strings.Split(strings.TrimSpace(part), ":")
		if len(bounds) != 2 {
			return Filter{}, apperrors.Newf(apperrors.ErrInvalidInput, "filter %q: range %q is not of the form lo:hi", expr, part)
		}
		lo, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		if err != nil {
			return Filter{}, apperrors.Newf(apperrors.ErrInvalidInput, "filter %q: %v", expr, err)
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err != nil {
			return Filter{}, apperrors.Newf(apperrors.ErrInvalidInput, "filter %q: %v", expr, err)
		}
		if lo > hi {
			return Filter{}, apperrors.Newf(apperrors.ErrInvalidInput, "filter %q: range %q is empty", expr, part)
		}
		ranges = append(ranges, Interval{Lo: lo, Hi: hi})
	}
	return Filter{RT: ranges[0], Mz: ranges[1:]}, nil
}

// Apply returns the scan restricted to the filter's m/z windows. ok is false
// when the retention time falls outside the filter.
func (f Filter) Apply(s Scan) (Scan, bool) {
	if !f.RT.Contains(s.RetentionTime) {
		return Scan{}, false
	}
	out := Scan{
		ScanNumber:    s.ScanNumber,
		RetentionTime: s.RetentionTime,
		Mz:            make([]float64, 0, len(s.Mz)),
		Intensity:     make([]float64, 0, len(s.Mz)),
	}
	for i, mz := range s.Mz {
		for _, window := range f.Mz {
			if window.Contains(mz) {
				out.Mz = append(out.Mz, mz)
				out.Intensity = append(out.Intensity, s.Intensity[i])
				break
			}
		}
	}
	return out, true
}

// ApplyFilters prepares a reference run. Scans without peaks are dropped.
// With filters, each scan is decided by the first filter whose retention
// time window accepts it, and scans no filter accepts are dropped.
func ApplyFilters(run Run, filters []Filter) Run {
	out := Run{ID: run.ID, Scans: make([]Scan, 0, len(run.Scans))}
	for _, s := range run.Scans {
		if !s.HasPeaks() {
			continue
		}
		if len(filters) == 0 {
			out.Scans = append(out.Scans, s)
			continue
		}
		for _, f := range filters {
			if filtered, ok := f.Apply(s); ok {
				out.Scans = append(out.Scans, filtered)
				break
			}
		}
	}
	return out
}
