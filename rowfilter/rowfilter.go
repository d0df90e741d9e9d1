// Package rowfilter drops control wells and colorpair rows that the couplex
// estimator cannot handle. It never alters the rows it keeps.
package rowfilter

import (
	"strings"

	"github.com/carbocation/pico/occupancy"
)

// DefaultControlMarkers mark no-template controls by sample name.
var DefaultControlMarkers = []string{"NTC"}

type Reason int

const (
	// ReasonControl drops no-template control wells.
	ReasonControl Reason = iota + 1

	// ReasonZeroPositives drops rows where either single-positive count or
	// the double-positive count is zero.
	ReasonZeroPositives
)

func (r Reason) String() string {
	switch r {
	case ReasonControl:
		return "control well"
	case ReasonZeroPositives:
		return "zero positives"
	}

	return "unknown"
}

// Drop records one removed row and why.
type Drop struct {
	Well       string
	SampleName string
	Colorpair  string
	Reason     Reason
}

// IsControl reports whether sampleName contains any of the markers. Matching
// is case-sensitive.
func IsControl(sampleName string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(sampleName, m) {
			return true
		}
	}

	return false
}

// Check applies the rules in order and returns the first that fails, or 0 if
// the row is kept.
func Check(rec occupancy.Record, markers []string) Reason {
	if IsControl(rec.SampleName, markers) {
		return ReasonControl
	}
	if rec.PositivesAb1 == 0 || rec.PositivesAb2 == 0 || rec.PositivesDouble == 0 {
		return ReasonZeroPositives
	}

	return 0
}

// Apply splits records into those kept and those dropped. A nil markers
// slice uses DefaultControlMarkers.
func Apply(records []occupancy.Record, markers []string) (kept []occupancy.Record, dropped []Drop) {
	if markers == nil {
		markers = DefaultControlMarkers
	}

	kept = make([]occupancy.Record, 0, len(records))
	for _, rec := range records {
		if reason := Check(rec, markers); reason != 0 {
			dropped = append(dropped, Drop{
				Well:       rec.Well,
				SampleName: rec.SampleName,
				Colorpair:  rec.Colorpair,
				Reason:     reason,
			})
			continue
		}
		kept = append(kept, rec)
	}

	return kept, dropped
}
