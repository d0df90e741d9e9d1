// Package occupancy attaches volumes and Poisson occupancy (lambda) to
// colorpair records.
package occupancy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/pico/colorpair"
	"gopkg.in/guregu/null.v3"
)

// ErrSaturated is returned when an antibody is positive in every valid
// partition, which leaves lambda undefined.
var ErrSaturated = errors.New("saturated occupancy")

// RowError excludes a single colorpair row from the output.
type RowError struct {
	Well      string
	Colorpair string
	Err       error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("well %s colorpair %s: %s", e.Well, e.Colorpair, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// UnknownPlateMessage accompanies every unknown-plate warning.
const UnknownPlateMessage = "mastermix volume unknown for this plate type; couplexes are not corrected for dead volume (dead_volume = mastermix_volume - volume_per_well)"

// Warning is a non-fatal condition shared by all rows of the listed wells.
type Warning struct {
	PlateType string
	Wells     []string
	Message   string
}

// Record is a colorpair record with volumes and occupancy attached.
// MastermixVolume and DeadVolume are null when the plate type is unknown.
type Record struct {
	colorpair.Record

	MastermixVolume null.Float
	DeadVolume      null.Float

	LambdaAb1 float64
	LambdaAb2 float64
}

// VolumeCorrected reports whether couplexes can be corrected for dead
// volume.
func (r Record) VolumeCorrected() bool {
	return r.MastermixVolume.Valid
}

// Lambda is the mean copies per partition implied by positives out of valid
// partitions: ln(valid) - ln(valid - positives).
func Lambda(valid, positives int64) (float64, error) {
	if valid <= 0 {
		return 0, fmt.Errorf("valid partitions must be positive, got %d", valid)
	}
	if valid-positives <= 0 {
		return 0, ErrSaturated
	}

	return math.Log(float64(valid)) - math.Log(float64(valid-positives)), nil
}

// Annotate computes volumes and both lambdas for one record. The total
// positives of each antibody include the double positives, since
// PositivesAb1 and PositivesAb2 count single positives only.
func Annotate(rec colorpair.Record, plates []Plate) (Record, error) {
	out := Record{Record: rec}

	out.MastermixVolume = LookupMastermix(plates, rec.PlateType)
	if out.MastermixVolume.Valid {
		out.DeadVolume = null.FloatFrom(out.MastermixVolume.Float64 - rec.VolumePerWell)
	}

	var err error
	if out.LambdaAb1, err = Lambda(rec.ValidPartitions, rec.PositivesAb1+rec.PositivesDouble); err != nil {
		return Record{}, &RowError{Well: rec.Well, Colorpair: rec.Colorpair, Err: fmt.Errorf("%s: %w", rec.Ab1, err)}
	}
	if out.LambdaAb2, err = Lambda(rec.ValidPartitions, rec.PositivesAb2+rec.PositivesDouble); err != nil {
		return Record{}, &RowError{Well: rec.Well, Colorpair: rec.Colorpair, Err: fmt.Errorf("%s: %w", rec.Ab2, err)}
	}

	return out, nil
}

// AnnotateAll annotates every record. Rows that cannot be annotated are
// returned in rejected instead of out; unknown plate types produce one
// warning per plate type.
func AnnotateAll(records []colorpair.Record, plates []Plate) (out []Record, warnings []Warning, rejected []*RowError) {
	out = make([]Record, 0, len(records))
	unknown := make(map[string]map[string]struct{})

	for _, rec := range records {
		annotated, err := Annotate(rec, plates)
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				rowErr = &RowError{Well: rec.Well, Colorpair: rec.Colorpair, Err: err}
			}
			rejected = append(rejected, rowErr)
			continue
		}

		if !annotated.VolumeCorrected() {
			wells, exists := unknown[rec.PlateType]
			if !exists {
				wells = make(map[string]struct{})
				unknown[rec.PlateType] = wells
			}
			wells[rec.Well] = struct{}{}
		}

		out = append(out, annotated)
	}

	for plateType, wellSet := range unknown {
		wells := make([]string, 0, len(wellSet))
		for w := range wellSet {
			wells = append(wells, w)
		}
		sort.Strings(wells)
		warnings = append(warnings, Warning{PlateType: plateType, Wells: wells, Message: UnknownPlateMessage})
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].PlateType < warnings[j].PlateType })

	return out, warnings, rejected
}
