// Package couplex estimates how many partitions hold a true couplex, two
// antibody conjugates bound to the same target, as opposed to two free
// antibodies that landed in the same partition by chance.
//
// All integer quantities are rounded half to even.
package couplex

import (
	"errors"
	"fmt"
	"math"

	"github.com/BenLubar/memoize"
	"gopkg.in/guregu/null.v3"
)

var (
	// ErrPrecondition is returned when a row without double positives reaches
	// the estimator; such rows must be removed beforehand.
	ErrPrecondition = errors.New("estimator requires at least one double-positive partition")

	// ErrNonFinite signals an intermediate value that is NaN or infinite.
	ErrNonFinite = errors.New("non-finite intermediate value")
)

// Input holds one colorpair row as seen by the estimator.
// PositivesAb1 and PositivesAb2 are single-positive counts.
type Input struct {
	Partitions      int64
	PositivesAb1    int64
	PositivesAb2    int64
	PositivesDouble int64

	CycledVolume    float64    // µL actually partitioned (volume per well)
	MastermixVolume null.Float // µL; null when the plate type is unknown
}

// Candidate is the model's prediction for c couplex-positive partitions.
type Candidate struct {
	C       int64
	Random  int64 // chance co-encapsulation of free A and free B
	Overlap int64 // couplex and a chance pair in the same partition
	Calc    int64 // predicted double positives, Random + C - Overlap
	Diff    int64 // squared distance to the observed double positives
}

// Evaluate scores candidate c. totalA and totalB count every partition
// positive for each antibody, double positives included.
func Evaluate(n, totalA, totalB, observedDouble, c int64) Candidate {
	a := totalA - c
	b := totalB - c

	random := int64(math.RoundToEven(float64(a*b) / float64(n)))
	overlap := int64(math.RoundToEven(float64(a*b*c) / float64(n*n)))
	calc := random + c - overlap

	// Both terms are already integral, so the square needs no rounding.
	d := observedDouble - calc

	return Candidate{
		C:       c,
		Random:  random,
		Overlap: overlap,
		Calc:    calc,
		Diff:    d * d,
	}
}

// search scans c over [0, observedDouble) and keeps the first candidate with
// the smallest Diff.
func search(n, totalA, totalB, observedDouble int64) Candidate {
	best := Evaluate(n, totalA, totalB, observedDouble, 0)
	for c := int64(1); c < observedDouble; c++ {
		if cand := Evaluate(n, totalA, totalB, observedDouble, c); cand.Diff < best.Diff {
			best = cand
		}
	}

	return best
}

// Replicate wells frequently share identical counts. Entries are never
// evicted.
var memoizedSearch = memoize.Memoize(search)

// Search returns the best candidate for the given totals. It is safe to
// call from concurrent goroutines. Results are cached for the lifetime of
// the process, one entry per distinct set of totals.
func Search(n, totalA, totalB, observedDouble int64) Candidate {
	return memoizedSearch.(func(int64, int64, int64, int64) Candidate)(n, totalA, totalB, observedDouble)
}

// Estimate is the per-row result appended to the output table.
type Estimate struct {
	CouplexPositives   int64
	RandomPositives    int64
	RcoverlapPositives int64
	DiffToObs          int64

	// CouplexesRaw is the Poisson back-calculation before volume correction.
	CouplexesRaw int64
	Couplexes    int64

	// Uncorrected is set when the mastermix volume was unknown and Couplexes
	// equals CouplexesRaw.
	Uncorrected bool
}

// Absolute converts c positive partitions out of n into the expected
// number of targets under Poisson loading: n * (ln n - ln(n - c)).
func Absolute(n, c int64) (float64, error) {
	v := float64(n) * (math.Log(float64(n)) - math.Log(float64(n-c)))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("n=%d c=%d: %w", n, c, ErrNonFinite)
	}

	return v, nil
}

// Run estimates one row.
func Run(in Input) (Estimate, error) {
	if in.PositivesDouble <= 0 {
		return Estimate{}, ErrPrecondition
	}
	if in.Partitions <= 0 {
		return Estimate{}, fmt.Errorf("partitions must be positive, got %d", in.Partitions)
	}

	best := Search(
		in.Partitions,
		in.PositivesAb1+in.PositivesDouble,
		in.PositivesAb2+in.PositivesDouble,
		in.PositivesDouble,
	)

	absolute, err := Absolute(in.Partitions, best.C)
	if err != nil {
		return Estimate{}, err
	}

	out := Estimate{
		CouplexPositives:   best.C,
		RandomPositives:    best.Random,
		RcoverlapPositives: best.Overlap,
		DiffToObs:          best.Diff,
		CouplexesRaw:       int64(math.RoundToEven(absolute)),
	}

	if !in.MastermixVolume.Valid {
		out.Couplexes = out.CouplexesRaw
		out.Uncorrected = true
		return out, nil
	}

	// Volumes are compared in liters.
	cycled := in.CycledVolume * 1e-6
	correction := in.MastermixVolume.Float64 * 1e-6 / cycled
	corrected := float64(out.CouplexesRaw) * correction
	if math.IsNaN(corrected) || math.IsInf(corrected, 0) {
		return Estimate{}, fmt.Errorf("volume correction %v/%v: %w", in.MastermixVolume.Float64, in.CycledVolume, ErrNonFinite)
	}
	out.Couplexes = int64(math.RoundToEven(corrected))

	return out, nil
}
