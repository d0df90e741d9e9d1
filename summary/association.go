package summary

import (
	"math"
	"sort"

	"github.com/carbocation/pico/couplex"
	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/tokenme/probab/dst"
)

// Association tests whether the two antibodies of a colorpair land in the
// same partitions more often than their occupancies predict. The 2x2 table
// is laid out as:
//
//	double  ab1
//	ab2     none
type Association struct {
	Group      string `csv:"group"`
	SampleName string `csv:"sample_name"`
	Well       string `csv:"well"`
	Colorpair  string `csv:"colorpair"`
	Antibodies string `csv:"antibodies"`

	PositivesDouble int64 `csv:"positives_double"`
	PositivesAb1    int64 `csv:"positives_ab1"`
	PositivesAb2    int64 `csv:"positives_ab2"`
	PositivesNone   int64 `csv:"positives_none"`

	// OddsRatio adds 0.5 to every cell when any off-diagonal cell is 0.
	OddsRatio  float64 `csv:"odds_ratio"`
	ChiSquare  float64 `csv:"chi_square"`
	ChiSquareP float64 `csv:"chi_square_p"`
	FisherP    float64 `csv:"fisher_p"`
}

// Associations computes one association per result, sorted by group, sample,
// colorpair and well.
func Associations(results []couplex.Result) []Association {
	out := make([]Association, 0, len(results))
	for _, r := range results {
		a := Association{
			Group:           r.Group,
			SampleName:      r.SampleName,
			Well:            r.Well,
			Colorpair:       r.Colorpair,
			Antibodies:      r.Antibodies(),
			PositivesDouble: r.PositivesDouble,
			PositivesAb1:    r.PositivesAb1,
			PositivesAb2:    r.PositivesAb2,
			PositivesNone:   r.PositivesNone,
		}

		a.OddsRatio = oddsRatio(a.PositivesDouble, a.PositivesAb1, a.PositivesAb2, a.PositivesNone)
		a.ChiSquare = chiSquare(a.PositivesDouble, a.PositivesAb1, a.PositivesAb2, a.PositivesNone)
		a.ChiSquareP = chiSquareP(a.ChiSquare)

		_, _, _, twop := fet.FisherExactTest(int(a.PositivesDouble), int(a.PositivesAb1), int(a.PositivesAb2), int(a.PositivesNone))
		a.FisherP = twop

		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		ki := sampleKey{out[i].Group, out[i].SampleName, out[i].Colorpair}
		kj := sampleKey{out[j].Group, out[j].SampleName, out[j].Colorpair}
		if ki != kj {
			return lessKey(ki, kj)
		}
		return out[i].Well < out[j].Well
	})

	return out
}

func oddsRatio(n11, n12, n21, n22 int64) float64 {
	a, b, c, d := float64(n11), float64(n12), float64(n21), float64(n22)
	if n12 == 0 || n21 == 0 {
		a, b, c, d = a+0.5, b+0.5, c+0.5, d+0.5
	}

	return (a * d) / (b * c)
}

// chiSquare is Pearson's statistic for a 2x2 table, without continuity
// correction. A table with an empty margin has a statistic of 0.
func chiSquare(n11, n12, n21, n22 int64) float64 {
	a, b, c, d := float64(n11), float64(n12), float64(n21), float64(n22)
	n := a + b + c + d

	denominator := (a + b) * (c + d) * (a + c) * (b + d)
	if denominator == 0 {
		return 0
	}

	return n * math.Pow(a*d-b*c, 2) / denominator
}

func chiSquareP(x float64) (p float64) {
	// P=1.0 at chi square 0.
	p = 1.0
	if x <= 0 {
		return
	}

	p = math.NaN()
	defer func() { recover() }()

	p = 1.0 - dst.ChiSquareCDF(1)(x)

	return
}
