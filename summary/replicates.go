package summary

import (
	"sort"

	"github.com/carbocation/pico/couplex"
	"github.com/carbocation/runningvariance"
)

// Replicate summarizes couplexes across the wells of one sample and
// colorpair.
type Replicate struct {
	Group      string  `csv:"group"`
	SampleName string  `csv:"sample_name"`
	Colorpair  string  `csv:"colorpair"`
	Antibodies string  `csv:"antibodies"`
	Wells      int     `csv:"wells"`
	Mean       float64 `csv:"couplexes_mean"`
	SD         float64 `csv:"couplexes_sd"`

	// CV is SD/Mean, or 0 when the mean is 0.
	CV float64 `csv:"couplexes_cv"`

	// Uncorrected counts wells whose couplexes lack dead-volume correction.
	Uncorrected int `csv:"wells_uncorrected"`
}

type replicateAcc struct {
	antibodies  string
	rs          *runningvariance.RunningStat
	uncorrected int
}

// Replicates summarizes couplexes per group, sample and colorpair, sorted by
// the same keys.
func Replicates(results []couplex.Result) []Replicate {
	acc := make(map[sampleKey]*replicateAcc)
	for _, r := range results {
		k := sampleKey{r.Group, r.SampleName, r.Colorpair}
		a, exists := acc[k]
		if !exists {
			a = &replicateAcc{antibodies: r.Antibodies(), rs: runningvariance.NewRunningStat()}
			acc[k] = a
		}
		a.rs.Push(float64(r.Couplexes))
		if r.Uncorrected {
			a.uncorrected++
		}
	}

	out := make([]Replicate, 0, len(acc))
	for k, a := range acc {
		rep := Replicate{
			Group:       k.Group,
			SampleName:  k.SampleName,
			Colorpair:   k.Label,
			Antibodies:  a.antibodies,
			Wells:       int(a.rs.N),
			Mean:        a.rs.Mean(),
			SD:          a.rs.StandardDeviation(),
			Uncorrected: a.uncorrected,
		}
		if rep.Mean != 0 {
			rep.CV = rep.SD / rep.Mean
		}
		out = append(out, rep)
	}

	sort.Slice(out, func(i, j int) bool {
		return lessKey(
			sampleKey{out[i].Group, out[i].SampleName, out[i].Colorpair},
			sampleKey{out[j].Group, out[j].SampleName, out[j].Colorpair},
		)
	})

	return out
}
