// Package summary condenses couplex results per sample: the occupancy range
// of each antibody, the spread of couplexes across replicate wells, and the
// co-occurrence of each colorpair within partitions.
package summary

import (
	"sort"

	"github.com/carbocation/pico/couplex"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMinLambda separates channels that were imaged without any target
// from real ones.
const DefaultMinLambda = 0.01

// LambdaRange is the spread of one antibody's lambda within a sample. An
// antibody used in several colorpairs contributes one value per colorpair.
type LambdaRange struct {
	Group      string  `csv:"group"`
	SampleName string  `csv:"sample_name"`
	Antibody   string  `csv:"antibody"`
	N          int     `csv:"n"`
	Min        float64 `csv:"lambda_min"`
	Max        float64 `csv:"lambda_max"`
	Mean       float64 `csv:"lambda_mean"`
	Median     float64 `csv:"lambda_median"`

	// WeightedMean weights each value by its valid partitions.
	WeightedMean float64 `csv:"lambda_weighted_mean"`
}

type sampleKey struct {
	Group      string
	SampleName string
	Label      string
}

type lambdaValues struct {
	values  stats.Float64Data
	weights []float64
}

// LambdaRanges summarizes lambda per group, sample and antibody. Entries
// whose largest lambda is below minLambda are left out. Output is sorted by
// group, sample and antibody.
func LambdaRanges(results []couplex.Result, minLambda float64) ([]LambdaRange, error) {
	acc := make(map[sampleKey]*lambdaValues)
	push := func(k sampleKey, lambda float64, valid int64) {
		v, exists := acc[k]
		if !exists {
			v = &lambdaValues{}
			acc[k] = v
		}
		v.values = append(v.values, lambda)
		v.weights = append(v.weights, float64(valid))
	}

	for _, r := range results {
		push(sampleKey{r.Group, r.SampleName, r.Ab1}, r.LambdaAb1, r.ValidPartitions)
		push(sampleKey{r.Group, r.SampleName, r.Ab2}, r.LambdaAb2, r.ValidPartitions)
	}

	out := make([]LambdaRange, 0, len(acc))
	for k, v := range acc {
		max, err := v.values.Max()
		if err != nil {
			return nil, err
		}
		if max < minLambda {
			continue
		}
		min, err := v.values.Min()
		if err != nil {
			return nil, err
		}
		mean, err := v.values.Mean()
		if err != nil {
			return nil, err
		}
		median, err := v.values.Median()
		if err != nil {
			return nil, err
		}

		out = append(out, LambdaRange{
			Group:        k.Group,
			SampleName:   k.SampleName,
			Antibody:     k.Label,
			N:            v.values.Len(),
			Min:          min,
			Max:          max,
			Mean:         mean,
			Median:       median,
			WeightedMean: stat.Mean(v.values, v.weights),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return lessKey(
			sampleKey{out[i].Group, out[i].SampleName, out[i].Antibody},
			sampleKey{out[j].Group, out[j].SampleName, out[j].Antibody},
		)
	})

	return out, nil
}

func lessKey(a, b sampleKey) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	if a.SampleName != b.SampleName {
		return a.SampleName < b.SampleName
	}

	return a.Label < b.Label
}
