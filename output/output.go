// Package output flattens couplex results into the processed table and
// writes tables as delimited text.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/carbocation/pico/couplex"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// Row is one line of the processed table. Field order is column order.
type Row struct {
	Group           string     `csv:"group" db:"group_name"`
	SampleName      string     `csv:"sample_name" db:"sample_name"`
	Well            string     `csv:"well" db:"well"`
	ValidPartitions int64      `csv:"valid_partitions" db:"valid_partitions"`
	VolumePerWell   float64    `csv:"volume_per_well" db:"volume_per_well"`
	MastermixVolume null.Float `csv:"mastermix_volume" db:"mastermix_volume"`
	DeadVolume      null.Float `csv:"dead_volume" db:"dead_volume"`
	Colorpair       string     `csv:"colorpair" db:"colorpair"`
	Antibody1       string     `csv:"antibody1" db:"antibody1"`
	Antibody2       string     `csv:"antibody2" db:"antibody2"`
	Antibodies      string     `csv:"antibodies" db:"antibodies"`

	PositivesAb1       int64   `csv:"positives_ab1" db:"positives_ab1"`
	LambdaAb1          float64 `csv:"lambda_ab1" db:"lambda_ab1"`
	PositivesAb2       int64   `csv:"positives_ab2" db:"positives_ab2"`
	LambdaAb2          float64 `csv:"lambda_ab2" db:"lambda_ab2"`
	PositivesDouble    int64   `csv:"positives_double" db:"positives_double"`
	CouplexPositives   int64   `csv:"couplex_positives" db:"couplex_positives"`
	RandomPositives    int64   `csv:"random_positives" db:"random_positives"`
	RcoverlapPositives int64   `csv:"rcoverlap_positives" db:"rcoverlap_positives"`
	DiffToObs          int64   `csv:"diff_to_obs" db:"diff_to_obs"`
	CouplexesRaw       int64   `csv:"couplexes_raw" db:"couplexes_raw"`
	Couplexes          int64   `csv:"couplexes" db:"couplexes"`
	VolumeCorrected    bool    `csv:"volume_corrected" db:"volume_corrected"`
}

func FromResult(r couplex.Result) Row {
	return Row{
		Group:           r.Group,
		SampleName:      r.SampleName,
		Well:            r.Well,
		ValidPartitions: r.ValidPartitions,
		VolumePerWell:   r.VolumePerWell,
		MastermixVolume: r.MastermixVolume,
		DeadVolume:      r.DeadVolume,
		Colorpair:       r.Colorpair,
		Antibody1:       r.Ab1,
		Antibody2:       r.Ab2,
		Antibodies:      r.Antibodies(),

		PositivesAb1:       r.PositivesAb1,
		LambdaAb1:          r.LambdaAb1,
		PositivesAb2:       r.PositivesAb2,
		LambdaAb2:          r.LambdaAb2,
		PositivesDouble:    r.PositivesDouble,
		CouplexPositives:   r.CouplexPositives,
		RandomPositives:    r.RandomPositives,
		RcoverlapPositives: r.RcoverlapPositives,
		DiffToObs:          r.DiffToObs,
		CouplexesRaw:       r.CouplexesRaw,
		Couplexes:          r.Couplexes,
		VolumeCorrected:    !r.Uncorrected,
	}
}

func FromResults(results []couplex.Result) []Row {
	out := make([]Row, 0, len(results))
	for _, r := range results {
		out = append(out, FromResult(r))
	}

	return out
}

// Delimiter maps an output format name to its field delimiter.
func Delimiter(format string) (rune, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ',', nil
	case "tsv":
		return '\t', nil
	}

	return 0, fmt.Errorf("unknown output format %q (want csv or tsv)", format)
}

// ProcessedName derives the output path for an input export:
// "<base>_processed.<format>", next to the input unless dir is set.
func ProcessedName(input, dir, format string) string {
	base := filepath.Base(strings.TrimPrefix(input, "gs://"))
	for ext := filepath.Ext(base); ext != "" && ext != base; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	name := base + "_processed." + strings.ToLower(format)

	if dir == "" {
		if strings.HasPrefix(input, "gs://") {
			return name
		}
		dir = filepath.Dir(input)
	}

	return filepath.Join(dir, name)
}

// WriteTable writes a slice of tagged structs with a header line.
func WriteTable(w io.Writer, delim rune, table interface{}) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim

	return gocsv.MarshalCSV(table, gocsv.NewSafeCSVWriter(cw))
}
