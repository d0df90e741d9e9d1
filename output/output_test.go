package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/carbocation/pico/colorpair"
	"github.com/carbocation/pico/couplex"
	"github.com/carbocation/pico/occupancy"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

const header = "group,sample_name,well,valid_partitions,volume_per_well,mastermix_volume,dead_volume,colorpair,antibody1,antibody2,antibodies,positives_ab1,lambda_ab1,positives_ab2,lambda_ab2,positives_double,couplex_positives,random_positives,rcoverlap_positives,diff_to_obs,couplexes_raw,couplexes,volume_corrected"

func result(well string, mastermix null.Float) couplex.Result {
	rec := occupancy.Record{
		Record: colorpair.Record{
			Well:            well,
			SampleName:      "Sample 1",
			Group:           "mix1",
			PlateType:       "Nanoplate 26K",
			Colorpair:       "GY",
			Ab1:             "CD3",
			Ab2:             "CD28",
			ValidPartitions: 1000,
			VolumePerWell:   40,
			PositivesAb1:    50,
			PositivesAb2:    40,
			PositivesDouble: 10,
			PositivesNone:   900,
		},
		MastermixVolume: mastermix,
		LambdaAb1:       0.5,
		LambdaAb2:       0.25,
	}
	if mastermix.Valid {
		rec.DeadVolume = null.FloatFrom(mastermix.Float64 - 40)
	}

	return couplex.Result{
		Record: rec,
		Estimate: couplex.Estimate{
			CouplexPositives: 8,
			RandomPositives:  2,
			CouplexesRaw:     8,
			Couplexes:        8,
			Uncorrected:      !mastermix.Valid,
		},
	}
}

func TestFromResult(t *testing.T) {
	row := FromResult(result("A1", null.FloatFrom(42)))

	require.Equal(t, "CD3 & CD28", row.Antibodies)
	require.Equal(t, "CD3", row.Antibody1)
	require.Equal(t, 2.0, row.DeadVolume.Float64)
	require.True(t, row.VolumeCorrected)

	row = FromResult(result("B1", null.Float{}))
	require.False(t, row.VolumeCorrected)
	require.False(t, row.MastermixVolume.Valid)
	require.False(t, row.DeadVolume.Valid)
}

func TestWriteTable(t *testing.T) {
	rows := FromResults([]couplex.Result{
		result("A1", null.FloatFrom(42)),
		result("B1", null.Float{}),
	})

	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, ',', rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, header, lines[0])
	require.Equal(t, "mix1,Sample 1,A1,1000,40,42,2,GY,CD3,CD28,CD3 & CD28,50,0.5,40,0.25,10,8,2,0,0,8,8,true", lines[1])
	require.Equal(t, "mix1,Sample 1,B1,1000,40,,,GY,CD3,CD28,CD3 & CD28,50,0.5,40,0.25,10,8,2,0,0,8,8,false", lines[2])

	buf.Reset()
	require.NoError(t, WriteTable(&buf, '\t', rows))
	require.True(t, strings.HasPrefix(buf.String(), strings.ReplaceAll(header, ",", "\t")+"\n"))
}

func TestDelimiter(t *testing.T) {
	d, err := Delimiter("CSV")
	require.NoError(t, err)
	require.Equal(t, ',', d)

	d, err = Delimiter("tsv")
	require.NoError(t, err)
	require.Equal(t, '\t', d)

	_, err = Delimiter("xlsx")
	require.Error(t, err)
}

func TestProcessedName(t *testing.T) {
	type expectation struct {
		Input  string
		Dir    string
		Format string
		Path   string
	}

	expectations := []expectation{
		{"/data/run1.csv", "", "csv", "/data/run1_processed.csv"},
		{"/data/run1.csv.gz", "/out", "tsv", "/out/run1_processed.tsv"},
		{"gs://bucket/x/run2.csv", "", "csv", "run2_processed.csv"},
		{"gs://bucket/x/run2.csv", "/out", "csv", "/out/run2_processed.csv"},
	}

	for _, v := range expectations {
		if got := ProcessedName(v.Input, v.Dir, v.Format); got != v.Path {
			t.Fatalf("Expected %+v, got %s", v, got)
		}
	}
}
