// Package bqexport uploads processed couplex tables to BigQuery.
package bqexport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/pfx"
	"github.com/carbocation/pico/output"
	"google.golang.org/api/googleapi"
)

// BatchSize bounds the rows sent per streaming insert.
const BatchSize = 500

type WrappedBigQuery struct {
	Context  context.Context
	Client   *bigquery.Client
	Project  string
	Database string
}

// Row is the BigQuery form of output.Row. Unknown volumes are NULL.
type Row struct {
	RunLabel           string               `bigquery:"run_label"`
	Group              string               `bigquery:"group_name"`
	SampleName         string               `bigquery:"sample_name"`
	Well               string               `bigquery:"well"`
	ValidPartitions    int64                `bigquery:"valid_partitions"`
	VolumePerWell      float64              `bigquery:"volume_per_well"`
	MastermixVolume    bigquery.NullFloat64 `bigquery:"mastermix_volume"`
	DeadVolume         bigquery.NullFloat64 `bigquery:"dead_volume"`
	Colorpair          string               `bigquery:"colorpair"`
	Antibody1          string               `bigquery:"antibody1"`
	Antibody2          string               `bigquery:"antibody2"`
	Antibodies         string               `bigquery:"antibodies"`
	PositivesAb1       int64                `bigquery:"positives_ab1"`
	LambdaAb1          float64              `bigquery:"lambda_ab1"`
	PositivesAb2       int64                `bigquery:"positives_ab2"`
	LambdaAb2          float64              `bigquery:"lambda_ab2"`
	PositivesDouble    int64                `bigquery:"positives_double"`
	CouplexPositives   int64                `bigquery:"couplex_positives"`
	RandomPositives    int64                `bigquery:"random_positives"`
	RcoverlapPositives int64                `bigquery:"rcoverlap_positives"`
	DiffToObs          int64                `bigquery:"diff_to_obs"`
	CouplexesRaw       int64                `bigquery:"couplexes_raw"`
	Couplexes          int64                `bigquery:"couplexes"`
	VolumeCorrected    bool                 `bigquery:"volume_corrected"`
}

func Schema() bigquery.Schema {
	req := func(name string, t bigquery.FieldType) *bigquery.FieldSchema {
		return &bigquery.FieldSchema{Name: name, Type: t, Required: true}
	}
	opt := func(name string, t bigquery.FieldType) *bigquery.FieldSchema {
		return &bigquery.FieldSchema{Name: name, Type: t}
	}

	return bigquery.Schema{
		req("run_label", bigquery.StringFieldType),
		req("group_name", bigquery.StringFieldType),
		req("sample_name", bigquery.StringFieldType),
		req("well", bigquery.StringFieldType),
		req("valid_partitions", bigquery.IntegerFieldType),
		req("volume_per_well", bigquery.FloatFieldType),
		opt("mastermix_volume", bigquery.FloatFieldType),
		opt("dead_volume", bigquery.FloatFieldType),
		req("colorpair", bigquery.StringFieldType),
		req("antibody1", bigquery.StringFieldType),
		req("antibody2", bigquery.StringFieldType),
		req("antibodies", bigquery.StringFieldType),
		req("positives_ab1", bigquery.IntegerFieldType),
		req("lambda_ab1", bigquery.FloatFieldType),
		req("positives_ab2", bigquery.IntegerFieldType),
		req("lambda_ab2", bigquery.FloatFieldType),
		req("positives_double", bigquery.IntegerFieldType),
		req("couplex_positives", bigquery.IntegerFieldType),
		req("random_positives", bigquery.IntegerFieldType),
		req("rcoverlap_positives", bigquery.IntegerFieldType),
		req("diff_to_obs", bigquery.IntegerFieldType),
		req("couplexes_raw", bigquery.IntegerFieldType),
		req("couplexes", bigquery.IntegerFieldType),
		req("volume_corrected", bigquery.BooleanFieldType),
	}
}

// FromRows converts output rows, tagging each with runLabel so several
// uploads can share one table.
func FromRows(runLabel string, rows []output.Row) []*Row {
	out := make([]*Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, &Row{
			RunLabel:           runLabel,
			Group:              r.Group,
			SampleName:         r.SampleName,
			Well:               r.Well,
			ValidPartitions:    r.ValidPartitions,
			VolumePerWell:      r.VolumePerWell,
			MastermixVolume:    bigquery.NullFloat64{Float64: r.MastermixVolume.Float64, Valid: r.MastermixVolume.Valid},
			DeadVolume:         bigquery.NullFloat64{Float64: r.DeadVolume.Float64, Valid: r.DeadVolume.Valid},
			Colorpair:          r.Colorpair,
			Antibody1:          r.Antibody1,
			Antibody2:          r.Antibody2,
			Antibodies:         r.Antibodies,
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
			VolumeCorrected:    r.VolumeCorrected,
		})
	}

	return out
}

type Exporter struct {
	BQ    *WrappedBigQuery
	Table string
}

// New connects to BigQuery with default credentials.
func New(ctx context.Context, project, dataset, table string) (*Exporter, error) {
	BQ := &WrappedBigQuery{
		Context:  ctx,
		Project:  project,
		Database: dataset,
	}

	var err error
	BQ.Client, err = bigquery.NewClient(BQ.Context, BQ.Project)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("connecting to BigQuery: %w", err))
	}

	return &Exporter{BQ: BQ, Table: table}, nil
}

func (e *Exporter) Close() error {
	return e.BQ.Client.Close()
}

// Upload creates the table with Schema if it does not exist and streams the
// rows into it.
func (e *Exporter) Upload(ctx context.Context, runLabel string, rows []output.Row) error {
	table := e.BQ.Client.Dataset(e.BQ.Database).Table(e.Table)

	if _, err := table.Metadata(ctx); err != nil {
		var gerr *googleapi.Error
		if !errors.As(err, &gerr) || gerr.Code != http.StatusNotFound {
			return pfx.Err(err)
		}
		if err := table.Create(ctx, &bigquery.TableMetadata{Schema: Schema()}); err != nil {
			return pfx.Err(fmt.Errorf("creating %s.%s.%s: %w", e.BQ.Project, e.BQ.Database, e.Table, err))
		}
	}

	ins := table.Inserter()
	bqRows := FromRows(runLabel, rows)
	for start := 0; start < len(bqRows); start += BatchSize {
		end := start + BatchSize
		if end > len(bqRows) {
			end = len(bqRows)
		}
		if err := ins.Put(ctx, bqRows[start:end]); err != nil {
			return pfx.Err(err)
		}
	}

	return nil
}
