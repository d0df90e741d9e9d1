package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/pico"
	"github.com/carbocation/pico/bqexport"
	"github.com/carbocation/pico/mofile"
	"github.com/carbocation/pico/occupancy"
	"github.com/carbocation/pico/output"
	"github.com/carbocation/pico/pipeline"
	"github.com/carbocation/pico/store"
	"github.com/carbocation/pico/summary"
)

func run(ctx context.Context, cfg config) error {
	delim, err := output.Delimiter(cfg.format)
	if err != nil {
		return err
	}

	plates, err := occupancy.ParsePlates(cfg.plates)
	if err != nil {
		return err
	}

	var client *storage.Client
	if strings.Contains(cfg.inputs, "gs://") {
		client, err = storage.NewClient(ctx)
		if err != nil {
			return pfx.Err(err)
		}
		defer client.Close()
	}

	paths, err := pico.ListInputs(ctx, strings.Split(cfg.inputs, ","), client)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no exports found in %s", cfg.inputs)
	}

	parser, err := mofile.New(cfg.layout)
	if err != nil {
		return err
	}
	parser.Encoding = cfg.encoding
	parser.Verbose = cfg.verbose

	log.Printf("Reading %d export(s) with the %s layout\n", len(paths), cfg.layout)
	rows, err := parser.ReadFiles(ctx, paths, client)
	if err != nil {
		return err
	}

	popts := parser.PartitionOptions()
	popts.AllowCountMismatch = cfg.allowCountMismatch

	res, err := pipeline.Run(ctx, rows, pipeline.Config{
		Workers:        cfg.workers,
		Plates:         plates,
		ControlMarkers: splitMarkers(cfg.controls),
		Partition:      popts,
		Logger:         log.Default(),
	})
	if err != nil {
		return err
	}

	if cfg.verbose {
		for _, d := range res.Report.Dropped {
			log.Printf("Dropped well %s (%s) colorpair %s: %s\n", d.Well, d.SampleName, d.Colorpair, d.Reason)
		}
	}

	table := output.FromResults(res.Rows)

	if err := writeTo(outputPath(cfg, paths), delim, table); err != nil {
		return err
	}

	if cfg.summaryPath != "" {
		if err := writeTo(cfg.summaryPath, delim, summary.Replicates(res.Rows)); err != nil {
			return err
		}
	}

	if cfg.lambdaSummaryPath != "" {
		ranges, err := summary.LambdaRanges(res.Rows, cfg.minLambda)
		if err != nil {
			return err
		}
		if err := writeTo(cfg.lambdaSummaryPath, delim, ranges); err != nil {
			return err
		}
	}

	if cfg.associationPath != "" {
		if err := writeTo(cfg.associationPath, delim, summary.Associations(res.Rows)); err != nil {
			return err
		}
	}

	label := cfg.runLabel
	if label == "" {
		label = strings.Join(paths, ",")
	}

	if cfg.sqlitePath != "" {
		if err := saveSQLite(ctx, cfg.sqlitePath, label, table); err != nil {
			return err
		}
	}

	if cfg.bqProject != "" {
		if err := uploadBigQuery(ctx, cfg, label, table); err != nil {
			return err
		}
	}

	return nil
}

func splitMarkers(s string) []string {
	out := make([]string, 0)
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}

	return out
}

// outputPath resolves -output. An empty result means STDOUT.
func outputPath(cfg config, inputs []string) string {
	if cfg.output == "" {
		return ""
	}

	if info, err := os.Stat(cfg.output); err == nil && info.IsDir() {
		return output.ProcessedName(inputs[0], cfg.output, cfg.format)
	}

	return cfg.output
}

func writeTo(path string, delim rune, table interface{}) (err error) {
	if path == "" {
		if err := output.WriteTable(STDOUT, delim, table); err != nil {
			return pfx.Err(err)
		}

		// Flush before the sinks run.
		return pfx.Err(STDOUT.Flush())
	}

	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = pfx.Err(cerr)
		}
	}()
	log.Println("Writing", path)

	if err := output.WriteTable(f, delim, table); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func saveSQLite(ctx context.Context, path, label string, table []output.Row) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runID, err := db.SaveRun(ctx, label, table)
	if err != nil {
		return err
	}
	log.Printf("Saved %d rows to %s as run %d\n", len(table), path, runID)

	return nil
}

func uploadBigQuery(ctx context.Context, cfg config, label string, table []output.Row) error {
	exp, err := bqexport.New(ctx, cfg.bqProject, cfg.bqDataset, cfg.bqTable)
	if err != nil {
		return err
	}
	defer exp.Close()

	if err := exp.Upload(ctx, label, table); err != nil {
		return err
	}
	log.Printf("Uploaded %d rows to %s.%s.%s\n", len(table), cfg.bqProject, cfg.bqDataset, cfg.bqTable)

	return nil
}
