// pico estimates couplexes (physically coupled antibody pairs) from the
// multiple-occupancy export of a multiplexed dPCR run.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/carbocation/pico/compileinfo"
	_ "github.com/carbocation/pico/compileinfoprint"
	"github.com/carbocation/pico/mofile"
	"github.com/carbocation/pico/occupancy"
	"github.com/carbocation/pico/rowfilter"
	"github.com/carbocation/pico/summary"
)

var (
	BufferSize = 4096 * 8
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

type config struct {
	inputs             string
	output             string
	format             string
	layout             string
	encoding           string
	workers            int
	controls           string
	plates             string
	allowCountMismatch bool
	summaryPath        string
	lambdaSummaryPath  string
	associationPath    string
	minLambda          float64
	sqlitePath         string
	bqProject          string
	bqDataset          string
	bqTable            string
	runLabel           string
	verbose            bool
}

func main() {
	defer STDOUT.Flush()

	var cfg config
	var version bool

	flag.StringVar(&cfg.inputs, "input", "", "Comma-separated multiple-occupancy exports. Local files, local directories, gs:// objects, or gs:// prefixes ending in '/'. Compressed inputs are detected.")
	flag.StringVar(&cfg.output, "output", "", "Output file for the processed table. If a directory, writes <input>_processed.<format> into it. Defaults to STDOUT.")
	flag.StringVar(&cfg.format, "format", "csv", "Output format: csv or tsv.")
	flag.StringVar(&cfg.layout, "layout", "QIACUITY", fmt.Sprintf("Column layout of the export. Options: %s", mofile.LayoutNames()))
	flag.StringVar(&cfg.encoding, "encoding", "utf-8", "Character encoding of the export, e.g., utf-8 or windows-1252.")
	flag.IntVar(&cfg.workers, "workers", runtime.NumCPU(), "Number of goroutines per pipeline stage.")
	flag.StringVar(&cfg.controls, "controls", strings.Join(rowfilter.DefaultControlMarkers, ","), "Comma-separated markers. Samples whose name contains any marker are treated as controls and dropped (case-sensitive).")
	flag.StringVar(&cfg.plates, "plates", formatPlates(occupancy.DefaultPlates), "Plate formats and their mastermix volume in uL, matched as substrings of the plate type, in priority order.")
	flag.BoolVar(&cfg.allowCountMismatch, "allow-count-mismatch", false, "Accept wells whose pattern counts do not sum to their valid partitions?")
	flag.StringVar(&cfg.summaryPath, "summary", "", "If set, write the couplex replicate summary (per group, sample and colorpair) to this path.")
	flag.StringVar(&cfg.lambdaSummaryPath, "lambda-summary", "", "If set, write the lambda range summary (per group, sample and antibody) to this path.")
	flag.StringVar(&cfg.associationPath, "association", "", "If set, write the per-row co-occurrence tests (odds ratio, chi square, Fisher exact) to this path.")
	flag.Float64Var(&cfg.minLambda, "min-lambda", summary.DefaultMinLambda, "Antibodies whose largest lambda is below this value are omitted from the lambda summary.")
	flag.StringVar(&cfg.sqlitePath, "sqlite", "", "If set, also save the processed table into this SQLite database.")
	flag.StringVar(&cfg.bqProject, "bq-project", "", "If set (with -bq-dataset and -bq-table), also upload the processed table to BigQuery.")
	flag.StringVar(&cfg.bqDataset, "bq-dataset", "", "BigQuery dataset for -bq-project.")
	flag.StringVar(&cfg.bqTable, "bq-table", "couplexes", "BigQuery table for -bq-project.")
	flag.StringVar(&cfg.runLabel, "run-label", "", "Label stored with the table in SQLite and BigQuery. Defaults to the input paths.")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Log detected delimiters and every rejected or dropped row?")
	flag.BoolVar(&version, "version", false, "Print build information and exit?")
	flag.Parse()

	if version {
		compileinfo.Fprint(os.Stderr, cfg.verbose)
		return
	}

	if cfg.inputs == "" {
		fmt.Fprintln(os.Stderr, "Please provide --input")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if (cfg.bqProject == "") != (cfg.bqDataset == "") {
		fmt.Fprintln(os.Stderr, "Please provide both --bq-project and --bq-dataset, or neither")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		STDOUT.Flush()
		log.Fatalln(err)
	}
}

func formatPlates(plates []occupancy.Plate) string {
	parts := make([]string, 0, len(plates))
	for _, p := range plates {
		parts = append(parts, fmt.Sprintf("%s=%g", p.Format, p.MastermixVolume))
	}

	return strings.Join(parts, ",")
}
