// Package pipeline runs the couplex stages over a partition table.
package pipeline

import (
	"context"
	"runtime"

	"github.com/carbocation/pico/colorpair"
	"github.com/carbocation/pico/couplex"
	"github.com/carbocation/pico/occupancy"
	"github.com/carbocation/pico/partition"
	"github.com/carbocation/pico/rowfilter"
)

type logger interface {
	Println(v ...interface{})
	Printf(format string, v ...interface{})
}

// Config controls a run. The zero value is usable.
type Config struct {
	// Workers bounds the goroutines per stage; 0 means runtime.NumCPU().
	Workers int

	// Plates overrides occupancy.DefaultPlates when non-nil.
	Plates []occupancy.Plate

	// ControlMarkers overrides rowfilter.DefaultControlMarkers when non-nil.
	ControlMarkers []string

	// Partition controls grouping and validation of the input rows.
	Partition partition.Options

	// Logger receives progress messages; nil disables logging.
	Logger logger
}

// Report collects everything a run decided not to turn into output rows.
type Report struct {
	Wells    int
	Channels []int // distinct channel counts seen, ascending

	ColorpairRows int

	Warnings []occupancy.Warning
	Rejected []*occupancy.RowError
	Dropped  []rowfilter.Drop
}

// Result is the output table of a run plus its report.
type Result struct {
	Rows   []couplex.Result
	Report Report
}

// Run groups rows into wells and runs projection, annotation, filtering and
// estimation. Input-shape errors abort the run; rejected and dropped rows are
// listed in the report. Output row order carries no meaning.
//
// Estimates are memoized process-wide through couplex.Search; the cache is
// never cleared.
func Run(ctx context.Context, rows []partition.Row, cfg Config) (*Result, error) {
	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	plates := cfg.Plates
	if plates == nil {
		plates = occupancy.DefaultPlates
	}

	wells, err := partition.GroupWells(rows, cfg.Partition)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.Report.Wells = len(wells)
	res.Report.Channels = channelCounts(wells)
	cfg.logf("Grouped %d rows into %d wells (channel counts %v)\n", len(rows), len(wells), res.Report.Channels)

	records, err := colorpair.ProjectAll(ctx, wells, workers)
	if err != nil {
		return nil, err
	}
	res.Report.ColorpairRows = len(records)

	annotated, warnings, rejected := occupancy.AnnotateAll(records, plates)
	res.Report.Warnings = warnings
	res.Report.Rejected = rejected
	for _, w := range warnings {
		cfg.logf("Warning: plate type %q in %d wells: %s\n", w.PlateType, len(w.Wells), w.Message)
	}
	for _, r := range rejected {
		cfg.logf("Rejected %s\n", r)
	}

	kept, dropped := rowfilter.Apply(annotated, cfg.ControlMarkers)
	res.Report.Dropped = dropped
	cfg.logf("Kept %d of %d colorpair rows (%d rejected, %d dropped)\n", len(kept), len(records), len(rejected), len(dropped))

	res.Rows, err = couplex.EstimateAll(ctx, kept, workers)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (cfg Config) logf(format string, v ...interface{}) {
	if cfg.Logger == nil {
		return
	}
	cfg.Logger.Printf(format, v...)
}

func channelCounts(wells []partition.Well) []int {
	seen := make([]bool, partition.MaxChannels+1)
	for _, w := range wells {
		if partition.SupportedChannels(w.N()) {
			seen[w.N()] = true
		}
	}

	out := make([]int, 0, 1)
	for n, ok := range seen {
		if ok {
			out = append(out, n)
		}
	}

	return out
}
