package couplex

import (
	"context"
	"fmt"

	"github.com/carbocation/pico/occupancy"
	"golang.org/x/sync/errgroup"
)

// Result is an output row: the annotated colorpair record and its estimate.
type Result struct {
	occupancy.Record
	Estimate
}

// InputFor extracts the estimator's inputs from an annotated record.
func InputFor(rec occupancy.Record) Input {
	return Input{
		Partitions:      rec.ValidPartitions,
		PositivesAb1:    rec.PositivesAb1,
		PositivesAb2:    rec.PositivesAb2,
		PositivesDouble: rec.PositivesDouble,
		CycledVolume:    rec.VolumePerWell,
		MastermixVolume: rec.MastermixVolume,
	}
}

// EstimateRecord estimates a single annotated record.
func EstimateRecord(rec occupancy.Record) (Result, error) {
	est, err := Run(InputFor(rec))
	if err != nil {
		return Result{}, fmt.Errorf("well %s colorpair %s: %w", rec.Well, rec.Colorpair, err)
	}

	return Result{Record: rec, Estimate: est}, nil
}

// EstimateAll estimates every record using up to workers goroutines. Every
// record must already have passed the row filter, so any error is an
// internal failure and aborts the table. Searches are cached process-wide,
// see Search.
func EstimateAll(ctx context.Context, records []occupancy.Record, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	out := make([]Result, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := EstimateRecord(records[i])
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
