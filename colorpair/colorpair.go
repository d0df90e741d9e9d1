// Package colorpair projects an n-channel partition table onto every
// unordered pair of channels.
package colorpair

import (
	"context"
	"fmt"

	"github.com/carbocation/pico/partition"
	"golang.org/x/sync/errgroup"
)

// Key is an unordered pair of channel indices, stored with I < J.
type Key struct {
	I, J int
}

// NewKey orders i and j.
func NewKey(i, j int) Key {
	if i > j {
		i, j = j, i
	}

	return Key{I: i, J: j}
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.I, k.J)
}

// Pairs lists the C(n,2) keys of an n-channel run in lexicographic order.
func Pairs(n int) []Key {
	out := make([]Key, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, Key{I: i, J: j})
		}
	}

	return out
}

// Label concatenates the color initials of the pair's two channels.
func Label(channels []partition.Channel, k Key) string {
	return channels[k.I].Initial() + channels[k.J].Initial()
}

// Record holds the marginal partition counts of one well for one colorpair.
// PositivesAb1 and PositivesAb2 count single positives only: partitions
// positive for that antibody and negative for its partner.
type Record struct {
	Well       string
	SampleName string
	Group      string
	PlateType  string

	Key       Key
	Colorpair string
	Ab1       string
	Ab2       string

	ValidPartitions int64
	VolumePerWell   float64

	PositivesAb1    int64
	PositivesAb2    int64
	PositivesDouble int64
	PositivesNone   int64
}

// Antibodies joins the antibody names of the pair for display.
func (r Record) Antibodies() string {
	return r.Ab1 + " & " + r.Ab2
}

// Marginal holds the four counts of a 2x2 table obtained by summing out
// every channel outside a colorpair.
type Marginal struct {
	Ab1, Ab2, Double, None int64
}

// Marginalize sums counts (indexed by pattern mask) over all 2^(n-2) states
// of the channels outside k.
func Marginalize(counts []int64, n int, k Key) Marginal {
	others := make([]uint, 0, n-2)
	for ch := 0; ch < n; ch++ {
		if ch != k.I && ch != k.J {
			others = append(others, uint(ch))
		}
	}

	bitI := uint(1) << uint(k.I)
	bitJ := uint(1) << uint(k.J)

	var m Marginal
	for combo := uint(0); combo < 1<<uint(len(others)); combo++ {
		var base uint
		for pos, ch := range others {
			if combo&(1<<uint(pos)) != 0 {
				base |= 1 << ch
			}
		}

		m.Double += counts[base|bitI|bitJ]
		m.Ab1 += counts[base|bitI]
		m.Ab2 += counts[base|bitJ]
		m.None += counts[base]
	}

	return m
}

// Project produces one Record per colorpair of the well. For two channels
// this is the identity: the single pair reads "++", "+-" and "-+" directly.
func Project(w partition.Well) ([]Record, error) {
	n := w.N()
	if !partition.SupportedChannels(n) {
		return nil, &partition.ShapeError{
			Well:     w.ID,
			Channels: n,
			Reason:   "channel count must be between 2 and 4",
			Err:      partition.ErrUnsupportedChannelCount,
		}
	}
	if len(w.Counts) != 1<<uint(n) {
		return nil, &partition.ShapeError{
			Well:     w.ID,
			Channels: n,
			Reason:   fmt.Sprintf("expected %d pattern counts, got %d", 1<<uint(n), len(w.Counts)),
			Err:      partition.ErrInputShape,
		}
	}

	keys := Pairs(n)
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		m := Marginalize(w.Counts, n, k)
		out = append(out, Record{
			Well:            w.ID,
			SampleName:      w.SampleName,
			Group:           w.Group,
			PlateType:       w.PlateType,
			Key:             k,
			Colorpair:       Label(w.Channels, k),
			Ab1:             w.Channels[k.I].Antibody,
			Ab2:             w.Channels[k.J].Antibody,
			ValidPartitions: w.ValidPartitions,
			VolumePerWell:   w.VolumePerWell,
			PositivesAb1:    m.Ab1,
			PositivesAb2:    m.Ab2,
			PositivesDouble: m.Double,
			PositivesNone:   m.None,
		})
	}

	return out, nil
}

// ProjectAll projects every well using up to workers goroutines. The first
// error cancels the remaining work and is returned; no partial table is
// returned alongside it.
func ProjectAll(ctx context.Context, wells []partition.Well, workers int) ([]Record, error) {
	if workers < 1 {
		workers = 1
	}

	perWell := make([][]Record, len(wells))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range wells {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := Project(wells[i])
			if err != nil {
				return err
			}
			perWell[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(wells)*3)
	for _, records := range perWell {
		out = append(out, records...)
	}

	return out, nil
}
