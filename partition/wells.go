package partition

import (
	"strconv"
	"strings"
)

const (
	DefaultCategorySeparator = "-"
	DefaultTargetSeparator   = ","
)

// Options controls how rows are grouped into wells.
type Options struct {
	// CategorySeparator splits Row.Categories into channel colors. Defaults
	// to DefaultCategorySeparator.
	CategorySeparator string

	// TargetSeparator splits Row.TargetNames into antibody names. Defaults
	// to DefaultTargetSeparator.
	TargetSeparator string

	// FillMissing treats patterns absent from a well as observed zero times.
	// When false, an absent pattern is an input-shape error.
	FillMissing bool

	// AllowCountMismatch skips the check that a well's pattern counts sum to
	// its valid partitions.
	AllowCountMismatch bool
}

func (o Options) withDefaults() Options {
	if o.CategorySeparator == "" {
		o.CategorySeparator = DefaultCategorySeparator
	}
	if o.TargetSeparator == "" {
		o.TargetSeparator = DefaultTargetSeparator
	}

	return o
}

// GroupWells collects rows into one Well per well identifier, in order of
// first appearance, and validates the shape of each well's pattern table.
// Any violation is returned as a *ShapeError and aborts the whole table.
func GroupWells(rows []Row, opts Options) ([]Well, error) {
	opts = opts.withDefaults()

	order := make([]string, 0)
	byWell := make(map[string][]Row)
	for _, row := range rows {
		if _, exists := byWell[row.Well]; !exists {
			order = append(order, row.Well)
		}
		byWell[row.Well] = append(byWell[row.Well], row)
	}

	wells := make([]Well, 0, len(order))
	for _, id := range order {
		w, err := buildWell(id, byWell[id], opts)
		if err != nil {
			return nil, err
		}
		wells = append(wells, w)
	}

	return wells, nil
}

func buildWell(id string, rows []Row, opts Options) (Well, error) {
	first := rows[0]
	n := first.Pattern.Channels()

	if !SupportedChannels(n) {
		return Well{}, &ShapeError{
			Well:     id,
			Channels: n,
			Reason:   "channel count must be between 2 and 4",
			Err:      ErrUnsupportedChannelCount,
		}
	}

	channels, err := splitChannels(id, n, first, opts)
	if err != nil {
		return Well{}, err
	}

	if first.ValidPartitions <= 0 {
		return Well{}, shapeErrorf(id, n, "valid partitions must be positive, got %d", first.ValidPartitions)
	}

	w := Well{
		ID:              id,
		SampleName:      first.SampleName,
		Group:           first.Group,
		PlateType:       first.PlateType,
		ValidPartitions: first.ValidPartitions,
		VolumePerWell:   first.VolumePerWell,
		Channels:        channels,
		Counts:          make([]int64, 1<<uint(n)),
	}

	seen := make([]bool, len(w.Counts))
	for _, row := range rows {
		if row.Pattern.Channels() != n {
			return Well{}, shapeErrorf(id, n, "pattern %q has %d channels", row.Pattern, row.Pattern.Channels())
		}
		if _, err := ParsePattern(string(row.Pattern)); err != nil {
			return Well{}, shapeErrorf(id, n, "%s", err)
		}
		if row.ValidPartitions != w.ValidPartitions {
			return Well{}, shapeErrorf(id, n, "valid partitions differ between patterns (%d vs %d)", row.ValidPartitions, w.ValidPartitions)
		}
		if field, got, want := metadataMismatch(first, row); field != "" {
			return Well{}, shapeErrorf(id, n, "pattern %q has %s %q but the well has %q", row.Pattern, field, got, want)
		}
		if row.Count < 0 {
			return Well{}, shapeErrorf(id, n, "pattern %q has a negative count %d", row.Pattern, row.Count)
		}

		mask := row.Pattern.Mask()
		if seen[mask] {
			return Well{}, shapeErrorf(id, n, "pattern %q appears more than once", row.Pattern)
		}
		seen[mask] = true
		w.Counts[mask] = row.Count
	}

	if !opts.FillMissing {
		for mask, ok := range seen {
			if !ok {
				return Well{}, shapeErrorf(id, n, "pattern %q is missing; expected all %d patterns", PatternFromMask(uint(mask), n), len(seen))
			}
		}
	}

	if total := w.Total(); !opts.AllowCountMismatch && total != w.ValidPartitions {
		return Well{}, shapeErrorf(id, n, "pattern counts sum to %d but the well has %d valid partitions", total, w.ValidPartitions)
	}

	return w, nil
}

// metadataMismatch names the first well-level field on which row disagrees
// with first, or returns an empty field name.
func metadataMismatch(first, row Row) (field, got, want string) {
	switch {
	case row.SampleName != first.SampleName:
		return "sample name", row.SampleName, first.SampleName
	case row.Group != first.Group:
		return "group", row.Group, first.Group
	case row.PlateType != first.PlateType:
		return "plate type", row.PlateType, first.PlateType
	case row.VolumePerWell != first.VolumePerWell:
		return "volume per well", strconv.FormatFloat(row.VolumePerWell, 'f', -1, 64), strconv.FormatFloat(first.VolumePerWell, 'f', -1, 64)
	case row.Categories != first.Categories:
		return "categories", row.Categories, first.Categories
	case row.TargetNames != first.TargetNames:
		return "target names", row.TargetNames, first.TargetNames
	}

	return "", "", ""
}

func splitChannels(id string, n int, row Row, opts Options) ([]Channel, error) {
	colors := strings.Split(row.Categories, opts.CategorySeparator)
	antibodies := strings.Split(row.TargetNames, opts.TargetSeparator)

	if len(colors) != n {
		return nil, shapeErrorf(id, n, "categories %q name %d channels", row.Categories, len(colors))
	}
	if len(antibodies) != n {
		return nil, shapeErrorf(id, n, "target names %q name %d channels", row.TargetNames, len(antibodies))
	}

	channels := make([]Channel, n)
	for i := range channels {
		channels[i] = Channel{
			Index:    i,
			Color:    strings.TrimSpace(colors[i]),
			Antibody: strings.TrimSpace(antibodies[i]),
		}
	}

	return channels, nil
}
