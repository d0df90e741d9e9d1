package mofile

import (
	"sort"
	"strings"
)

// Layout names the columns of a multiple-occupancy export and the
// separators used inside its channel metadata columns. Column names are
// compared after NormalizeHeader.
type Layout struct {
	ColWell            string
	ColSampleName      string
	ColReactionMix     string
	ColPlateType       string
	ColPattern         string
	ColCount           string
	ColValidPartitions string
	ColVolumePerWell   string
	ColCategories      string
	ColTargetNames     string

	CategorySeparator string
	TargetSeparator   string
}

var Layouts = map[string]Layout{
	"QIACUITY": {
		ColWell:            "Well",
		ColSampleName:      "Sample name",
		ColReactionMix:     "Reaction Mix name",
		ColPlateType:       "Plate type",
		ColPattern:         "Group",
		ColCount:           "Count categories",
		ColValidPartitions: "Valid partitions",
		ColVolumePerWell:   "Volume per well [uL]",
		ColCategories:      "Categories",
		ColTargetNames:     "Target names",
		CategorySeparator:  "-",
		TargetSeparator:    ",",
	},
	// Tables already renamed to the pipeline's own column names, e.g. a
	// previous run's input saved from a notebook.
	"NORMALIZED": {
		ColWell:            "well",
		ColSampleName:      "sample_name",
		ColReactionMix:     "group",
		ColPlateType:       "plate_type",
		ColPattern:         "group_pattern",
		ColCount:           "count",
		ColValidPartitions: "valid_partitions",
		ColVolumePerWell:   "volume_per_well",
		ColCategories:      "category_label",
		ColTargetNames:     "target_names",
		CategorySeparator:  "-",
		TargetSeparator:    ",",
	},
}

func LayoutNames() string {
	names := make([]string, 0, len(Layouts))
	for m := range Layouts {
		names = append(names, m)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

// columns maps each source column of the layout to the csv tag of record.
func (l Layout) columns() map[string]string {
	return map[string]string{
		NormalizeHeader(l.ColWell):            "well",
		NormalizeHeader(l.ColSampleName):      "sample_name",
		NormalizeHeader(l.ColReactionMix):     "group",
		NormalizeHeader(l.ColPlateType):       "plate_type",
		NormalizeHeader(l.ColPattern):         "group_pattern",
		NormalizeHeader(l.ColCount):           "count",
		NormalizeHeader(l.ColValidPartitions): "valid_partitions",
		NormalizeHeader(l.ColVolumePerWell):   "volume_per_well",
		NormalizeHeader(l.ColCategories):      "category_label",
		NormalizeHeader(l.ColTargetNames):     "target_names",
	}
}

// NormalizeHeader trims a column name and spells both micro signs (U+00B5
// and U+03BC) as "u". Instrument exports have been seen to use either.
func NormalizeHeader(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	s = strings.ReplaceAll(s, "µ", "u")
	s = strings.ReplaceAll(s, "μ", "u")

	return s
}
