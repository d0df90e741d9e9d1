package partition

// Row is one line of the partition table: the number of partitions of a
// well that share one positive/negative pattern, plus the well metadata
// repeated on every line.
type Row struct {
	Well            string
	SampleName      string
	Group           string // reaction mix name
	PlateType       string
	Pattern         Pattern
	Count           int64
	ValidPartitions int64
	VolumePerWell   float64 // µL
	Categories      string  // channel colors, joined by a separator
	TargetNames     string  // antibody names, joined by a separator
}

// Channel is one fluorescence channel of a run.
type Channel struct {
	Index    int
	Color    string
	Antibody string
}

// Initial is the first letter of the channel's color, used to build
// colorpair labels.
func (c Channel) Initial() string {
	for _, r := range c.Color {
		return string(r)
	}

	return ""
}

// Well is the complete pattern table of one well. Counts is indexed by
// Pattern.Mask and always has 2^n entries.
type Well struct {
	ID              string
	SampleName      string
	Group           string
	PlateType       string
	ValidPartitions int64
	VolumePerWell   float64
	Channels        []Channel
	Counts          []int64
}

// N is the number of channels.
func (w Well) N() int {
	return len(w.Channels)
}

// Count returns the number of partitions with pattern p.
func (w Well) Count(p Pattern) int64 {
	mask := p.Mask()
	if len(p) != w.N() || int(mask) >= len(w.Counts) {
		return 0
	}

	return w.Counts[mask]
}

// Total sums the partition counts over all patterns.
func (w Well) Total() int64 {
	var total int64
	for _, c := range w.Counts {
		total += c
	}

	return total
}
