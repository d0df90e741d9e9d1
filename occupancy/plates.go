package occupancy

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Plate maps a plate format, matched as a substring of the instrument's
// plate type, to the mastermix volume in µL loaded per well.
type Plate struct {
	Format          string
	MastermixVolume float64
}

// DefaultPlates are the nanoplate formats with known mastermix volumes.
var DefaultPlates = []Plate{
	{Format: "8.5K", MastermixVolume: 13},
	{Format: "26K", MastermixVolume: 42},
}

// LookupMastermix returns the mastermix volume of the first plate whose
// format occurs in plateType. The result is null when no format matches;
// callers must not substitute a numeric default.
func LookupMastermix(plates []Plate, plateType string) null.Float {
	for _, p := range plates {
		if p.Format != "" && strings.Contains(plateType, p.Format) {
			return null.FloatFrom(p.MastermixVolume)
		}
	}

	return null.Float{}
}

// ParsePlates reads a plate table written as "8.5K=13,26K=42".
func ParsePlates(s string) ([]Plate, error) {
	out := make([]Plate, 0)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("plate entry %q is not of the form FORMAT=VOLUME", entry)
		}

		vol, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("plate entry %q: %w", entry, err)
		}
		if vol <= 0 {
			return nil, fmt.Errorf("plate entry %q: mastermix volume must be positive", entry)
		}

		out = append(out, Plate{Format: strings.TrimSpace(parts[0]), MastermixVolume: vol})
	}

	return out, nil
}
