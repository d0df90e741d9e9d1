package partition

import (
	"fmt"
	"strings"
)

const (
	Positive = '+'
	Negative = '-'

	MinChannels = 2
	MaxChannels = 4
)

// Pattern is the positive/negative call of one partition across all
// channels, one symbol per channel in channel order, e.g. "+-+".
type Pattern string

// ParsePattern validates s as a Pattern. It does not enforce the supported
// channel range; see SupportedChannels.
func ParsePattern(s string) (Pattern, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty partition pattern")
	}
	for i, c := range s {
		if c != Positive && c != Negative {
			return "", fmt.Errorf("partition pattern %q has %q at position %d; only '+' and '-' are allowed", s, c, i)
		}
	}

	return Pattern(s), nil
}

// Channels is the number of channels the pattern covers.
func (p Pattern) Channels() int {
	return len(p)
}

// IsPositive reports whether channel ch is called positive.
func (p Pattern) IsPositive(ch int) bool {
	return p[ch] == Positive
}

// Mask packs the pattern into a bitmask with bit i set when channel i is
// positive.
func (p Pattern) Mask() uint {
	var mask uint
	for i := 0; i < len(p); i++ {
		if p[i] == Positive {
			mask |= 1 << uint(i)
		}
	}

	return mask
}

// PatternFromMask is the inverse of Pattern.Mask for an n-channel run.
func PatternFromMask(mask uint, n int) Pattern {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		if mask&(1<<uint(i)) != 0 {
			b[i] = Positive
		} else {
			b[i] = Negative
		}
	}

	return Pattern(b)
}

// AllPatterns enumerates the 2^n patterns of an n-channel run in mask order.
func AllPatterns(n int) []Pattern {
	out := make([]Pattern, 0, 1<<uint(n))
	for mask := uint(0); mask < 1<<uint(n); mask++ {
		out = append(out, PatternFromMask(mask, n))
	}

	return out
}

// SupportedChannels reports whether n channels can be processed.
func SupportedChannels(n int) bool {
	return n >= MinChannels && n <= MaxChannels
}
