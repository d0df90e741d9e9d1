package pico

import (
	"io"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// SeparatorHint reports the delimiter declared by a spreadsheet-style
// "sep=," preamble line. Instrument exports write this line ahead of the
// header so that spreadsheet programs pick the right delimiter.
func SeparatorHint(line string) (rune, bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if !strings.HasPrefix(strings.ToLower(line), "sep=") {
		return 0, false
	}

	sep := []rune(strings.Trim(line[len("sep="):], `"`))
	if len(sep) == 0 {
		// "sep=\t" arrives as an actual tab, which TrimSpace removed above
		return '\t', true
	}

	return sep[0], true
}
