package serial

import (
	"path/filepath"
	"sort"
)

// candidateGlobs match device nodes that look like a USB serial adapter,
// in preference order (Linux first, then macOS callout devices).
var candidateGlobs = []string{
	"/dev/ttyACM*",
	"/dev/ttyUSB*",
	"/dev/cu.usbmodem*",
	"/dev/cu.usbserial*",
}

// Candidates returns every device node matching a known USB-serial pattern,
// in preference order.
func Candidates() []string {
	var out []string
	for _, pattern := range candidateGlobs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out
}

// Autodetect picks the first candidate port, or "" when none is present.
func Autodetect() string {
	if c := Candidates(); len(c) > 0 {
		return c[0]
	}
	return ""
}
