// Package format renders numbers for the human-readable report tables.
package format

import (
	"strconv"
	"strings"
)

// Number renders x with the given decimal precision, comma-grouped
// thousands and a plain "." decimal mark. Precision 0 yields an
// integer. Negative values keep a single leading minus.
func Number(x float64, precision int) string {
	if precision < 0 {
		precision = 0
	}
	if x < 0 {
		return "-" + Number(-x, precision)
	}

	s := strconv.FormatFloat(x, 'f', precision, 64)
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	grouped := group(intPart)
	if hasFrac {
		return grouped + "." + fracPart
	}
	return grouped
}

// Parse reverses Number: it strips grouping commas and parses the
// remainder as a float. Used when a formatted value feeds back into a
// computation.
func Parse(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func group(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
