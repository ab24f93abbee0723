// Package timeutil normalizes the heterogeneous date and datetime inputs
// accepted on the command line and in report queries to UTC instants.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrBadTimestamp is returned when an input cannot be parsed as a timestamp.
var ErrBadTimestamp = errors.New("bad timestamp")

// ErrInvalidUnit is returned for an unrecognized epoch unit.
var ErrInvalidUnit = errors.New("invalid epoch unit")

// ErrBadRange is returned when a time range has end before start.
var ErrBadRange = errors.New("bad time range")

// Epoch units accepted by EpochToDatetime.
const (
	UnitSecond      = "second"
	UnitMillisecond = "millisecond"
	UnitMicrosecond = "microsecond"
)

// layouts accepted for string inputs, tried in order. Date-only inputs
// parse as midnight of that day.
var layouts = []string{
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// Range is a half-open UTC interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange builds a Range, enforcing Start <= End.
func NewRange(start, end time.Time) (Range, error) {
	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: start %s after end %s", ErrBadRange, start, end)
	}
	return Range{Start: start.UTC(), End: end.UTC()}, nil
}

// ParseDatetime converts value to a UTC instant. Accepted inputs are
// time.Time values and strings in dash or slash date or datetime form.
// When utc is false a naive string is interpreted in the host's local
// zone before conversion.
func ParseDatetime(value any, utc bool) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		// time.Time always carries a zone, so the utc flag only
		// matters for strings.
		return v.UTC(), nil
	case string:
		loc := time.Local
		if utc {
			loc = time.UTC
		}
		for _, layout := range layouts {
			t, err := time.ParseInLocation(layout, v, loc)
			if err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, v)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported type %T", ErrBadTimestamp, value)
	}
}

// EpochToDatetime converts an epoch count in the given unit to a UTC
// instant. Fractional input rounds to the nearest whole millisecond.
func EpochToDatetime(n float64, unit string) (time.Time, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return time.Time{}, fmt.Errorf("%w: non-numeric epoch value", ErrBadTimestamp)
	}
	var ms float64
	switch unit {
	case UnitSecond:
		ms = n * 1000
	case UnitMillisecond:
		ms = n
	case UnitMicrosecond:
		ms = n / 1000
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
	rounded := int64(math.Round(ms))
	return time.UnixMilli(rounded).UTC(), nil
}

// EpochRangeUTCMillis returns the epoch-millisecond endpoints of
// [start, end), used to build dashboard deep-links. start must not be
// after end.
func EpochRangeUTCMillis(start, end time.Time) (int64, int64, error) {
	if end.Before(start) {
		return 0, 0, fmt.Errorf("%w: start %s after end %s", ErrBadRange, start, end)
	}
	return start.UTC().UnixMilli(), end.UTC().UnixMilli(), nil
}
