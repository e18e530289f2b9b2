// Package slot holds the time-slot rules shared by room bookings: time
// normalisation, the canonical "HH:MM-HH:MM" encoding and interval overlap.
package slot

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	clockLayout = "15:04"
	separator   = "-"
)

var (
	paddedClock   = regexp.MustCompile(`^\d{2}:\d{2}$`)
	unpaddedClock = regexp.MustCompile(`^\d:\d{2}$`)
)

// Interval is a half-open [Start, End) range of wall-clock times encoded as
// zero-padded 24-hour "HH:MM" strings. Because of that encoding, string
// comparison orders intervals correctly.
type Interval struct {
	Start string
	End   string
}

func (i Interval) String() string {
	return i.Start + separator + i.End
}

// NormalizeTime zero-pads single-digit hours and reformats anything time.Parse
// accepts as "HH:MM". Input it cannot make sense of is returned unchanged;
// NewInterval rejects it later.
func NormalizeTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || paddedClock.MatchString(value) {
		return value
	}
	if unpaddedClock.MatchString(value) {
		return "0" + value
	}
	if t, err := time.Parse(clockLayout, value); err == nil {
		return t.Format(clockLayout)
	}
	return value
}

// NewInterval normalises both bounds and checks that they are valid clock
// times with start strictly before end.
func NewInterval(start, end string) (Interval, error) {
	i := Interval{Start: NormalizeTime(start), End: NormalizeTime(end)}
	if !validClock(i.Start) {
		return Interval{}, fmt.Errorf("invalid start time %q", start)
	}
	if !validClock(i.End) {
		return Interval{}, fmt.Errorf("invalid end time %q", end)
	}
	if i.Start >= i.End {
		return Interval{}, fmt.Errorf("end time %s must be after start time %s", i.End, i.Start)
	}
	return i, nil
}

// Parse decodes the canonical "HH:MM-HH:MM" encoding stored on a time slot.
func Parse(encoded string) (Interval, error) {
	start, end, ok := strings.Cut(encoded, separator)
	if !ok {
		return Interval{}, fmt.Errorf("malformed time slot %q", encoded)
	}
	return NewInterval(start, end)
}

// Overlaps reports whether a and b share any instant. Touching intervals,
// where one ends exactly when the other starts, do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func validClock(value string) bool {
	if !paddedClock.MatchString(value) {
		return false
	}
	_, err := time.Parse(clockLayout, value)
	return err == nil
}
