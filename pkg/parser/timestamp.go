package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the Go layout for the dd/mm/yyyy:HH:MM:SS access-log
// timestamp. Every field except the year accepts one or two digits.
const TimestampLayout = "2/1/2006:15:4:5"

// ParseTimestamp parses a raw timestamp field strictly: no timezone,
// no fractional seconds, no trailing text.
func ParseTimestamp(s string) (time.Time, error) {
	// time.Parse accepts a fractional second after the seconds field even
	// when the layout has none.
	if strings.ContainsAny(s, ".,") {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, errFractionalSeconds)
	}
	ts, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return ts, nil
}

var errFractionalSeconds = errors.New("fractional seconds not allowed")

// ValidTimestamp reports whether s parses under TimestampLayout.
func ValidTimestamp(s string) bool {
	_, err := ParseTimestamp(s)
	return err == nil
}
