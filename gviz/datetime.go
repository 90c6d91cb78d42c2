package gviz

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date and datetime cells arrive as a sentinel constructor string,
// e.g. "Date(2024,0,15)" or "Date(2024,0,15,9,30,0)". The month argument is
// zero-based on the wire. Time-of-day cells arrive as an array of numeric
// components [hour, minute, second, millisecond].

const dateSentinelPrefix = "Date("

// ParseDateSentinel parses a "Date(...)" sentinel string into a time.Time.
// Accepts 3 to 7 numeric arguments: year, zero-based month, day, and
// optionally hour, minute, second, millisecond. Unset time components
// default to zero. The returned time is in UTC.
func ParseDateSentinel(s string) (time.Time, error) {
	if !strings.HasPrefix(s, dateSentinelPrefix) || !strings.HasSuffix(s, ")") {
		return time.Time{}, fmt.Errorf("%w: not a date sentinel: %q", ErrMalformed, s)
	}

	inner := s[len(dateSentinelPrefix) : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) < 3 || len(parts) > 7 {
		return time.Time{}, fmt.Errorf("%w: date sentinel has %d arguments: %q", ErrMalformed, len(parts), s)
	}

	args := make([]int, 7)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date sentinel argument %q: %q", ErrMalformed, p, s)
		}
		args[i] = n
	}

	year, month, day := args[0], args[1], args[2]
	hour, minute, sec, msec := args[3], args[4], args[5], args[6]

	return time.Date(year, time.Month(month+1), day, hour, minute, sec, msec*int(time.Millisecond), time.UTC), nil
}

// FormatTimeOfDay renders a timeofday component array as a zero-padded
// "HH:MM:SS" string. The fractional (millisecond) component is discarded.
// Returns false if the array has fewer than three numeric components.
func FormatTimeOfDay(components []any) (string, bool) {
	if len(components) < 3 {
		return "", false
	}

	nums := make([]int, 3)
	for i := range nums {
		f, ok := components[i].(float64)
		if !ok {
			return "", false
		}
		nums[i] = int(f)
	}

	return fmt.Sprintf("%02d:%02d:%02d", nums[0], nums[1], nums[2]), true
}
