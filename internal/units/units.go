// Package units provides shared constants and conversions for the time,
// speed and energy units that appear in recordings and derived metrics.
package units

import (
	"fmt"
	"time"
)

// TimeUnit names the unit of a recording's relative sample offsets.
type TimeUnit string

// Time unit constants
const (
	Seconds      TimeUnit = "s"
	Milliseconds TimeUnit = "ms"
)

// ValidTimeUnits contains all valid offset units
var ValidTimeUnits = []TimeUnit{Seconds, Milliseconds}

// IsValidTimeUnit checks if the given unit is in the list of valid units
func IsValidTimeUnit(u TimeUnit) bool {
	for _, valid := range ValidTimeUnits {
		if u == valid {
			return true
		}
	}
	return false
}

// ToSeconds converts an offset expressed in unit u to seconds.
// Unknown units are rejected rather than guessed.
func ToSeconds(offset float64, u TimeUnit) (float64, error) {
	switch u {
	case Seconds:
		return offset, nil
	case Milliseconds:
		return offset / 1000, nil
	default:
		return 0, fmt.Errorf("unknown time unit %q (valid: s, ms)", string(u))
	}
}

// SecondsToDuration converts fractional seconds to a time.Duration rounded to
// the nearest nanosecond.
func SecondsToDuration(secs float64) time.Duration {
	ns := secs * float64(time.Second)
	if ns < 0 {
		return time.Duration(ns - 0.5)
	}
	return time.Duration(ns + 0.5)
}
