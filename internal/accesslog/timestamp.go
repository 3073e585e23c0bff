package accesslog

import (
	"fmt"
	"math"
	"time"
)

// TimestampUnit is the unit of the numeric epoch value in the first column.
type TimestampUnit string

const (
	UnitSeconds      TimestampUnit = "s"
	UnitMilliseconds TimestampUnit = "ms"
	UnitMicroseconds TimestampUnit = "us"
	UnitNanoseconds  TimestampUnit = "ns"
)

// maxEpochSeconds bounds timestamps to what fits in int64 nanoseconds
// (roughly the years 1677 to 2262).
const maxEpochSeconds = float64(math.MaxInt64) / 1e9

// ParseTimestampUnit validates a unit name. An empty name means seconds.
func ParseTimestampUnit(s string) (TimestampUnit, error) {
	switch TimestampUnit(s) {
	case "":
		return UnitSeconds, nil
	case UnitSeconds, UnitMilliseconds, UnitMicroseconds, UnitNanoseconds:
		return TimestampUnit(s), nil
	}
	return "", fmt.Errorf("unknown timestamp unit %q (want s, ms, us or ns)", s)
}

func (u TimestampUnit) perSecond() float64 {
	switch u {
	case UnitMilliseconds:
		return 1e3
	case UnitMicroseconds:
		return 1e6
	case UnitNanoseconds:
		return 1e9
	default:
		return 1
	}
}

// Time converts an epoch value expressed in u into a UTC time.
func (u TimestampUnit) Time(v float64) (time.Time, bool) {
	secs := v / u.perSecond()
	if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) >= maxEpochSeconds {
		return time.Time{}, false
	}
	whole := math.Floor(secs)
	nanos := math.Round((secs - whole) * 1e9)
	return time.Unix(int64(whole), int64(nanos)).UTC(), true
}
