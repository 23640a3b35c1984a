package timeutil

import (
	"fmt"
	"math"
	"time"
)

// LoadTimezone resolves an IANA timezone name against the system tz database.
// The empty name means UTC.
func LoadTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %s: %w", tz, err)
	}
	return loc, nil
}

// UnixSeconds is t as fractional seconds since the epoch, the form the
// session store keeps timestamps in.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromUnixSeconds is the inverse of UnixSeconds, rounded to the microsecond.
func FromUnixSeconds(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e6))*1e3).UTC()
}

// FormatUnix renders fractional epoch seconds in loc as RFC 3339.
func FormatUnix(sec float64, loc *time.Location) string {
	return FromUnixSeconds(sec).In(loc).Format(time.RFC3339)
}
