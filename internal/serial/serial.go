// Package serial converts time.Time values into the floating-point date
// serial numbers that spreadsheet cells store.
//
// It is kept internal so that both the worksheet renderer and the public
// facade use exactly the same conversion without an import cycle.
package serial

import (
	"fmt"
	"time"
)

// FromTime converts t to a date serial number in the requested date system.
//
// In the 1900 system (date1904 == false), serial 1 is 1900-01-01 and the
// Lotus 1-2-3 leap-year bug applies: Lotus incorrectly treated 1900 as a
// leap year, so every file-format serial from 1900-03-01 onwards is one
// higher than the true day count.  Serial 60 (the phantom 1900-02-29) is
// therefore never produced by this function; 1900-03-01 maps straight to 61.
//
// In the 1904 system, serial 0 is 1904-01-01 and no compensation applies.
//
// The fractional part encodes the time of day at one-second resolution.
// Dates before the system's base date return an error.
func FromTime(t time.Time, date1904 bool) (float64, error) {
	t = t.UTC()
	frac := float64(t.Hour()*3600+t.Minute()*60+t.Second()) / 86400.0

	if date1904 {
		days := epochDays(t) - epochDays(time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC))
		if days < 0 {
			return 0, fmt.Errorf("serial: %v predates the 1904 date system", t)
		}
		return float64(days) + frac, nil
	}

	// Days since 1899-12-31, so 1900-01-01 becomes serial 1.
	days := epochDays(t) - epochDays(time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC))
	if days < 0 {
		return 0, fmt.Errorf("serial: %v predates the 1900 date system", t)
	}
	if days >= 60 {
		// 1900-03-01 onwards: skip over the phantom leap day.
		days++
	}
	return float64(days) + frac, nil
}

// epochDays returns the whole days between the Unix epoch and t's calendar
// date.  Midnight UTC is always an exact multiple of 86400 seconds, so the
// division is exact even for negative (pre-1970) values.
func epochDays(t time.Time) int {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix() / 86400)
}
