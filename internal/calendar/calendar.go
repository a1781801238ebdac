// Package calendar knows the NEPSE trading week. The exchange observes the
// Nepali weekend: trading halts on Friday and Saturday, and Sunday is a
// regular trading day.
package calendar

import "time"

// IsClosed reports whether the market is closed on the given date.
// This is a pure weekday rule; public holidays are not tracked here and a
// holiday simply yields an empty dataset upstream.
func IsClosed(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Friday || wd == time.Saturday
}

// IsOpen reports whether the given date is a trading day.
func IsOpen(date time.Time) bool {
	return !IsClosed(date)
}
