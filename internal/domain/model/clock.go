package model

import "time"

// now is swapped in tests that need a fixed clock. Microsecond precision
// matches what Postgres stores.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// startOfDay truncates t to midnight UTC.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
