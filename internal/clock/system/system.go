// Package system supplies the wall clock that stamps alert lines, status
// snapshots and archived release rows.
package system

import "time"

// Clock reads the host wall clock. Archive rows and alert prefixes are
// always rendered in UTC, so Now never returns a local time.
type Clock struct{}

// New returns the wall clock used outside tests.
func New() *Clock {
	return &Clock{}
}

// Now reports the current UTC time.
func (*Clock) Now() time.Time {
	return time.Now().UTC()
}
