// Package system provides indexer.Clock implementations.
package system

import "time"

// Clock reads the wall clock in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Func adapts a function to indexer.Clock, mostly for pinning time in tests.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Func {
	return func() time.Time { return t }
}
