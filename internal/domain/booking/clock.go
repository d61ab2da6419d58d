package booking

import "time"

// Clock supplies the current time. It decides "today" for availability and
// active/past classification, and stamps creation and cancellation.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock returns a clock reporting time in loc (UTC when nil).
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c SystemClock) Now() time.Time {
	loc := c.loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.T }

// Today returns the calendar day of clock.Now().
func Today(clock Clock) Date {
	return DateOf(clock.Now())
}
