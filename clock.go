package kbench

import "time"

// Clock supplies timestamps for the timing protocol. Readings must come
// from a monotonic source; a zero reading or a span that goes backwards
// aborts the run.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, whose result carries the runtime's monotonic
// clock reading, so Sub between two readings ignores wall-clock steps.
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }

// Since returns the span between start and the clock's current reading
func Since(c Clock, start time.Time) (time.Duration, error) {
	return span(start, c.Now())
}
