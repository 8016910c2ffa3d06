package clock

import "time"

// Clock abstracts wall-clock reads and timer waits so jobs can be
// driven by a fake in tests.
type Clock interface {
	Now() time.Time
	// After behaves like time.After relative to this clock's notion of
	// now.
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewSystemClock returns a Clock backed by time.Now in UTC.
func NewSystemClock() Clock {
	return systemClock{}
}
