package macro

import "time"

// Clock supplies monotonic time and blocking sleep to the timing loops
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock. time.Now carries a monotonic reading, so
// offsets computed with Sub are immune to wall clock adjustments.
var SystemClock Clock = systemClock{}

// sleepUntil blocks until deadline. It returns immediately when the deadline
// has already passed.
func sleepUntil(clock Clock, deadline time.Time) {
	if d := deadline.Sub(clock.Now()); d > 0 {
		clock.Sleep(d)
	}
}
