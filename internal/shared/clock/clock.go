package clock

import "time"

// Clock abstracts time.Now so expiry logic can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystem returns a Clock backed by the wall clock (UTC).
func NewSystem() Clock {
	return systemClock{}
}

// Fixed is a Clock pinned to a settable instant, for tests.
type Fixed struct {
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	return f.now
}

// Advance moves the fixed clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set pins the fixed clock to t.
func (f *Fixed) Set(t time.Time) {
	f.now = t
}
