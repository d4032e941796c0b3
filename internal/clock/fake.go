package clock

import "time"

// FakeClock is a manually stepped Clock for tests that pivot on slot
// cutoffs. Not safe for concurrent use.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start.UTC()}
}

func (f *FakeClock) Now() time.Time {
	return f.current
}

// Advance moves the clock forward by d. Negative d moves it back.
func (f *FakeClock) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
