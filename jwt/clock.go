package jwt

import "time"

// Clock supplies the current time to time-based constraints.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FrozenClock always returns the same instant.
type FrozenClock struct {
	At time.Time
}

func (c FrozenClock) Now() time.Time { return c.At }
