package domain

import "time"

type Clock interface {
	Now() time.Time
}

// ClockFunc adapta uma função (ex: time.Now) para Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
