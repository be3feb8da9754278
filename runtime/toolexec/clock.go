package toolexec

import "time"

// clock abstracts wall-clock reads so breaker windows and latency
// measurements can be driven by a fake in tests.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
