package alarm

import "time"

// Clock abstracts time so scheduling and trigger checks are deterministic in tests
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
