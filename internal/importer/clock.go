package importer

import "time"

// Clock is the time source for all "now" comparisons in the pipeline. It is
// injected so that expiry and rollback windows can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock returns the wall clock time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().In(time.UTC)
}
