package rewards

import "time"

// Clock supplies the current instant. The streak and habit components take a
// Clock instead of calling time.Now so tests can pin exact hour boundaries.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
