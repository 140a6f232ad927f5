package clock

import "time"

// Clock provides time to the application.
// The admission path derives "today" from Now() in the clock's location, so tests can pin it.
type Clock interface {
	Now() time.Time
}
