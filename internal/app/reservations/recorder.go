package reservations

import "time"

// Recorder receives admission outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	ReservationCreated(d time.Duration)
	ReservationRejected(reason string, d time.Duration)
	ReservationCancelled()
}

type nopRecorder struct{}

func (nopRecorder) ReservationCreated(time.Duration)          {}
func (nopRecorder) ReservationRejected(string, time.Duration) {}
func (nopRecorder) ReservationCancelled()                     {}
