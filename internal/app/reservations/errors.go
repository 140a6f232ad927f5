package reservations

import (
	"errors"
	"fmt"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
)

// Kind classifies admission failures so callers can branch without inspecting messages.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindPastDate     Kind = "PAST_DATE"
	KindInvalidRange Kind = "INVALID_TIME_RANGE"
	KindConflict     Kind = "RESERVATION_CONFLICT"
	KindNotFound     Kind = "RESERVATION_NOT_FOUND"
)

// Required field names reported by ValidationError.
const (
	FieldResource  = "resource"
	FieldDate      = "date"
	FieldStartTime = "startTime"
	FieldEndTime   = "endTime"
	FieldRequester = "requester"
)

// ValidationError reports a missing or blank required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("field %q is required", e.Field) }
func (e *ValidationError) Kind() Kind    { return KindValidation }

// PastDateError reports a reservation date earlier than today.
type PastDateError struct {
	Date  domain.Date
	Today domain.Date
}

func (e *PastDateError) Error() string {
	return fmt.Sprintf("reservation date must be today or later: got %s, today is %s", e.Date, e.Today)
}
func (e *PastDateError) Kind() Kind { return KindPastDate }

// InvalidRangeError reports an end time that is not after the start time.
type InvalidRangeError struct {
	Start domain.TimeOfDay
	End   domain.TimeOfDay
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("end time (%s) must be after start time (%s)", e.End, e.Start)
}
func (e *InvalidRangeError) Kind() Kind { return KindInvalidRange }

// ConflictError reports an overlapping confirmed reservation. Existing is one witness;
// there may be others.
type ConflictError struct {
	Existing domain.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("resource already booked from %s to %s", e.Existing.Start, e.Existing.End)
}
func (e *ConflictError) Kind() Kind { return KindConflict }

// Range is the time range of the conflicting reservation.
func (e *ConflictError) Range() domain.TimeRange { return e.Existing.Range() }

// NotFoundError reports an ID that does not exist or is already cancelled.
type NotFoundError struct {
	ID domain.ReservationID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("reservation not found with id: %d", e.ID) }
func (e *NotFoundError) Kind() Kind    { return KindNotFound }

type kinded interface {
	error
	Kind() Kind
}

// KindOf returns the kind of an admission error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var ke kinded
	if errors.As(err, &ke) {
		return ke.Kind(), true
	}
	return "", false
}
