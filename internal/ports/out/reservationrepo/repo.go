package reservationrepo

import (
	"context"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
)

// Mutator edits a reservation in place. Returning an error aborts the update.
type Mutator func(r *domain.Reservation) error

// Repository owns the reservation collection.
//
// Records cross the boundary by value: callers never hold a reference into the store.
// Reads must observe fully written records only.
type Repository interface {
	// Insert stores a new record. ErrAlreadyExists is returned for a duplicate or non-positive ID.
	Insert(ctx context.Context, r domain.Reservation) error

	// Get returns the record regardless of status. ErrNotFound if the ID was never inserted.
	Get(ctx context.Context, id domain.ReservationID) (domain.Reservation, error)

	// List returns every record (all statuses) in insertion order.
	List(ctx context.Context) ([]domain.Reservation, error)

	// Update applies fn atomically and returns the updated record.
	// The record ID cannot be changed by fn.
	Update(ctx context.Context, id domain.ReservationID, fn Mutator) (domain.Reservation, error)
}
