package idgen

import "github.com/Overland-East-Bay/room-booking-api/internal/domain"

// Generator hands out reservation identifiers.
//
// Implementations must be safe for concurrent use and must return values that are positive,
// strictly increasing and never repeated for the lifetime of the generator.
type Generator interface {
	Next() domain.ReservationID
}
