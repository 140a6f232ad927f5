package reservations

import "github.com/Overland-East-Bay/room-booking-api/internal/domain"

// Optional distinguishes a supplied value from an omitted one.
type Optional[T any] struct {
	set   bool
	value T
}

func Some[T any](v T) Optional[T] { return Optional[T]{set: true, value: v} }
func None[T any]() Optional[T]    { return Optional[T]{} }

// FromPtr maps nil to None and anything else to Some(*p).
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

func (o Optional[T]) IsSet() bool    { return o.set }
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// CreateReservationInput is a reservation draft as received from the request layer.
type CreateReservationInput struct {
	Resource  string
	Date      Optional[domain.Date]
	Start     Optional[domain.TimeOfDay]
	End       Optional[domain.TimeOfDay]
	Requester string
}

// ListFilter narrows List results. Zero value means "all confirmed reservations".
type ListFilter struct {
	// Resource matches case-insensitively; empty means any resource.
	Resource string
	Date     Optional[domain.Date]
}
