package domain

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a claim on a resource for a time range on one date.
type Reservation struct {
	ID ReservationID

	Resource  string
	Date      Date
	Start     TimeOfDay
	End       TimeOfDay
	Requester string

	Status ReservationStatus
}

func (r Reservation) Range() TimeRange { return TimeRange{Start: r.Start, End: r.End} }

func (r Reservation) IsConfirmed() bool { return r.Status == ReservationStatusConfirmed }

// SameSlot reports whether both reservations target the same resource on the same date.
func (r Reservation) SameSlot(o Reservation) bool {
	return r.Date == o.Date && SameResource(r.Resource, o.Resource)
}
