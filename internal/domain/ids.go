package domain

import "strconv"

// ReservationID is the engine-assigned identifier of a reservation.
// Valid identifiers are positive; zero means "not yet assigned".
type ReservationID int64

func (id ReservationID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseReservationID parses a decimal identifier. Non-positive values are rejected.
func ParseReservationID(s string) (ReservationID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return ReservationID(n), nil
}
