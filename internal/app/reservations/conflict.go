package reservations

import "github.com/Overland-East-Bay/room-booking-api/internal/domain"

// FindConflict returns a confirmed reservation in existing that targets the candidate's resource
// and date and whose time range intersects the candidate's. When several conflict, the first in
// iteration order is returned. A record carrying the candidate's own (assigned) ID is skipped.
func FindConflict(candidate domain.Reservation, existing []domain.Reservation) (domain.Reservation, bool) {
	cr := candidate.Range()
	for _, r := range existing {
		if !r.IsConfirmed() {
			continue
		}
		if candidate.ID != 0 && r.ID == candidate.ID {
			continue
		}
		if !r.SameSlot(candidate) {
			continue
		}
		if r.Range().Overlaps(cr) {
			return r, true
		}
	}
	return domain.Reservation{}, false
}
