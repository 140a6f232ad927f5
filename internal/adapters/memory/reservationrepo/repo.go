package reservationrepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
	"github.com/Overland-East-Bay/room-booking-api/internal/ports/out/reservationrepo"
)

// Repo is an in-memory implementation of reservationrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu    sync.RWMutex
	byID  map[domain.ReservationID]domain.Reservation
	order []domain.ReservationID
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.ReservationID]domain.Reservation),
	}
}

func (r *Repo) Insert(ctx context.Context, res domain.Reservation) error {
	_ = ctx
	if res.ID <= 0 {
		return reservationrepo.ErrAlreadyExists // treat unassigned ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[res.ID]; ok {
		return reservationrepo.ErrAlreadyExists
	}
	r.byID[res.ID] = res
	r.order = append(r.order, res.ID)
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.ReservationID) (domain.Reservation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byID[id]
	if !ok {
		return domain.Reservation{}, reservationrepo.ErrNotFound
	}
	return res, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Reservation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Reservation, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out, nil
}

func (r *Repo) Update(ctx context.Context, id domain.ReservationID, fn reservationrepo.Mutator) (domain.Reservation, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byID[id]
	if !ok {
		return domain.Reservation{}, reservationrepo.ErrNotFound
	}
	// Mutate a copy so an aborted update leaves the stored record untouched.
	next := cur
	if err := fn(&next); err != nil {
		return domain.Reservation{}, err
	}
	next.ID = id
	r.byID[id] = next
	return next, nil
}

// Len reports the number of stored records, cancelled ones included.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
