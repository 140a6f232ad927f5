package idgen

import (
	"sync/atomic"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
)

// Sequence is an in-memory implementation of idgen.Generator.
// It is safe for concurrent use.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a generator whose first identifier is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceFrom returns a generator whose first identifier is last+1.
func NewSequenceFrom(last domain.ReservationID) *Sequence {
	s := &Sequence{}
	if last > 0 {
		s.last.Store(int64(last))
	}
	return s
}

func (s *Sequence) Next() domain.ReservationID {
	return domain.ReservationID(s.last.Add(1))
}
