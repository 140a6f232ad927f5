package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
	clockport "github.com/Overland-East-Bay/room-booking-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/room-booking-api/internal/ports/out/idgen"
	"github.com/Overland-East-Bay/room-booking-api/internal/ports/out/reservationrepo"
)

// Service is the admission controller: the only writer of the reservation store.
type Service struct {
	repo reservationrepo.Repository
	ids  idgen.Generator
	clk  clockport.Clock

	log zerolog.Logger
	rec Recorder

	// admit serializes conflict-check+insert and cancellation.
	admit sync.Mutex
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "reservations").Logger() }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.rec = r
		}
	}
}

func NewService(repo reservationrepo.Repository, ids idgen.Generator, clk clockport.Clock, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		ids:  ids,
		clk:  clk,
		log:  zerolog.Nop(),
		rec:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the draft and, if it does not overlap a confirmed reservation on the same
// resource and date, stores it as CONFIRMED with a fresh ID.
func (s *Service) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	started := time.Now()
	res, err := s.create(ctx, in)
	if err != nil {
		reason := "internal"
		if k, ok := KindOf(err); ok {
			reason = string(k)
		}
		s.rec.ReservationRejected(reason, time.Since(started))
		s.log.Debug().Err(err).Str("reason", reason).Str("resource", in.Resource).Msg("reservation rejected")
		return domain.Reservation{}, err
	}
	s.rec.ReservationCreated(time.Since(started))
	s.log.Info().
		Stringer("reservation_id", res.ID).
		Str("resource", res.Resource).
		Stringer("date", res.Date).
		Stringer("range", res.Range()).
		Msg("reservation created")
	return res, nil
}

func (s *Service) create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reservation{}, err
	}

	candidate, err := s.validate(in)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.admit.Lock()
	defer s.admit.Unlock()

	existing, err := s.repo.List(ctx)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("list reservations: %w", err)
	}
	if c, ok := FindConflict(candidate, existing); ok {
		return domain.Reservation{}, &ConflictError{Existing: c}
	}

	candidate.ID = s.ids.Next()
	candidate.Status = domain.ReservationStatusConfirmed
	if err := s.repo.Insert(ctx, candidate); err != nil {
		return domain.Reservation{}, fmt.Errorf("insert reservation %d: %w", candidate.ID, err)
	}
	return candidate, nil
}

// validate checks required fields, then staleness, then range, and returns the normalized
// candidate without ID or status.
func (s *Service) validate(in CreateReservationInput) (domain.Reservation, error) {
	resource := domain.NormalizeResource(in.Resource)
	if resource == "" {
		return domain.Reservation{}, &ValidationError{Field: FieldResource}
	}
	date, ok := in.Date.Get()
	if !ok || date.IsZero() {
		return domain.Reservation{}, &ValidationError{Field: FieldDate}
	}
	start, ok := in.Start.Get()
	if !ok {
		return domain.Reservation{}, &ValidationError{Field: FieldStartTime}
	}
	end, ok := in.End.Get()
	if !ok {
		return domain.Reservation{}, &ValidationError{Field: FieldEndTime}
	}
	requester := domain.NormalizeHumanName(in.Requester)
	if requester == "" {
		return domain.Reservation{}, &ValidationError{Field: FieldRequester}
	}

	today := s.today()
	if date.Before(today) {
		return domain.Reservation{}, &PastDateError{Date: date, Today: today}
	}

	if !start.Valid() || !end.Valid() || !(domain.TimeRange{Start: start, End: end}).Valid() {
		return domain.Reservation{}, &InvalidRangeError{Start: start, End: end}
	}

	return domain.Reservation{
		Resource:  resource,
		Date:      date,
		Start:     start,
		End:       end,
		Requester: requester,
	}, nil
}

// Cancel moves a confirmed reservation to CANCELLED. Unknown and already-cancelled IDs are
// reported as NotFoundError.
func (s *Service) Cancel(ctx context.Context, id domain.ReservationID) (domain.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reservation{}, err
	}

	s.admit.Lock()
	defer s.admit.Unlock()

	res, err := s.repo.Update(ctx, id, func(r *domain.Reservation) error {
		if !r.IsConfirmed() {
			return &NotFoundError{ID: id}
		}
		r.Status = domain.ReservationStatusCancelled
		return nil
	})
	if err != nil {
		if errors.Is(err, reservationrepo.ErrNotFound) {
			return domain.Reservation{}, &NotFoundError{ID: id}
		}
		return domain.Reservation{}, err
	}

	s.rec.ReservationCancelled()
	s.log.Info().Stringer("reservation_id", id).Str("resource", res.Resource).Msg("reservation cancelled")
	return res, nil
}

// GetByID returns the reservation when it exists and is confirmed. The boolean is false
// otherwise; err is reserved for store failures.
func (s *Service) GetByID(ctx context.Context, id domain.ReservationID) (domain.Reservation, bool, error) {
	res, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, reservationrepo.ErrNotFound) {
			return domain.Reservation{}, false, nil
		}
		return domain.Reservation{}, false, err
	}
	if !res.IsConfirmed() {
		return domain.Reservation{}, false, nil
	}
	return res, true, nil
}

// ListAll returns every confirmed reservation in insertion order.
func (s *Service) ListAll(ctx context.Context) ([]domain.Reservation, error) {
	return s.List(ctx, ListFilter{})
}

// ListByResource returns confirmed reservations for resource (case-insensitive).
func (s *Service) ListByResource(ctx context.Context, resource string) ([]domain.Reservation, error) {
	return s.List(ctx, ListFilter{Resource: resource})
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Reservation, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resource := strings.TrimSpace(f.Resource)
	date, byDate := f.Date.Get()

	out := make([]domain.Reservation, 0, len(all))
	for _, r := range all {
		if !r.IsConfirmed() {
			continue
		}
		if resource != "" && !domain.SameResource(r.Resource, resource) {
			continue
		}
		if byDate && r.Date != date {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Service) today() domain.Date {
	return domain.DateOf(s.clk.Now())
}
