package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/room-booking-api/internal/ports/out/idempotency"
	reservationrepoport "github.com/Overland-East-Bay/room-booking-api/internal/ports/out/reservationrepo"
)

type CleanupFunc = func()

type ReservationRepoFactory func(t *testing.T) (reservationrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key(uuid.NewString()),
		Method:   "POST",
		Route:    "/reservations",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// PutIfAbsent keeps the first record.
	other := fp
	other.Key = idempotencyport.Key(uuid.NewString())
	first, stored, err := store.PutIfAbsent(ctx, other, idempotencyport.Record{Body: []byte("first")})
	if err != nil || !stored || string(first.Body) != "first" {
		t.Fatalf("PutIfAbsent first: stored=%v err=%v body=%q", stored, err, string(first.Body))
	}
	cur, stored, err := store.PutIfAbsent(ctx, other, idempotencyport.Record{Body: []byte("second")})
	if err != nil || stored || string(cur.Body) != "first" {
		t.Fatalf("PutIfAbsent second: stored=%v err=%v body=%q", stored, err, string(cur.Body))
	}
}

func RunReservationRepo(t *testing.T, newRepo ReservationRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	date := domain.NewDate(2030, time.March, 4)
	a := domain.Reservation{
		ID:        1,
		Resource:  "Room A",
		Date:      date,
		Start:     domain.MustTimeOfDay(9, 0),
		End:       domain.MustTimeOfDay(10, 0),
		Requester: "Alice",
		Status:    domain.ReservationStatusConfirmed,
	}
	b := a
	b.ID = 2
	b.Start, b.End = domain.MustTimeOfDay(10, 0), domain.MustTimeOfDay(11, 0)
	b.Requester = "Bob"

	if _, err := repo.Get(ctx, 1); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("Get(empty) err=%v, want ErrNotFound", err)
	}

	if err := repo.Insert(ctx, a); err != nil {
		t.Fatalf("Insert a: %v", err)
	}
	if err := repo.Insert(ctx, b); err != nil {
		t.Fatalf("Insert b: %v", err)
	}

	// ID uniqueness.
	if err := repo.Insert(ctx, a); !errors.Is(err, reservationrepoport.ErrAlreadyExists) {
		t.Fatalf("Insert duplicate err=%v, want ErrAlreadyExists", err)
	}
	unassigned := a
	unassigned.ID = 0
	if err := repo.Insert(ctx, unassigned); err == nil {
		t.Fatalf("expected error inserting unassigned ID")
	}

	got, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != a {
		t.Fatalf("Get()=%+v, want %+v", got, a)
	}

	// Insertion order.
	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("List()=%+v, want IDs [1 2]", all)
	}

	// Returned values are copies.
	all[0].Status = domain.ReservationStatusCancelled
	if got, _ := repo.Get(ctx, 1); got.Status != domain.ReservationStatusConfirmed {
		t.Fatalf("store mutated through List result: %+v", got)
	}

	// Aborted update leaves the record unchanged.
	errAbort := errors.New("abort")
	if _, err := repo.Update(ctx, 1, func(r *domain.Reservation) error {
		r.Status = domain.ReservationStatusCancelled
		return errAbort
	}); !errors.Is(err, errAbort) {
		t.Fatalf("Update abort err=%v, want %v", err, errAbort)
	}
	if got, _ := repo.Get(ctx, 1); got.Status != domain.ReservationStatusConfirmed {
		t.Fatalf("aborted update was applied: %+v", got)
	}

	// Update cannot change the ID.
	updated, err := repo.Update(ctx, 1, func(r *domain.Reservation) error {
		r.Status = domain.ReservationStatusCancelled
		r.ID = 99
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID != 1 || updated.Status != domain.ReservationStatusCancelled {
		t.Fatalf("Update()=%+v", updated)
	}
	if _, err := repo.Get(ctx, 99); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("Get(99) err=%v, want ErrNotFound", err)
	}

	// Cancelled records stay in the collection.
	all, _ = repo.List(ctx)
	if len(all) != 2 || all[0].Status != domain.ReservationStatusCancelled {
		t.Fatalf("List() after cancel=%+v", all)
	}

	if _, err := repo.Update(ctx, 42, func(*domain.Reservation) error { return nil }); !errors.Is(err, reservationrepoport.ErrNotFound) {
		t.Fatalf("Update(missing) err=%v, want ErrNotFound", err)
	}
}

// RunReservationRepoConcurrentInsert checks that concurrent inserts with distinct IDs all land
// and that readers running alongside never see a partially written record.
func RunReservationRepoConcurrentInsert(t *testing.T, newRepo ReservationRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	const n = 64
	date := domain.NewDate(2030, time.March, 4)

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			_ = repo.Insert(ctx, domain.Reservation{
				ID:        domain.ReservationID(id),
				Resource:  "Room A",
				Date:      date,
				Start:     domain.MustTimeOfDay(8, 0),
				End:       domain.MustTimeOfDay(9, 0),
				Requester: "Load",
				Status:    domain.ReservationStatusConfirmed,
			})
		}(i)
		go func() {
			defer wg.Done()
			rs, err := repo.List(ctx)
			if err != nil {
				t.Errorf("List: %v", err)
				return
			}
			for _, r := range rs {
				if r.ID <= 0 || r.Resource == "" || r.Status == "" {
					t.Errorf("partial record observed: %+v", r)
				}
			}
		}()
	}
	wg.Wait()

	rs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rs) != n {
		t.Fatalf("len=%d, want %d", len(rs), n)
	}
}
