package idempotency

import (
	"context"
	"time"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request for replay purposes.
//
// Route is the HTTP method's route template (e.g. "/reservations"). An empty BodyHash marks the
// record that pins a key to the first payload seen with it.
type Fingerprint struct {
	Key      Key
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying reservation creations on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error

	// PutIfAbsent stores rec only when fp has no record yet and returns the record now associated
	// with fp together with whether rec was stored.
	PutIfAbsent(ctx context.Context, fp Fingerprint, rec Record) (Record, bool, error)
}
