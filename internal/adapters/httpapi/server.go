package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/Overland-East-Bay/room-booking-api/internal/app/reservations"
	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
	"github.com/Overland-East-Bay/room-booking-api/internal/ports/out/idempotency"
)

const (
	routeReservations = "/reservations"
	maxBodyBytes      = 1 << 20

	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

// Server adapts HTTP requests to the reservation service.
type Server struct {
	Reservations *reservations.Service
	Idem         idempotency.Store

	flight singleflight.Group
}

// NewServer wires the handlers. idem may be nil, in which case Idempotency-Key is ignored.
func NewServer(svc *reservations.Service, idem idempotency.Store) *Server {
	return &Server{Reservations: svc, Idem: idem}
}

func (s *Server) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := reservations.ListFilter{Resource: q.Get("resource")}
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeInvalidFormat, "date must be formatted as yyyy-MM-dd", map[string]any{"field": "date"})
			return
		}
		filter.Date = reservations.Some(d)
	}

	list, err := s.Reservations.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListReservationsResponse{Reservations: toReservationJSONList(list)})
}

func (s *Server) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationIDParam(w, r)
	if !ok {
		return
	}
	res, found, err := s.Reservations.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !found {
		writeServiceError(w, r, &reservations.NotFoundError{ID: id})
		return
	}
	writeJSON(w, http.StatusOK, toReservationJSON(res))
}

func (s *Server) CreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body CreateReservationRequest
	if err := decodeJSONBody(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidFormat, err.Error(), nil)
		return
	}
	in, field, err := toCreateInput(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidFormat, err.Error(), map[string]any{"field": field})
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if s.Idem == nil || idemKey == "" {
		created, err := s.Reservations.Create(ctx, in)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.Header().Set("Location", reservationLocation(created.ID))
		writeJSON(w, http.StatusCreated, toReservationJSON(created))
		return
	}

	// Idempotency handling:
	// - Replay if same key+route+bodyHash
	// - Reject if same key+route with different bodyHash (409)
	// - Concurrent retries of one request share a single create
	bodyHash, err := hashCreateReservationBody(body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	metaFP := idempotency.Fingerprint{
		Key:    idempotency.Key(idemKey),
		Method: http.MethodPost,
		Route:  routeReservations,
	}
	meta, _, err := s.Idem.PutIfAbsent(ctx, metaFP, idempotency.Record{
		ContentType: "text/plain",
		Body:        []byte(bodyHash),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if string(meta.Body) != bodyHash {
		writeError(w, r, http.StatusConflict, codeIdempotencyReuse, "idempotency key reuse with different payload", nil)
		return
	}

	respFP := metaFP
	respFP.BodyHash = bodyHash
	res, executed, err := s.createOnce(ctx, respFP, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !executed {
		w.Header().Set(headerReplayed, "true")
	}
	if res.id != 0 {
		w.Header().Set("Location", reservationLocation(res.id))
	}
	w.Header().Set("Content-Type", res.rec.ContentType)
	w.WriteHeader(res.rec.StatusCode)
	_, _ = w.Write(res.rec.Body)
}

type createResult struct {
	rec idempotency.Record
	id  domain.ReservationID
}

// createOnce runs at most one create per fingerprint at a time. Callers that join an in-flight
// create, or arrive after its response was stored, receive the stored response. executed is
// true only for the caller whose create actually ran.
func (s *Server) createOnce(ctx context.Context, fp idempotency.Fingerprint, in reservations.CreateReservationInput) (createResult, bool, error) {
	// Shared by every joined caller, so the leader's cancellation does not apply.
	ctx = context.WithoutCancel(ctx)

	executed := false
	v, err, _ := s.flight.Do(flightKey(fp), func() (any, error) {
		if rec, ok, err := s.Idem.Get(ctx, fp); err != nil {
			return nil, err
		} else if ok && rec.StatusCode == http.StatusCreated {
			var stored ReservationJSON
			_ = json.Unmarshal(rec.Body, &stored)
			return createResult{rec: rec, id: domain.ReservationID(stored.Id)}, nil
		}

		created, err := s.Reservations.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		executed = true

		b, err := json.Marshal(toReservationJSON(created))
		if err != nil {
			return nil, err
		}
		rec := idempotency.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        append(b, '\n'),
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.Idem.Put(ctx, fp, rec); err != nil {
			return nil, fmt.Errorf("store idempotent response: %w", err)
		}
		return createResult{rec: rec, id: created.ID}, nil
	})
	if err != nil {
		return createResult{}, false, err
	}
	return v.(createResult), executed, nil
}

func flightKey(fp idempotency.Fingerprint) string {
	return fp.Method + " " + fp.Route + " " + string(fp.Key) + " " + fp.BodyHash
}

func reservationLocation(id domain.ReservationID) string {
	return fmt.Sprintf("%s/%d", routeReservations, id)
}

func (s *Server) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationIDParam(w, r)
	if !ok {
		return
	}
	cancelled, err := s.Reservations.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelReservationResponse{
		Message:     "reservation cancelled",
		Reservation: toReservationJSON(cancelled),
	})
}

func reservationIDParam(w http.ResponseWriter, r *http.Request) (domain.ReservationID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := domain.ParseReservationID(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidID, fmt.Sprintf("invalid reservation id: %q", raw), nil)
		return 0, false
	}
	return id, true
}

func decodeJSONBody(r *http.Request, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.New("could not read request body")
	}
	if len(raw) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("missing request body")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return fmt.Errorf("field %q has the wrong type", te.Field)
		}
		var pe *time.ParseError
		if errors.As(err, &pe) {
			return errors.New("date must be formatted as yyyy-MM-dd")
		}
		return fmt.Errorf("malformed JSON body: %v", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// toCreateInput parses the wire strings. Empty or omitted members stay unset so the service
// reports them as missing (an empty date is already dropped while decoding); present but
// malformed ones are returned as format errors.
func toCreateInput(b CreateReservationRequest) (reservations.CreateReservationInput, string, error) {
	in := reservations.CreateReservationInput{
		Resource:  deref(b.Resource),
		Requester: deref(b.Requester),
	}
	if b.Date != nil {
		in.Date = reservations.Some(domain.DateOf(b.Date.Time))
	}
	start, err := parseOptionalTime(b.StartTime)
	if err != nil {
		return in, reservations.FieldStartTime, errors.New("startTime must be formatted as HH:mm")
	}
	end, err := parseOptionalTime(b.EndTime)
	if err != nil {
		return in, reservations.FieldEndTime, errors.New("endTime must be formatted as HH:mm")
	}
	in.Start, in.End = start, end
	return in, "", nil
}

func parseOptionalTime(p *string) (reservations.Optional[domain.TimeOfDay], error) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return reservations.None[domain.TimeOfDay](), nil
	}
	t, err := domain.ParseTimeOfDay(strings.TrimSpace(*p))
	if err != nil {
		return reservations.None[domain.TimeOfDay](), err
	}
	return reservations.Some(t), nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func hashCreateReservationBody(b CreateReservationRequest) (string, error) {
	canon := b
	if canon.Resource != nil {
		v := domain.NormalizeResource(*canon.Resource)
		canon.Resource = &v
	}
	if canon.Requester != nil {
		v := domain.NormalizeHumanName(*canon.Requester)
		canon.Requester = &v
	}
	canon.StartTime = trimmed(canon.StartTime)
	canon.EndTime = trimmed(canon.EndTime)
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
