package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	memclock "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/idempotency"
	memidgen "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/idgen"
	memreservationrepo "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/reservationrepo"
	"github.com/Overland-East-Bay/room-booking-api/internal/app/reservations"
)

func newTestReservationRouter(t *testing.T) http.Handler {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2030, time.June, 15, 10, 30, 0, 0, time.UTC))
	svc := reservations.NewService(memreservationrepo.NewRepo(), memidgen.NewSequence(), clk)
	api := NewServer(svc, memidempotency.NewStore())
	return NewRouter(api)
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	return er
}

func requireCode(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) ErrorResponse {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", rec.Code, wantStatus, rec.Body.String())
	}
	er := decodeError(t, rec)
	if er.Error.Code != wantCode {
		t.Fatalf("code=%q want=%q body=%s", er.Error.Code, wantCode, rec.Body.String())
	}
	return er
}

const roomA9to10 = `{"resource":"Room A","date":"2030-06-16","startTime":"09:00","endTime":"10:00","requester":"Alice"}`

func TestReservations_CreateThenGet_201(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)

	rec := do(t, h, http.MethodPost, "/reservations", roomA9to10, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/reservations/1" {
		t.Fatalf("location=%q", got)
	}
	var created ReservationJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Id != 1 || created.Status != "CONFIRMED" || created.StartTime != "09:00" || created.EndTime != "10:00" {
		t.Fatalf("unexpected reservation: %+v", created)
	}
	if created.Date.String() != "2030-06-16" {
		t.Fatalf("date=%s", created.Date.String())
	}

	rec2 := do(t, h, http.MethodGet, "/reservations/1", "", nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", rec2.Code, rec2.Body.String())
	}
	var got ReservationJSON
	if err := json.Unmarshal(rec2.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != created {
		t.Fatalf("get=%+v want=%+v", got, created)
	}
}

func TestReservations_Conflict_409WithDetails(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	if rec := do(t, h, http.MethodPost, "/reservations", roomA9to10, nil); rec.Code != http.StatusCreated {
		t.Fatalf("seed status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodPost, "/reservations",
		`{"resource":"room a","date":"2030-06-16","startTime":"09:30","endTime":"11:00","requester":"Bob"}`, nil)
	er := requireCode(t, rec, http.StatusConflict, "RESERVATION_CONFLICT")
	if er.Error.Message != "resource already booked from 09:00 to 10:00" {
		t.Fatalf("message=%q", er.Error.Message)
	}
	details, err := er.Error.Details.Get()
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if details["conflictingId"] != float64(1) || details["startTime"] != "09:00" || details["endTime"] != "10:00" {
		t.Fatalf("details=%v", details)
	}
	if rid, err := er.Error.RequestId.Get(); err != nil || rid == "" {
		t.Fatalf("expected requestId, got %q (%v)", rid, err)
	}

	// Back-to-back is fine.
	rec = do(t, h, http.MethodPost, "/reservations",
		`{"resource":"Room A","date":"2030-06-16","startTime":"10:00","endTime":"11:00","requester":"Bob"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("adjacent status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestReservations_CreateRejections_400(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"resource":`, "INVALID_FORMAT"},
		{"empty body", ``, "INVALID_FORMAT"},
		{"unknown member", `{"resource":"Room A","room":"x"}`, "INVALID_FORMAT"},
		{"bad date", `{"resource":"Room A","date":"16/06/2030","startTime":"09:00","endTime":"10:00","requester":"A"}`, "INVALID_FORMAT"},
		{"bad time", `{"resource":"Room A","date":"2030-06-16","startTime":"9am","endTime":"10:00","requester":"A"}`, "INVALID_FORMAT"},
		{"one-digit hour", `{"resource":"Room A","date":"2030-06-16","startTime":"9:00","endTime":"10:00","requester":"A"}`, "INVALID_FORMAT"},
		{"seconds in time", `{"resource":"Room A","date":"2030-06-16","startTime":"09:00","endTime":"10:00:00","requester":"A"}`, "INVALID_FORMAT"},
		{"wrong type", `{"resource":42}`, "INVALID_FORMAT"},
		{"wrong date type", `{"resource":"Room A","date":20300616}`, "INVALID_FORMAT"},
		{"missing resource", `{"date":"2030-06-16","startTime":"09:00","endTime":"10:00","requester":"A"}`, "VALIDATION_ERROR"},
		{"blank requester", `{"resource":"Room A","date":"2030-06-16","startTime":"09:00","endTime":"10:00","requester":"   "}`, "VALIDATION_ERROR"},
		{"missing date", `{"resource":"Room A","startTime":"09:00","endTime":"10:00","requester":"A"}`, "VALIDATION_ERROR"},
		{"empty date", `{"resource":"Room A","date":"","startTime":"09:00","endTime":"10:00","requester":"A"}`, "VALIDATION_ERROR"},
		{"past date", `{"resource":"Room A","date":"2030-06-14","startTime":"09:00","endTime":"10:00","requester":"A"}`, "PAST_DATE"},
		{"end before start", `{"resource":"Room A","date":"2030-06-16","startTime":"10:00","endTime":"09:00","requester":"A"}`, "INVALID_TIME_RANGE"},
		{"empty range", `{"resource":"Room A","date":"2030-06-16","startTime":"10:00","endTime":"10:00","requester":"A"}`, "INVALID_TIME_RANGE"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newTestReservationRouter(t)
			rec := do(t, h, http.MethodPost, "/reservations", tt.body, nil)
			requireCode(t, rec, http.StatusBadRequest, tt.code)

			list := do(t, h, http.MethodGet, "/reservations", "", nil)
			if !strings.Contains(list.Body.String(), `"reservations":[]`) {
				t.Fatalf("store changed after rejection: %s", list.Body.String())
			}
		})
	}
}

func TestReservations_MissingFieldReportsField(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	rec := do(t, h, http.MethodPost, "/reservations", `{"resource":"Room A","date":"2030-06-16","endTime":"10:00","requester":"A"}`, nil)
	er := requireCode(t, rec, http.StatusBadRequest, "VALIDATION_ERROR")
	details, err := er.Error.Details.Get()
	if err != nil || details["field"] != "startTime" {
		t.Fatalf("details=%v err=%v", details, err)
	}
}

func TestReservations_EmptyMembersReportedAsMissing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		body  string
		field string
	}{
		{`{"resource":"Room A","date":"","startTime":"09:00","endTime":"10:00","requester":"A"}`, "date"},
		{`{"resource":"Room A","date":"   ","startTime":"09:00","endTime":"10:00","requester":"A"}`, "date"},
		{`{"resource":"Room A","date":null,"startTime":"09:00","endTime":"10:00","requester":"A"}`, "date"},
		{`{"resource":"Room A","date":"2030-06-16","startTime":"","endTime":"10:00","requester":"A"}`, "startTime"},
		{`{"resource":"Room A","date":"2030-06-16","startTime":"09:00","endTime":"","requester":"A"}`, "endTime"},
	}
	for _, tt := range tests {
		h := newTestReservationRouter(t)
		er := requireCode(t, do(t, h, http.MethodPost, "/reservations", tt.body, nil), http.StatusBadRequest, "VALIDATION_ERROR")
		details, err := er.Error.Details.Get()
		if err != nil || details["field"] != tt.field {
			t.Fatalf("body=%s details=%v err=%v want field %q", tt.body, details, err, tt.field)
		}
	}
}

func TestReservations_TodayIsAccepted(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	rec := do(t, h, http.MethodPost, "/reservations", `{"resource":"Room A","date":"2030-06-15","startTime":"08:00","endTime":"09:00","requester":"A"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestReservations_CancelThenRebook(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	if rec := do(t, h, http.MethodPost, "/reservations", roomA9to10, nil); rec.Code != http.StatusCreated {
		t.Fatalf("seed status=%d", rec.Code)
	}

	rec := do(t, h, http.MethodDelete, "/reservations/1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status=%d body=%s", rec.Code, rec.Body.String())
	}
	var cr CancelReservationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.Message != "reservation cancelled" || cr.Reservation.Status != "CANCELLED" || cr.Reservation.Id != 1 {
		t.Fatalf("cancel response=%+v", cr)
	}

	requireCode(t, do(t, h, http.MethodDelete, "/reservations/1", "", nil), http.StatusNotFound, "RESERVATION_NOT_FOUND")
	requireCode(t, do(t, h, http.MethodGet, "/reservations/1", "", nil), http.StatusNotFound, "RESERVATION_NOT_FOUND")

	rec = do(t, h, http.MethodPost, "/reservations", roomA9to10, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("rebook status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id":2`) {
		t.Fatalf("rebook should get a fresh id: %s", rec.Body.String())
	}
}

func TestReservations_InvalidAndUnknownIDs(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	requireCode(t, do(t, h, http.MethodGet, "/reservations/abc", "", nil), http.StatusBadRequest, "INVALID_ID")
	requireCode(t, do(t, h, http.MethodDelete, "/reservations/0", "", nil), http.StatusBadRequest, "INVALID_ID")
	requireCode(t, do(t, h, http.MethodGet, "/reservations/999", "", nil), http.StatusNotFound, "RESERVATION_NOT_FOUND")
	requireCode(t, do(t, h, http.MethodDelete, "/reservations/999", "", nil), http.StatusNotFound, "RESERVATION_NOT_FOUND")
}

func TestReservations_ListFilters(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	for _, body := range []string{
		roomA9to10,
		`{"resource":"Room B","date":"2030-06-16","startTime":"09:00","endTime":"10:00","requester":"Bob"}`,
		`{"resource":"Room A","date":"2030-06-17","startTime":"09:00","endTime":"10:00","requester":"Carol"}`,
	} {
		if rec := do(t, h, http.MethodPost, "/reservations", body, nil); rec.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", rec.Code, rec.Body.String())
		}
	}

	count := func(path string) int {
		t.Helper()
		rec := do(t, h, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rec.Code, rec.Body.String())
		}
		var lr ListReservationsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &lr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return len(lr.Reservations)
	}

	if n := count("/reservations"); n != 3 {
		t.Fatalf("all=%d", n)
	}
	if n := count("/reservations?resource=ROOM%20A"); n != 2 {
		t.Fatalf("room a=%d", n)
	}
	if n := count("/reservations?resource=Room%20A&date=2030-06-17"); n != 1 {
		t.Fatalf("room a on 17th=%d", n)
	}
	if n := count("/reservations?resource=Room%20Z"); n != 0 {
		t.Fatalf("unknown room=%d", n)
	}
	requireCode(t, do(t, h, http.MethodGet, "/reservations?date=tomorrow", "", nil), http.StatusBadRequest, "INVALID_FORMAT")
}

func TestReservations_Create_IdempotentReplayAndConflictOnReuse(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)
	key := map[string]string{"Idempotency-Key": uuid.NewString()}

	rec1 := do(t, h, http.MethodPost, "/reservations", roomA9to10, key)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("create1 status=%d body=%s", rec1.Code, rec1.Body.String())
	}

	// Same key + same semantic payload (after normalization) replays instead of conflicting.
	rec2 := do(t, h, http.MethodPost, "/reservations",
		`{"resource":" Room A ","date":"2030-06-16","startTime":"09:00","endTime":"10:00","requester":"  Alice "}`, key)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("create2 status=%d body=%s", rec2.Code, rec2.Body.String())
	}
	if rec2.Body.String() != rec1.Body.String() {
		t.Fatalf("replay body differs:\n%s\n%s", rec1.Body.String(), rec2.Body.String())
	}
	if rec2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}

	// Same key + different payload should be 409.
	rec3 := do(t, h, http.MethodPost, "/reservations",
		`{"resource":"Room B","date":"2030-06-16","startTime":"09:00","endTime":"10:00","requester":"Alice"}`, key)
	requireCode(t, rec3, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Without a key the same payload is a plain booking conflict.
	requireCode(t, do(t, h, http.MethodPost, "/reservations", roomA9to10, nil), http.StatusConflict, "RESERVATION_CONFLICT")
}

func TestRouter_HealthAndFallbacks(t *testing.T) {
	t.Parallel()

	h := newTestReservationRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz status=%d body=%q", rec.Code, rec.Body.String())
	}
	requireCode(t, do(t, h, http.MethodGet, "/nope", "", nil), http.StatusNotFound, "ROUTE_NOT_FOUND")
	requireCode(t, do(t, h, http.MethodPut, "/reservations/1", "", nil), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}

func TestRouter_MetricsMounted(t *testing.T) {
	t.Parallel()

	clk := memclock.NewManualClock(time.Date(2030, time.June, 15, 0, 0, 0, 0, time.UTC))
	svc := reservations.NewService(memreservationrepo.NewRepo(), memidgen.NewSequence(), clk)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	h := NewRouterWithOptions(NewServer(svc, nil), RouterOptions{MetricsHandler: metrics, MetricsPath: "/internal/metrics"})

	rec := do(t, h, http.MethodGet, "/internal/metrics", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "# metrics" {
		t.Fatalf("metrics status=%d body=%q", rec.Code, rec.Body.String())
	}

	// No idempotency store: the header is ignored.
	key := map[string]string{"Idempotency-Key": uuid.NewString()}
	if rec := do(t, h, http.MethodPost, "/reservations", roomA9to10, key); rec.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rec.Code, rec.Body.String())
	}
	requireCode(t, do(t, h, http.MethodPost, "/reservations", roomA9to10, key), http.StatusConflict, "RESERVATION_CONFLICT")
}
