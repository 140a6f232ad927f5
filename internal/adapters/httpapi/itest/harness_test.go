package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Overland-East-Bay/room-booking-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/idempotency"
	memidgen "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/idgen"
	memreservationrepo "github.com/Overland-East-Bay/room-booking-api/internal/adapters/memory/reservationrepo"
	"github.com/Overland-East-Bay/room-booking-api/internal/app/reservations"
	"github.com/Overland-East-Bay/room-booking-api/internal/platform/metrics"
)

type testServer struct {
	baseURL string
	client  *http.Client
	clock   *memclock.ManualClock
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2030, time.January, 1, 9, 0, 0, 0, time.UTC))
	m := metrics.New()
	log := zerolog.New(zerolog.NewTestWriter(t))

	svc := reservations.NewService(
		memreservationrepo.NewRepo(),
		memidgen.NewSequence(),
		clk,
		reservations.WithLogger(log),
		reservations.WithRecorder(m),
	)
	api := httpapi.NewServer(svc, memidempotency.NewStore())
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		Logger:         &log,
		MetricsHandler: m.Handler(),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clock:   clk,
		metrics: m,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, body any, hdr map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details"`
		RequestId string         `json:"requestId"`
	} `json:"error"`
}

type reservation struct {
	Id        int64  `json:"id"`
	Resource  string `json:"resource"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Requester string `json:"requester"`
	Status    string `json:"status"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) errorResponse {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	return got
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
