package httpapi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/room-booking-api/internal/domain"
)

// ReservationJSON is the wire form of a reservation. Times are "HH:mm".
type ReservationJSON struct {
	Id        int64              `json:"id"`
	Resource  string             `json:"resource"`
	Date      openapi_types.Date `json:"date"`
	StartTime string             `json:"startTime"`
	EndTime   string             `json:"endTime"`
	Requester string             `json:"requester"`
	Status    string             `json:"status"`
}

// CreateReservationRequest is the POST /reservations body. Pointers distinguish omitted
// members from empty ones.
type CreateReservationRequest struct {
	Resource  *string             `json:"resource,omitempty"`
	Date      *openapi_types.Date `json:"date,omitempty"`
	StartTime *string             `json:"startTime,omitempty"`
	EndTime   *string             `json:"endTime,omitempty"`
	Requester *string             `json:"requester,omitempty"`
}

// UnmarshalJSON treats an empty or blank date like an omitted one and rejects unknown members.
func (b *CreateReservationRequest) UnmarshalJSON(data []byte) error {
	type plain CreateReservationRequest
	aux := struct {
		*plain
		Date *string `json:"date,omitempty"`
	}{plain: (*plain)(b)}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	b.Date = nil
	if aux.Date == nil || strings.TrimSpace(*aux.Date) == "" {
		return nil
	}
	t, err := time.Parse(openapi_types.DateFormat, strings.TrimSpace(*aux.Date))
	if err != nil {
		return err
	}
	b.Date = &openapi_types.Date{Time: t}
	return nil
}

type ListReservationsResponse struct {
	Reservations []ReservationJSON `json:"reservations"`
}

type CancelReservationResponse struct {
	Message     string          `json:"message"`
	Reservation ReservationJSON `json:"reservation"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func toReservationJSON(r domain.Reservation) ReservationJSON {
	return ReservationJSON{
		Id:        int64(r.ID),
		Resource:  r.Resource,
		Date:      openapi_types.Date{Time: r.Date.Time()},
		StartTime: r.Start.String(),
		EndTime:   r.End.String(),
		Requester: r.Requester,
		Status:    string(r.Status),
	}
}

func toReservationJSONList(rs []domain.Reservation) []ReservationJSON {
	out := make([]ReservationJSON, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReservationJSON(r))
	}
	return out
}
