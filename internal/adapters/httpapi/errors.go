package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"github.com/rs/zerolog/hlog"

	"github.com/Overland-East-Bay/room-booking-api/internal/app/reservations"
)

// ErrorBody is the "error" member of every non-2xx response.
type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
}

const (
	codeInvalidFormat      = "INVALID_FORMAT"
	codeInvalidID          = "INVALID_ID"
	codeIdempotencyReuse   = "IDEMPOTENCY_KEY_REUSE"
	codeRouteNotFound      = "ROUTE_NOT_FOUND"
	codeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	codeInternal           = "INTERNAL_ERROR"
	messageInternalFailure = "internal server error"
)

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestId = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeServiceError maps admission errors to HTTP. Anything without a kind is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind, ok := reservations.KindOf(err)
	if !ok {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, codeInternal, messageInternalFailure, nil)
		return
	}

	switch kind {
	case reservations.KindValidation:
		var ve *reservations.ValidationError
		var details map[string]any
		if errors.As(err, &ve) {
			details = map[string]any{"field": ve.Field}
		}
		writeError(w, r, http.StatusBadRequest, string(kind), err.Error(), details)
	case reservations.KindPastDate, reservations.KindInvalidRange:
		writeError(w, r, http.StatusBadRequest, string(kind), err.Error(), nil)
	case reservations.KindConflict:
		var ce *reservations.ConflictError
		var details map[string]any
		if errors.As(err, &ce) {
			details = map[string]any{
				"conflictingId": int64(ce.Existing.ID),
				"startTime":     ce.Existing.Start.String(),
				"endTime":       ce.Existing.End.String(),
			}
		}
		writeError(w, r, http.StatusConflict, string(kind), err.Error(), details)
	case reservations.KindNotFound:
		writeError(w, r, http.StatusNotFound, string(kind), err.Error(), nil)
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, messageInternalFailure, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
