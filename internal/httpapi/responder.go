package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/identity"
	"github.com/example/room-reservations/internal/logging"
	"github.com/example/room-reservations/internal/persistence"
)

var (
	errBadRequestBody       = errors.New("the request body is not valid")
	errInvalidReservationID = errors.New("a reservation id is required")
	errInvalidRoomID        = errors.New("a room id is required")
	errInvalidEquipmentID   = errors.New("an equipment id is required")
	errMissingSessionToken  = errors.New("a session token is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps service errors onto HTTP statuses. Conflicts carry
// the overlapping reservations so clients can show them; an orphaned external
// event is surfaced as a generic failure while the detail stays in the logs.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, booking.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "You do not have permission to perform this operation.",
		})
	case errors.Is(err, booking.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "The requested resource was not found."})
	case errors.Is(err, booking.ErrCalendarAuth), errors.Is(err, identity.ErrNoRefreshToken):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "CALENDAR_AUTH_REQUIRED",
			Message:   "Calendar access is missing or expired. Sign in again to reconnect your account.",
		})
	case errors.Is(err, identity.ErrInvalidSession):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Your session is no longer valid. Sign in again.",
		})
	case errors.Is(err, persistence.ErrDuplicate):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "The resource already exists."})
	default:
		var conflict *booking.ConflictError
		if errors.As(err, &conflict) {
			r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
				ErrorCode: "ROOM_ALREADY_RESERVED",
				Message:   "The room is already reserved in the requested period.",
				Conflicts: toConflictDTOs(conflict.Conflicts),
			})
			return
		}

		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "The submitted data is not valid.",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		var orphan *booking.OrphanedEventError
		if errors.As(err, &orphan) {
			r.loggerFor(ctx).ErrorContext(ctx, "booking left an orphaned calendar event",
				"event_id", orphan.EventID, "error", err)
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "An internal error occurred."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You do not have permission to perform this operation."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "The submitted data is not valid."
	default:
		return "An internal error occurred."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflictDTO     `json:"conflicts,omitempty"`
}

type conflictDTO struct {
	ReservationID string `json:"reservation_id"`
	Title         string `json:"title"`
	Start         string `json:"start"`
	End           string `json:"end"`
}

func toConflictDTOs(conflicts []booking.ConflictSummary) []conflictDTO {
	if len(conflicts) == 0 {
		return nil
	}
	out := make([]conflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictDTO{
			ReservationID: c.ReservationID,
			Title:         c.Title,
			Start:         c.Start.UTC().Format(time.RFC3339Nano),
			End:           c.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
