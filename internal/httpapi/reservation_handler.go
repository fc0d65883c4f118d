package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/booking"
)

type reservationService interface {
	Create(ctx context.Context, params booking.CreateReservationParams) (booking.Reservation, error)
	Update(ctx context.Context, params booking.UpdateReservationParams) (booking.Reservation, error)
	Cancel(ctx context.Context, principal booking.Principal, reservationID string) error
	ListWindow(ctx context.Context, params booking.ListWindowParams) ([]booking.Reservation, error)
	ListActiveForUser(ctx context.Context, principal booking.Principal) ([]booking.Reservation, error)
}

// ReservationHandler exposes the booking workflow over HTTP.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

// Create books a new reservation.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	reservation, err := h.service.Create(r.Context(), booking.CreateReservationParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.log(r.Context(), "Create", "room_id", req.RoomID).ErrorContext(r.Context(), "failed to create reservation", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

// Update reworks an existing reservation.
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	reservation, err := h.service.Update(r.Context(), booking.UpdateReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		Input:         req.toInput(),
	})
	if err != nil {
		h.log(r.Context(), "Update", "reservation_id", reservationID).ErrorContext(r.Context(), "failed to update reservation", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

// Delete cancels a reservation.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Cancel(r.Context(), principal, reservationID); err != nil {
		h.log(r.Context(), "Delete", "reservation_id", reservationID).ErrorContext(r.Context(), "failed to cancel reservation", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List returns reservations intersecting the requested window.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params := booking.ListWindowParams{
		Start: parseTimeParam(r.URL.Query().Get("start")),
		End:   parseTimeParam(r.URL.Query().Get("end")),
	}

	reservations, err := h.service.ListWindow(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{
		Reservations: toReservationDTOs(reservations),
	})
}

// ListMine returns the caller's upcoming and in-progress reservations,
// including ones they are only invited to.
func (h *ReservationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservations, err := h.service.ListActiveForUser(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{
		Reservations: toReservationDTOs(reservations),
	})
}

type reservationRequest struct {
	RoomID       string   `json:"room_id"`
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Invitees     []string `json:"invitees"`
	EquipmentIDs []string `json:"equipment_ids"`
}

func (r reservationRequest) toInput() booking.ReservationInput {
	return booking.ReservationInput{
		RoomID:       strings.TrimSpace(r.RoomID),
		Title:        strings.TrimSpace(r.Title),
		Description:  r.Description,
		Start:        parseTimeParam(r.Start),
		End:          parseTimeParam(r.End),
		Invitees:     append([]string(nil), r.Invitees...),
		EquipmentIDs: append([]string(nil), r.EquipmentIDs...),
	}
}

func parseTimeParam(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

type reservationDTO struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	OwnerName    string   `json:"owner_name,omitempty"`
	RoomID       string   `json:"room_id"`
	RoomName     string   `json:"room_name,omitempty"`
	RoomColor    *string  `json:"room_color,omitempty"`
	Title        string   `json:"title"`
	Description  *string  `json:"description,omitempty"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	MeetLink     *string  `json:"meet_link,omitempty"`
	Invitees     []string `json:"invitees"`
	EquipmentIDs []string `json:"equipment_ids,omitempty"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

func toReservationDTO(reservation booking.Reservation) reservationDTO {
	return reservationDTO{
		ID:           reservation.ID,
		UserID:       reservation.UserID,
		OwnerName:    reservation.OwnerName,
		RoomID:       reservation.RoomID,
		RoomName:     reservation.RoomName,
		RoomColor:    reservation.RoomColor,
		Title:        reservation.Title,
		Description:  reservation.Description,
		Start:        reservation.Start.UTC().Format(time.RFC3339Nano),
		End:          reservation.End.UTC().Format(time.RFC3339Nano),
		MeetLink:     reservation.MeetLink,
		Invitees:     append([]string(nil), reservation.Invitees...),
		EquipmentIDs: append([]string(nil), reservation.EquipmentIDs...),
		CreatedAt:    reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toReservationDTOs(reservations []booking.Reservation) []reservationDTO {
	if len(reservations) == 0 {
		return nil
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	return out
}

type principalDTO struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func toPrincipalDTO(principal booking.Principal) principalDTO {
	return principalDTO{
		UserID:  principal.UserID,
		Email:   principal.Email,
		IsAdmin: principal.IsAdmin,
	}
}
