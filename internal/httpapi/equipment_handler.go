package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/catalog"
	"github.com/example/room-reservations/internal/persistence"
)

type equipmentService interface {
	CreateEquipment(ctx context.Context, principal booking.Principal, input catalog.EquipmentInput) (persistence.Equipment, error)
	UpdateEquipment(ctx context.Context, principal booking.Principal, id string, input catalog.EquipmentInput) (persistence.Equipment, error)
	DeactivateEquipment(ctx context.Context, principal booking.Principal, id string) error
	ListEquipment(ctx context.Context, principal booking.Principal, includeInactive bool) ([]persistence.Equipment, error)
}

// EquipmentHandler exposes the equipment catalog over HTTP.
type EquipmentHandler struct {
	service   equipmentService
	responder responder
	logger    *slog.Logger
}

// NewEquipmentHandler constructs the handler.
func NewEquipmentHandler(service equipmentService, logger *slog.Logger) *EquipmentHandler {
	base := defaultLogger(logger)
	return &EquipmentHandler{service: service, responder: newResponder(base), logger: base}
}

// List returns catalog equipment. ?include_inactive=true is honored for admins.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	includeInactive := strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")

	items, err := h.service.ListEquipment(r.Context(), principal, includeInactive)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEquipmentResponse{Equipment: toEquipmentDTOs(items)})
}

// Create adds an equipment item to the catalog.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	item, err := h.service.CreateEquipment(r.Context(), principal, catalog.EquipmentInput{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEquipmentDTO(item))
}

// Update renames an equipment item.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	equipmentID, ok := EquipmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(equipmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEquipmentID)
		return
	}

	var req equipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	item, err := h.service.UpdateEquipment(r.Context(), principal, equipmentID, catalog.EquipmentInput{Name: strings.TrimSpace(req.Name)})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEquipmentDTO(item))
}

// Delete retires an equipment item from new requests.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	equipmentID, ok := EquipmentIDFromContext(r.Context())
	if !ok || strings.TrimSpace(equipmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEquipmentID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeactivateEquipment(r.Context(), principal, equipmentID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type equipmentRequest struct {
	Name string `json:"name"`
}

type listEquipmentResponse struct {
	Equipment []equipmentDTO `json:"equipment"`
}

type equipmentDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toEquipmentDTO(item persistence.Equipment) equipmentDTO {
	return equipmentDTO{
		ID:        item.ID,
		Name:      item.Name,
		Active:    item.Active,
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toEquipmentDTOs(items []persistence.Equipment) []equipmentDTO {
	if len(items) == 0 {
		return nil
	}
	out := make([]equipmentDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toEquipmentDTO(item))
	}
	return out
}
