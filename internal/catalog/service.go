// Package catalog manages the room and equipment catalogs. Mutations are
// restricted to administrators; retired entries are deactivated rather than
// deleted so historical reservations keep their references.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/notify"
	"github.com/example/room-reservations/internal/persistence"
)

// Publisher broadcasts change events to connected clients.
type Publisher interface {
	Publish(topic string) error
}

// RoomInput captures caller provided room attributes.
type RoomInput struct {
	Name               string
	Capacity           int
	CalendarResourceID *string
	Color              *string
}

// EquipmentInput captures caller provided equipment attributes.
type EquipmentInput struct {
	Name string
}

// Service exposes catalog operations for rooms and equipment.
type Service struct {
	rooms       persistence.RoomRepository
	equipment   persistence.EquipmentRepository
	publisher   Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewService wires a catalog service.
func NewService(
	rooms persistence.RoomRepository,
	equipment persistence.EquipmentRepository,
	publisher Publisher,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		rooms:       rooms,
		equipment:   equipment,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// CreateRoom adds a room to the catalog. Administrators only.
func (s *Service) CreateRoom(ctx context.Context, principal booking.Principal, input RoomInput) (persistence.Room, error) {
	if !principal.IsAdmin {
		return persistence.Room{}, booking.ErrUnauthorized
	}
	if err := validateRoomInput(&input); err != nil {
		return persistence.Room{}, err
	}

	now := s.now()
	room := persistence.Room{
		ID:                 s.idGenerator(),
		Name:               input.Name,
		Capacity:           input.Capacity,
		CalendarResourceID: input.CalendarResourceID,
		Active:             true,
		Color:              input.Color,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.rooms.CreateRoom(ctx, room); err != nil {
		return persistence.Room{}, err
	}

	s.publishChange(ctx, notify.TopicRooms)
	return room, nil
}

// UpdateRoom replaces the mutable attributes of a room. Administrators only.
func (s *Service) UpdateRoom(ctx context.Context, principal booking.Principal, id string, input RoomInput) (persistence.Room, error) {
	if !principal.IsAdmin {
		return persistence.Room{}, booking.ErrUnauthorized
	}
	if err := validateRoomInput(&input); err != nil {
		return persistence.Room{}, err
	}

	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return persistence.Room{}, mapStoreError(err)
	}

	room.Name = input.Name
	room.Capacity = input.Capacity
	room.CalendarResourceID = input.CalendarResourceID
	room.Color = input.Color
	room.UpdatedAt = s.now()

	if err := s.rooms.UpdateRoom(ctx, room); err != nil {
		return persistence.Room{}, mapStoreError(err)
	}

	s.publishChange(ctx, notify.TopicRooms)
	return room, nil
}

// DeactivateRoom retires a room from booking without touching its history.
func (s *Service) DeactivateRoom(ctx context.Context, principal booking.Principal, id string) error {
	if !principal.IsAdmin {
		return booking.ErrUnauthorized
	}
	if err := s.rooms.DeactivateRoom(ctx, id); err != nil {
		return mapStoreError(err)
	}

	s.publishChange(ctx, notify.TopicRooms)
	return nil
}

// ListRooms returns catalog rooms. Inactive entries are only included for
// administrators.
func (s *Service) ListRooms(ctx context.Context, principal booking.Principal, includeInactive bool) ([]persistence.Room, error) {
	if includeInactive && !principal.IsAdmin {
		includeInactive = false
	}
	return s.rooms.ListRooms(ctx, includeInactive)
}

// CreateEquipment adds a requestable item to the catalog. Administrators only.
func (s *Service) CreateEquipment(ctx context.Context, principal booking.Principal, input EquipmentInput) (persistence.Equipment, error) {
	if !principal.IsAdmin {
		return persistence.Equipment{}, booking.ErrUnauthorized
	}
	if err := validateEquipmentInput(&input); err != nil {
		return persistence.Equipment{}, err
	}

	now := s.now()
	item := persistence.Equipment{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.equipment.CreateEquipment(ctx, item); err != nil {
		return persistence.Equipment{}, err
	}

	s.publishChange(ctx, notify.TopicEquipment)
	return item, nil
}

// UpdateEquipment renames an item. Administrators only.
func (s *Service) UpdateEquipment(ctx context.Context, principal booking.Principal, id string, input EquipmentInput) (persistence.Equipment, error) {
	if !principal.IsAdmin {
		return persistence.Equipment{}, booking.ErrUnauthorized
	}
	if err := validateEquipmentInput(&input); err != nil {
		return persistence.Equipment{}, err
	}

	item, err := s.equipment.GetEquipment(ctx, id)
	if err != nil {
		return persistence.Equipment{}, mapStoreError(err)
	}

	item.Name = input.Name
	item.UpdatedAt = s.now()

	if err := s.equipment.UpdateEquipment(ctx, item); err != nil {
		return persistence.Equipment{}, mapStoreError(err)
	}

	s.publishChange(ctx, notify.TopicEquipment)
	return item, nil
}

// DeactivateEquipment retires an item from new requests.
func (s *Service) DeactivateEquipment(ctx context.Context, principal booking.Principal, id string) error {
	if !principal.IsAdmin {
		return booking.ErrUnauthorized
	}
	if err := s.equipment.DeactivateEquipment(ctx, id); err != nil {
		return mapStoreError(err)
	}

	s.publishChange(ctx, notify.TopicEquipment)
	return nil
}

// ListEquipment returns catalog items. Inactive entries are only included for
// administrators.
func (s *Service) ListEquipment(ctx context.Context, principal booking.Principal, includeInactive bool) ([]persistence.Equipment, error) {
	if includeInactive && !principal.IsAdmin {
		includeInactive = false
	}
	return s.equipment.ListEquipment(ctx, includeInactive)
}

func (s *Service) publishChange(ctx context.Context, topic string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(topic); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change event", "topic", topic, "error", err)
	}
}

func validateRoomInput(input *RoomInput) error {
	input.Name = strings.TrimSpace(input.Name)

	vErr := &booking.ValidationError{FieldErrors: map[string]string{}}
	if input.Name == "" {
		vErr.FieldErrors["name"] = "name is required"
	}
	if input.Capacity <= 0 {
		vErr.FieldErrors["capacity"] = "capacity must be positive"
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateEquipmentInput(input *EquipmentInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return &booking.ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
	}
	return nil
}

func mapStoreError(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return booking.ErrNotFound
	}
	return err
}
