package catalog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/persistence"
)

type fakeRoomRepo struct {
	rooms map[string]persistence.Room
}

func (f *fakeRoomRepo) CreateRoom(_ context.Context, room persistence.Room) error {
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) UpdateRoom(_ context.Context, room persistence.Room) error {
	if _, ok := f.rooms[room.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) GetRoom(_ context.Context, id string) (persistence.Room, error) {
	room, ok := f.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) ListRooms(_ context.Context, includeInactive bool) ([]persistence.Room, error) {
	var out []persistence.Room
	for _, room := range f.rooms {
		if room.Active || includeInactive {
			out = append(out, room)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) DeactivateRoom(_ context.Context, id string) error {
	room, ok := f.rooms[id]
	if !ok {
		return persistence.ErrNotFound
	}
	room.Active = false
	f.rooms[id] = room
	return nil
}

type fakeEquipmentRepo struct {
	items map[string]persistence.Equipment
}

func (f *fakeEquipmentRepo) CreateEquipment(_ context.Context, item persistence.Equipment) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeEquipmentRepo) UpdateEquipment(_ context.Context, item persistence.Equipment) error {
	if _, ok := f.items[item.ID]; !ok {
		return persistence.ErrNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeEquipmentRepo) GetEquipment(_ context.Context, id string) (persistence.Equipment, error) {
	item, ok := f.items[id]
	if !ok {
		return persistence.Equipment{}, persistence.ErrNotFound
	}
	return item, nil
}

func (f *fakeEquipmentRepo) ListEquipment(_ context.Context, includeInactive bool) ([]persistence.Equipment, error) {
	var out []persistence.Equipment
	for _, item := range f.items {
		if item.Active || includeInactive {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeEquipmentRepo) DeactivateEquipment(_ context.Context, id string) error {
	item, ok := f.items[id]
	if !ok {
		return persistence.ErrNotFound
	}
	item.Active = false
	f.items[id] = item
	return nil
}

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(topic string) error {
	p.topics = append(p.topics, topic)
	return nil
}

func newCatalogService() (*Service, *fakeRoomRepo, *fakeEquipmentRepo, *recordingPublisher) {
	rooms := &fakeRoomRepo{rooms: make(map[string]persistence.Room)}
	equipment := &fakeEquipmentRepo{items: make(map[string]persistence.Equipment)}
	publisher := &recordingPublisher{}
	counter := 0
	service := NewService(rooms, equipment, publisher,
		func() string { counter++; return "id-" + string(rune('0'+counter)) },
		func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
		slog.New(slog.DiscardHandler),
	)
	return service, rooms, equipment, publisher
}

var (
	admin  = booking.Principal{UserID: "admin-1", Email: "admin@example.com", IsAdmin: true}
	member = booking.Principal{UserID: "user-1", Email: "user@example.com"}
)

func TestCreateRoomRequiresAdmin(t *testing.T) {
	service, rooms, _, publisher := newCatalogService()

	_, err := service.CreateRoom(context.Background(), member, RoomInput{Name: "Alpha", Capacity: 8})
	if !errors.Is(err, booking.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if len(rooms.rooms) != 0 || len(publisher.topics) != 0 {
		t.Error("unauthorized create must have no side effects")
	}
}

func TestCreateRoomValidatesInput(t *testing.T) {
	service, _, _, _ := newCatalogService()

	_, err := service.CreateRoom(context.Background(), admin, RoomInput{Name: "  ", Capacity: 0})
	var vErr *booking.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	for _, field := range []string{"name", "capacity"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Errorf("missing field error for %q: %v", field, vErr.FieldErrors)
		}
	}
}

func TestCreateRoomPublishesChange(t *testing.T) {
	service, rooms, _, publisher := newCatalogService()

	room, err := service.CreateRoom(context.Background(), admin, RoomInput{Name: "Alpha", Capacity: 8})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !room.Active {
		t.Error("new rooms must start active")
	}
	if _, ok := rooms.rooms[room.ID]; !ok {
		t.Error("room was not stored")
	}
	if len(publisher.topics) != 1 || publisher.topics[0] != "rooms_changed" {
		t.Errorf("published topics = %v", publisher.topics)
	}
}

func TestDeactivateRoomKeepsHistory(t *testing.T) {
	service, rooms, _, _ := newCatalogService()
	room, err := service.CreateRoom(context.Background(), admin, RoomInput{Name: "Alpha", Capacity: 8})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if err := service.DeactivateRoom(context.Background(), admin, room.ID); err != nil {
		t.Fatalf("DeactivateRoom: %v", err)
	}
	stored := rooms.rooms[room.ID]
	if stored.Active {
		t.Error("room must be marked inactive, not deleted")
	}
}

func TestListRoomsHidesInactiveFromMembers(t *testing.T) {
	service, _, _, _ := newCatalogService()
	room, _ := service.CreateRoom(context.Background(), admin, RoomInput{Name: "Alpha", Capacity: 8})
	_ = service.DeactivateRoom(context.Background(), admin, room.ID)

	forMember, err := service.ListRooms(context.Background(), member, true)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(forMember) != 0 {
		t.Error("members must not see inactive rooms even when requested")
	}

	forAdmin, err := service.ListRooms(context.Background(), admin, true)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(forAdmin) != 1 {
		t.Error("admins must see inactive rooms when requested")
	}
}

func TestEquipmentLifecycle(t *testing.T) {
	service, _, equipment, publisher := newCatalogService()

	item, err := service.CreateEquipment(context.Background(), admin, EquipmentInput{Name: "Projector"})
	if err != nil {
		t.Fatalf("CreateEquipment: %v", err)
	}

	updated, err := service.UpdateEquipment(context.Background(), admin, item.ID, EquipmentInput{Name: "4K Projector"})
	if err != nil {
		t.Fatalf("UpdateEquipment: %v", err)
	}
	if updated.Name != "4K Projector" {
		t.Errorf("name = %q", updated.Name)
	}

	if err := service.DeactivateEquipment(context.Background(), admin, item.ID); err != nil {
		t.Fatalf("DeactivateEquipment: %v", err)
	}
	if equipment.items[item.ID].Active {
		t.Error("equipment must be marked inactive")
	}
	if len(publisher.topics) != 3 {
		t.Errorf("published topics = %v, want one per mutation", publisher.topics)
	}
}

func TestUpdateEquipmentNotFound(t *testing.T) {
	service, _, _, _ := newCatalogService()

	_, err := service.UpdateEquipment(context.Background(), admin, "missing", EquipmentInput{Name: "Projector"})
	if !errors.Is(err, booking.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
