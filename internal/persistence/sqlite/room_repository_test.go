package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/room-reservations/internal/persistence"
	"github.com/example/room-reservations/internal/testfixtures"
)

func TestRoomRepositoryLifecycle(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	room := testfixtures.NewRoomFixture(
		testfixtures.WithRoomName("Sala Norte"),
		testfixtures.WithRoomColor("#1abc9c"),
		testfixtures.WithRoomCalendarResource("rooms/norte@resource.calendar.example.com"),
	)
	if err := harness.Rooms.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	loaded, err := harness.Rooms.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if loaded.Name != "Sala Norte" || !loaded.Active {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Color == nil || *loaded.Color != "#1abc9c" {
		t.Errorf("color = %v", loaded.Color)
	}
	if loaded.CalendarResourceID == nil {
		t.Error("calendar resource ID must round-trip")
	}

	if err := harness.Rooms.DeactivateRoom(ctx, room.ID); err != nil {
		t.Fatalf("DeactivateRoom: %v", err)
	}

	active, err := harness.Rooms.ListRooms(ctx, false)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	for _, r := range active {
		if r.ID == room.ID {
			t.Error("deactivated room listed among active rooms")
		}
	}

	all, err := harness.Rooms.ListRooms(ctx, true)
	if err != nil {
		t.Fatalf("ListRooms(includeInactive): %v", err)
	}
	found := false
	for _, r := range all {
		if r.ID == room.ID {
			found = true
			if r.Active {
				t.Error("room still marked active after deactivation")
			}
		}
	}
	if !found {
		t.Error("deactivated room must remain listed for history")
	}
}

func TestRoomRepositoryRejectsNonPositiveCapacity(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	room := testfixtures.NewRoomFixture()
	room.Capacity = 0
	err := harness.Rooms.CreateRoom(context.Background(), room)
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("error = %v, want ErrConstraintViolation", err)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Rooms.GetRoom(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
