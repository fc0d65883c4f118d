// Package testfixtures provides deterministic builders and harnesses shared by
// persistence and service tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-reservations/internal/persistence"
)

var (
	userCounter        uint64
	roomCounter        uint64
	equipmentCounter   uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: fmt.Sprintf("User %03d", idx),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) { u.Email = email }
}

// WithUserAdmin sets the admin flag.
func WithUserAdmin(isAdmin bool) UserOption {
	return func(u *persistence.User) { u.IsAdmin = isAdmin }
}

// WithUserRefreshToken sets the sealed refresh token bytes.
func WithUserRefreshToken(sealed []byte) UserOption {
	return func(u *persistence.User) { u.RefreshToken = sealed }
}

// ----------------------------- Room fixtures -----------------------------

// RoomOption configures a generated room fixture.
type RoomOption func(*persistence.Room)

// NewRoomFixture returns a deterministic active room with optional overrides.
func NewRoomFixture(opts ...RoomOption) persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	room := persistence.Room{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  int(4 + idx%4),
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *persistence.Room) { r.ID = id }
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(r *persistence.Room) { r.Name = name }
}

// WithRoomActive sets the active flag.
func WithRoomActive(active bool) RoomOption {
	return func(r *persistence.Room) { r.Active = active }
}

// WithRoomCalendarResource sets the external calendar resource identifier.
func WithRoomCalendarResource(resourceID string) RoomOption {
	return func(r *persistence.Room) { r.CalendarResourceID = &resourceID }
}

// WithRoomColor sets the display color.
func WithRoomColor(color string) RoomOption {
	return func(r *persistence.Room) { r.Color = &color }
}

// --------------------------- Equipment fixtures ---------------------------

// EquipmentOption configures a generated equipment fixture.
type EquipmentOption func(*persistence.Equipment)

// NewEquipmentFixture returns a deterministic active equipment item.
func NewEquipmentFixture(opts ...EquipmentOption) persistence.Equipment {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	id := fmt.Sprintf("equipment-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Hour)
	item := persistence.Equipment{
		ID:        id,
		Name:      fmt.Sprintf("Equipment %03d", idx),
		Active:    true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&item)
	}
	return item
}

// WithEquipmentID overrides the generated equipment ID.
func WithEquipmentID(id string) EquipmentOption {
	return func(e *persistence.Equipment) { e.ID = id }
}

// -------------------------- Reservation fixtures --------------------------

// ReservationOption configures a generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservationFixture returns a deterministic confirmed reservation. The
// caller must ensure the referenced user and room rows exist before inserting
// it; the foreign keys are enforced.
func NewReservationFixture(opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	id := fmt.Sprintf("reservation-%03d", idx)
	start := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	res := persistence.Reservation{
		ID:        id,
		UserID:    "user-001",
		RoomID:    "room-001",
		Title:     fmt.Sprintf("Reservation %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    persistence.StatusConfirmed,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&res)
	}
	return res
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(r *persistence.Reservation) { r.ID = id }
}

// WithReservationOwner sets the owning user.
func WithReservationOwner(userID string) ReservationOption {
	return func(r *persistence.Reservation) { r.UserID = userID }
}

// WithReservationRoom sets the booked room.
func WithReservationRoom(roomID string) ReservationOption {
	return func(r *persistence.Reservation) { r.RoomID = roomID }
}

// WithReservationInterval sets the start and end times.
func WithReservationInterval(start, end time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Start = start
		r.End = end
	}
}

// WithReservationEvent sets the mirrored calendar event identifier.
func WithReservationEvent(eventID string) ReservationOption {
	return func(r *persistence.Reservation) { r.CalendarEventID = &eventID }
}
