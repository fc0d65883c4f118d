package persistence

import (
	"context"
	"time"
)

// ReservationTx exposes the row operations available inside a single booking
// transaction. A Tx instance is owned by exactly one workflow at a time and
// must not escape the InTransaction callback.
type ReservationTx interface {
	// FindConflicts returns confirmed reservations in the room whose
	// half-open interval overlaps [start, end), excluding excludeID when
	// an update checks against itself.
	FindConflicts(roomID string, start, end time.Time, excludeID string) ([]Reservation, error)
	GetReservation(id string) (Reservation, error)
	InsertReservation(reservation Reservation) error
	UpdateReservation(reservation Reservation) error
	DeleteReservation(id string) error
	// ReplaceInvitees and ReplaceEquipment implement idempotent replacement:
	// all prior association rows are deleted and the new set inserted.
	ReplaceInvitees(reservationID string, emails []string) error
	ReplaceEquipment(reservationID string, items []EquipmentRequest) error
}

// ReservationStore persists reservations and their associations. Multi-row
// mutations run inside InTransaction so a failure at any step leaves no
// partial invitee or equipment state behind.
type ReservationStore interface {
	InTransaction(ctx context.Context, fn func(tx ReservationTx) error) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	// ListForWindow returns confirmed reservations intersecting the window,
	// joined with room and owner display attributes.
	ListForWindow(ctx context.Context, start, end time.Time) ([]ReservationListing, error)
	// ListActiveForUser returns confirmed, not-yet-ended reservations the
	// user owns or is invited to.
	ListActiveForUser(ctx context.Context, userID, email string, now time.Time) ([]ReservationListing, error)
}

// RoomRepository exposes catalog operations for meeting rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context, includeInactive bool) ([]Room, error)
	DeactivateRoom(ctx context.Context, id string) error
}

// EquipmentRepository exposes catalog operations for requestable equipment.
type EquipmentRepository interface {
	CreateEquipment(ctx context.Context, item Equipment) error
	UpdateEquipment(ctx context.Context, item Equipment) error
	GetEquipment(ctx context.Context, id string) (Equipment, error)
	ListEquipment(ctx context.Context, includeInactive bool) ([]Equipment, error)
	DeactivateEquipment(ctx context.Context, id string) error
}

// UserRepository stores accounts provisioned from the identity provider.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
