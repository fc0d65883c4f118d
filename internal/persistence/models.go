package persistence

import "time"

// ReservationStatus enumerates the lifecycle states stored for a reservation.
// Cancellation is a hard delete, so confirmed is the only status rows normally
// carry; the column is kept so listings can filter on it.
type ReservationStatus string

const (
	// StatusConfirmed marks a booked reservation that holds its room interval.
	StatusConfirmed ReservationStatus = "confirmed"
)

// Reservation represents a booked, time-boxed occupancy of a room.
type Reservation struct {
	ID              string
	UserID          string
	RoomID          string
	Title           string
	Description     *string
	Start           time.Time
	End             time.Time
	Status          ReservationStatus
	CalendarEventID *string
	MeetLink        *string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Associations loaded alongside the row. Invitees always contain the
	// owner's email. Equipment carries the requesting user per item.
	Invitees  []string
	Equipment []EquipmentRequest
}

// EquipmentRequest ties a piece of equipment to a reservation and the user who
// asked for it.
type EquipmentRequest struct {
	EquipmentID string
	UserID      string
}

// ReservationListing is a reservation joined with display attributes from the
// room and owner for calendar views.
type ReservationListing struct {
	Reservation
	RoomName  string
	RoomColor *string
	OwnerName string
}

// Room represents a bookable meeting room catalog entry.
type Room struct {
	ID                 string
	Name               string
	Capacity           int
	CalendarResourceID *string
	Active             bool
	Color              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Equipment represents a requestable item (projector, conference phone, ...).
type Equipment struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User represents an account provisioned from the identity provider.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	IsAdmin      bool
	RefreshToken []byte // encrypted at rest by the credential vault
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authenticated session issued after the OAuth callback.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
