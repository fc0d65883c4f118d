package booking

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// ReservationInput captures caller provided booking fields.
type ReservationInput struct {
	RoomID       string
	Title        string
	Description  *string
	Start        time.Time
	End          time.Time
	Invitees     []string
	EquipmentIDs []string
}

// Reservation is the service-level view of a booked room interval.
type Reservation struct {
	ID              string
	UserID          string
	OwnerName       string
	RoomID          string
	RoomName        string
	RoomColor       *string
	Title           string
	Description     *string
	Start           time.Time
	End             time.Time
	CalendarEventID *string
	MeetLink        *string
	Invitees        []string
	EquipmentIDs    []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal Principal
	Input     ReservationInput
}

// UpdateReservationParams wraps the data required to update a reservation.
type UpdateReservationParams struct {
	Principal     Principal
	ReservationID string
	Input         ReservationInput
}

// ListWindowParams bounds a calendar window query.
type ListWindowParams struct {
	Start time.Time
	End   time.Time
}
