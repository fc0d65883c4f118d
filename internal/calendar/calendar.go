// Package calendar mirrors reservations into an external calendar system.
//
// The external calendar is a best-effort mirror: conflict detection is decided
// purely against the local store, never against the external system, so the
// hot path carries no cross-system race window or API latency.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound marks the "resource already gone" class of external
// failures. Deleting or patching an event that was removed out-of-band is
// treated as success by callers.
var ErrEventNotFound = errors.New("calendar: event not found")

// Credential carries the delegated per-user authorization for external
// calendar calls. It is passed explicitly on every call so concurrent
// workflows for different users never share mutable client state.
type Credential struct {
	RefreshToken string
}

// EventDetails describes the mirrored representation of a reservation.
type EventDetails struct {
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	Invitees     []string
	// RoomResource is the external resource identifier of the booked room,
	// added as a resource attendee when present.
	RoomResource *string
}

// CreatedEvent reports the identifiers generated by the external system.
type CreatedEvent struct {
	EventID  string
	JoinLink string
}

// Service reconciles reservations with external calendar events.
type Service interface {
	CreateEvent(ctx context.Context, cred Credential, details EventDetails) (CreatedEvent, error)
	PatchEvent(ctx context.Context, cred Credential, eventID string, details EventDetails) error
	DeleteEvent(ctx context.Context, cred Credential, eventID string) error
}
