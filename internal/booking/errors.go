package booking

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("booking: unauthorized")
	// ErrNotFound is returned when the requested reservation does not exist.
	ErrNotFound = errors.New("booking: not found")
	// ErrCalendarAuth is returned when no usable calendar credential exists
	// for the acting user; the caller must re-connect their account.
	ErrCalendarAuth = errors.New("booking: calendar credential missing or invalid")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// ConflictSummary identifies one overlapping reservation so callers can
// present it for a manual decision.
type ConflictSummary struct {
	ReservationID string
	Title         string
	Start         time.Time
	End           time.Time
}

// ConflictError is returned when the requested interval overlaps existing
// confirmed reservations in the same room. Conflicts are never auto-resolved;
// the caller decides what to do next.
type ConflictError struct {
	Conflicts []ConflictSummary
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	return fmt.Sprintf("room already reserved in the requested period (%d conflicting reservations)", len(c.Conflicts))
}

// OrphanedEventError marks the severe inconsistency where the external
// calendar event was created but local persistence failed. It is logged
// distinctly so operators can reconcile; callers see a generic failure.
type OrphanedEventError struct {
	EventID string
	Err     error
}

// Error implements the error interface.
func (o *OrphanedEventError) Error() string {
	return fmt.Sprintf("reservation persist failed after external event %s was created: %v", o.EventID, o.Err)
}

// Unwrap exposes the underlying persistence failure.
func (o *OrphanedEventError) Unwrap() error {
	return o.Err
}
