// Package booking coordinates the reservation workflow: validation, conflict
// check, external calendar sync, transactional persistence, and change
// notification, as one logical unit with rollback on any step's failure.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/calendar"
	"github.com/example/room-reservations/internal/notify"
	"github.com/example/room-reservations/internal/persistence"
)

// RoomCatalog exposes the room lookups the workflow needs.
type RoomCatalog interface {
	GetRoom(ctx context.Context, id string) (persistence.Room, error)
}

// CredentialSource resolves the delegated calendar credential for a user.
type CredentialSource interface {
	CalendarCredential(ctx context.Context, userID string) (calendar.Credential, error)
}

// Publisher broadcasts change events to connected clients.
type Publisher interface {
	Publish(topic string) error
}

// Service orchestrates reservation create/update/cancel workflows.
//
// The conflict check and the row writes share one store transaction, and the
// external calendar call runs between them inside that same transaction
// scope, so a failure at any step leaves neither partial rows nor a
// confirmed double-booking behind. External calls are bounded by a timeout so
// a hung calendar API cannot hold the transaction open indefinitely.
type Service struct {
	store       persistence.ReservationStore
	rooms       RoomCatalog
	calendar    calendar.Service
	credentials CredentialSource
	publisher   Publisher
	idGenerator func() string
	now         func() time.Time
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewService wires dependencies for the booking workflow.
func NewService(
	store persistence.ReservationStore,
	rooms RoomCatalog,
	cal calendar.Service,
	credentials CredentialSource,
	publisher Publisher,
	idGenerator func() string,
	now func() time.Time,
	callTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:       store,
		rooms:       rooms,
		calendar:    cal,
		credentials: credentials,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Create books a room interval: it rejects invalid input, aborts on any
// overlap with a confirmed reservation in the room, mirrors the reservation
// into the external calendar, persists the row plus its invitee and equipment
// associations transactionally, and finally broadcasts a change event.
func (s *Service) Create(ctx context.Context, params CreateReservationParams) (Reservation, error) {
	input := normalizeInput(params.Input)
	if err := validateInput(input); err != nil {
		return Reservation{}, err
	}

	room, err := s.lookupActiveRoom(ctx, input.RoomID)
	if err != nil {
		return Reservation{}, err
	}

	cred, err := s.credentials.CalendarCredential(ctx, params.Principal.UserID)
	if err != nil {
		return Reservation{}, fmt.Errorf("%w: %v", ErrCalendarAuth, err)
	}

	invitees := mergeInvitees(input.Invitees, params.Principal.Email)
	now := s.now()
	res := persistence.Reservation{
		ID:          s.idGenerator(),
		UserID:      params.Principal.UserID,
		RoomID:      input.RoomID,
		Title:       input.Title,
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
		Status:      persistence.StatusConfirmed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	details := calendar.EventDetails{
		Title:        input.Title,
		Description:  derefOrEmpty(input.Description),
		Start:        input.Start,
		End:          input.End,
		Invitees:     invitees,
		RoomResource: room.CalendarResourceID,
	}

	var created calendar.CreatedEvent
	synced := false

	txErr := s.store.InTransaction(ctx, func(tx persistence.ReservationTx) error {
		conflicts, err := tx.FindConflicts(input.RoomID, input.Start, input.End, "")
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		created, err = s.createEvent(ctx, cred, details)
		if err != nil {
			return fmt.Errorf("external calendar sync failed: %w", err)
		}
		synced = true

		res.CalendarEventID = &created.EventID
		if created.JoinLink != "" {
			link := created.JoinLink
			res.MeetLink = &link
		}

		if err := tx.InsertReservation(res); err != nil {
			return err
		}
		if err := tx.ReplaceInvitees(res.ID, invitees); err != nil {
			return err
		}
		return tx.ReplaceEquipment(res.ID, equipmentRequests(input.EquipmentIDs, params.Principal.UserID))
	})
	if txErr != nil {
		var conflict *ConflictError
		if errors.As(txErr, &conflict) {
			return Reservation{}, txErr
		}
		if synced {
			// The external event exists but the local row does not. Log
			// distinctly, attempt a compensating delete, and surface the
			// dedicated error so operators can reconcile.
			orphan := &OrphanedEventError{EventID: created.EventID, Err: txErr}
			s.logger.ErrorContext(ctx, "external calendar event orphaned by failed persist",
				"event_id", created.EventID, "room_id", input.RoomID, "error", txErr)
			s.compensateDelete(ctx, cred, created.EventID)
			return Reservation{}, orphan
		}
		return Reservation{}, mapStoreError(txErr)
	}

	s.publishChange(ctx)

	res.Invitees = invitees
	return s.toReservation(res, room, params.Principal), nil
}

// Update re-runs the booking workflow for an existing reservation. Ownership
// is verified inside the same transaction as the mutation so a concurrent
// cancellation cannot slip between check and write. The external event is
// re-patched unconditionally; patching is idempotent, and a patch against an
// event deleted out-of-band is absorbed.
func (s *Service) Update(ctx context.Context, params UpdateReservationParams) (Reservation, error) {
	input := normalizeInput(params.Input)
	if err := validateInput(input); err != nil {
		return Reservation{}, err
	}

	room, err := s.lookupActiveRoom(ctx, input.RoomID)
	if err != nil {
		return Reservation{}, err
	}

	invitees := mergeInvitees(input.Invitees, params.Principal.Email)
	var updated persistence.Reservation

	txErr := s.store.InTransaction(ctx, func(tx persistence.ReservationTx) error {
		current, err := tx.GetReservation(params.ReservationID)
		if err != nil {
			return err
		}
		if current.UserID != params.Principal.UserID {
			return ErrUnauthorized
		}

		conflicts, err := tx.FindConflicts(input.RoomID, input.Start, input.End, current.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		if current.CalendarEventID != nil {
			cred, err := s.credentials.CalendarCredential(ctx, current.UserID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCalendarAuth, err)
			}
			details := calendar.EventDetails{
				Title:        input.Title,
				Description:  derefOrEmpty(input.Description),
				Start:        input.Start,
				End:          input.End,
				Invitees:     invitees,
				RoomResource: room.CalendarResourceID,
			}
			if err := s.patchEvent(ctx, cred, *current.CalendarEventID, details); err != nil {
				if errors.Is(err, calendar.ErrEventNotFound) {
					s.logger.WarnContext(ctx, "external calendar event gone during update, continuing",
						"reservation_id", current.ID, "event_id", *current.CalendarEventID)
				} else {
					return fmt.Errorf("external calendar sync failed: %w", err)
				}
			}
		}

		updated = current
		updated.RoomID = input.RoomID
		updated.Title = input.Title
		updated.Description = input.Description
		updated.Start = input.Start
		updated.End = input.End
		updated.UpdatedAt = s.now()

		if err := tx.UpdateReservation(updated); err != nil {
			return err
		}
		if err := tx.ReplaceInvitees(updated.ID, invitees); err != nil {
			return err
		}
		return tx.ReplaceEquipment(updated.ID, equipmentRequests(input.EquipmentIDs, params.Principal.UserID))
	})
	if txErr != nil {
		return Reservation{}, mapStoreError(txErr)
	}

	s.publishChange(ctx)

	updated.Invitees = invitees
	return s.toReservation(updated, room, params.Principal), nil
}

// Cancel deletes a reservation and its associations, attempting to remove the
// mirrored external event first. An external event already deleted
// out-of-band is treated as success; the owner or an admin may cancel.
func (s *Service) Cancel(ctx context.Context, principal Principal, reservationID string) error {
	txErr := s.store.InTransaction(ctx, func(tx persistence.ReservationTx) error {
		current, err := tx.GetReservation(reservationID)
		if err != nil {
			return err
		}
		if current.UserID != principal.UserID && !principal.IsAdmin {
			return ErrUnauthorized
		}

		if current.CalendarEventID != nil {
			cred, err := s.credentials.CalendarCredential(ctx, current.UserID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrCalendarAuth, err)
			}
			if err := s.deleteEvent(ctx, cred, *current.CalendarEventID); err != nil {
				if errors.Is(err, calendar.ErrEventNotFound) {
					s.logger.InfoContext(ctx, "external calendar event already gone",
						"reservation_id", current.ID, "event_id", *current.CalendarEventID)
				} else {
					return fmt.Errorf("external calendar sync failed: %w", err)
				}
			}
		}

		// Invitee and equipment rows cascade with the reservation.
		return tx.DeleteReservation(reservationID)
	})
	if txErr != nil {
		return mapStoreError(txErr)
	}

	s.publishChange(ctx)
	return nil
}

// ListWindow returns confirmed reservations intersecting the window.
func (s *Service) ListWindow(ctx context.Context, params ListWindowParams) ([]Reservation, error) {
	vErr := &ValidationError{}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if params.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	listings, err := s.store.ListForWindow(ctx, params.Start, params.End)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return toReservations(listings), nil
}

// ListActiveForUser returns confirmed, not-yet-ended reservations the user
// owns or is invited to.
func (s *Service) ListActiveForUser(ctx context.Context, principal Principal) ([]Reservation, error) {
	listings, err := s.store.ListActiveForUser(ctx, principal.UserID, principal.Email, s.now())
	if err != nil {
		return nil, mapStoreError(err)
	}
	return toReservations(listings), nil
}

func (s *Service) lookupActiveRoom(ctx context.Context, roomID string) (persistence.Room, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			vErr := &ValidationError{}
			vErr.add("room_id", "room does not exist")
			return persistence.Room{}, vErr
		}
		return persistence.Room{}, err
	}
	if !room.Active {
		vErr := &ValidationError{}
		vErr.add("room_id", "room is not available for booking")
		return persistence.Room{}, vErr
	}
	return room, nil
}

// createEvent, patchEvent and deleteEvent bound the external call so a hung
// calendar API cannot hold the enclosing transaction open indefinitely.
func (s *Service) createEvent(ctx context.Context, cred calendar.Credential, details calendar.EventDetails) (calendar.CreatedEvent, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.calendar.CreateEvent(callCtx, cred, details)
}

func (s *Service) patchEvent(ctx context.Context, cred calendar.Credential, eventID string, details calendar.EventDetails) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.calendar.PatchEvent(callCtx, cred, eventID, details)
}

func (s *Service) deleteEvent(ctx context.Context, cred calendar.Credential, eventID string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.calendar.DeleteEvent(callCtx, cred, eventID)
}

// compensateDelete is the best-effort cleanup after an orphaned event. Its
// own failure is only logged; the orphan error already carries the event id.
func (s *Service) compensateDelete(ctx context.Context, cred calendar.Credential, eventID string) {
	if err := s.deleteEvent(ctx, cred, eventID); err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
		s.logger.ErrorContext(ctx, "compensating delete of orphaned calendar event failed",
			"event_id", eventID, "error", err)
	}
}

// publishChange broadcasts the reservations-changed signal after a committed
// mutation. Publish failures are logged and never surfaced to the caller.
func (s *Service) publishChange(ctx context.Context) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(notify.TopicReservations); err != nil {
		s.logger.WarnContext(ctx, "failed to publish change event", "topic", notify.TopicReservations, "error", err)
	}
}

func validateInput(input ReservationInput) error {
	vErr := &ValidationError{}

	if input.RoomID == "" {
		vErr.add("room_id", "room is required")
	}
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func normalizeInput(input ReservationInput) ReservationInput {
	input.RoomID = strings.TrimSpace(input.RoomID)
	input.Title = strings.TrimSpace(input.Title)
	// Timestamps are stored at second precision; sub-second input is dropped
	// here so the echoed reservation matches a later read.
	input.Start = input.Start.UTC().Truncate(time.Second)
	input.End = input.End.UTC().Truncate(time.Second)
	return input
}

// mergeInvitees deduplicates the invitee list and guarantees the creator's
// email is always present.
func mergeInvitees(invitees []string, creatorEmail string) []string {
	merged := make([]string, 0, len(invitees)+1)
	seen := make(map[string]struct{}, len(invitees)+1)
	for _, email := range append(append([]string(nil), invitees...), creatorEmail) {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		key := strings.ToLower(email)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, email)
	}
	return merged
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equipmentRequests(equipmentIDs []string, userID string) []persistence.EquipmentRequest {
	if len(equipmentIDs) == 0 {
		return nil
	}
	items := make([]persistence.EquipmentRequest, 0, len(equipmentIDs))
	for _, id := range equipmentIDs {
		if id = strings.TrimSpace(id); id != "" {
			items = append(items, persistence.EquipmentRequest{EquipmentID: id, UserID: userID})
		}
	}
	return items
}

func conflictError(conflicts []persistence.Reservation) *ConflictError {
	summaries := make([]ConflictSummary, 0, len(conflicts))
	for _, c := range conflicts {
		summaries = append(summaries, ConflictSummary{
			ReservationID: c.ID,
			Title:         c.Title,
			Start:         c.Start,
			End:           c.End,
		})
	}
	return &ConflictError{Conflicts: summaries}
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		vErr := &ValidationError{}
		vErr.add("associations", "related records are missing")
		return vErr
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		return vErr
	}
	return err
}

func (s *Service) toReservation(res persistence.Reservation, room persistence.Room, principal Principal) Reservation {
	return Reservation{
		ID:              res.ID,
		UserID:          res.UserID,
		RoomID:          res.RoomID,
		RoomName:        room.Name,
		RoomColor:       room.Color,
		Title:           res.Title,
		Description:     res.Description,
		Start:           res.Start,
		End:             res.End,
		CalendarEventID: res.CalendarEventID,
		MeetLink:        res.MeetLink,
		Invitees:        append([]string(nil), res.Invitees...),
		EquipmentIDs:    equipmentIDs(res.Equipment),
		CreatedAt:       res.CreatedAt,
		UpdatedAt:       res.UpdatedAt,
	}
}

func toReservations(listings []persistence.ReservationListing) []Reservation {
	if len(listings) == 0 {
		return nil
	}
	out := make([]Reservation, 0, len(listings))
	for _, listing := range listings {
		out = append(out, Reservation{
			ID:              listing.ID,
			UserID:          listing.UserID,
			OwnerName:       listing.OwnerName,
			RoomID:          listing.RoomID,
			RoomName:        listing.RoomName,
			RoomColor:       listing.RoomColor,
			Title:           listing.Title,
			Description:     listing.Description,
			Start:           listing.Start,
			End:             listing.End,
			CalendarEventID: listing.CalendarEventID,
			MeetLink:        listing.MeetLink,
			Invitees:        append([]string(nil), listing.Invitees...),
			EquipmentIDs:    equipmentIDs(listing.Equipment),
			CreatedAt:       listing.CreatedAt,
			UpdatedAt:       listing.UpdatedAt,
		})
	}
	return out
}

func equipmentIDs(items []persistence.EquipmentRequest) []string {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.EquipmentID)
	}
	return ids
}
