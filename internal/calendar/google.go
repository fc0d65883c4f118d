package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleConfig configures the Google Calendar implementation.
type GoogleConfig struct {
	OAuth *oauth2.Config
	// TimeZone is attached to event start/end times (IANA name).
	TimeZone string
}

// GoogleService implements Service on the Google Calendar v3 API. Events are
// created on the owner's primary calendar with a Meet conference attached;
// invitees and the room resource are notified through sendUpdates.
type GoogleService struct {
	cfg GoogleConfig
}

// NewGoogleService creates a Google Calendar backed Service.
func NewGoogleService(cfg GoogleConfig) (*GoogleService, error) {
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("calendar: OAuth configuration is required")
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = "UTC"
	}
	return &GoogleService{cfg: cfg}, nil
}

// CreateEvent inserts an event with a Meet conference and returns its
// identifiers.
func (g *GoogleService) CreateEvent(ctx context.Context, cred Credential, details EventDetails) (CreatedEvent, error) {
	svc, err := g.clientFor(ctx, cred)
	if err != nil {
		return CreatedEvent{}, err
	}

	event := g.buildEvent(details)
	event.ConferenceData = &gcal.ConferenceData{
		CreateRequest: &gcal.CreateConferenceRequest{
			RequestId:             uuid.NewString(),
			ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
		},
	}

	created, err := svc.Events.Insert("primary", event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return CreatedEvent{}, mapGoogleError(err)
	}

	return CreatedEvent{EventID: created.Id, JoinLink: created.HangoutLink}, nil
}

// PatchEvent applies the details to an existing event. Patching is idempotent:
// re-sending unchanged details is harmless.
func (g *GoogleService) PatchEvent(ctx context.Context, cred Credential, eventID string, details EventDetails) error {
	svc, err := g.clientFor(ctx, cred)
	if err != nil {
		return err
	}

	_, err = svc.Events.Patch("primary", eventID, g.buildEvent(details)).
		SendUpdates("all").
		Context(ctx).
		Do()
	return mapGoogleError(err)
}

// DeleteEvent removes an event from the owner's calendar.
func (g *GoogleService) DeleteEvent(ctx context.Context, cred Credential, eventID string) error {
	svc, err := g.clientFor(ctx, cred)
	if err != nil {
		return err
	}

	err = svc.Events.Delete("primary", eventID).
		SendUpdates("all").
		Context(ctx).
		Do()
	return mapGoogleError(err)
}

// clientFor builds a calendar client from the per-call credential. A fresh
// token source per call keeps credentials request-scoped instead of mutating a
// shared client.
func (g *GoogleService) clientFor(ctx context.Context, cred Credential) (*gcal.Service, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("calendar: credential has no refresh token")
	}

	source := g.cfg.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to build client: %w", err)
	}
	return svc, nil
}

func (g *GoogleService) buildEvent(details EventDetails) *gcal.Event {
	attendees := make([]*gcal.EventAttendee, 0, len(details.Invitees)+1)
	for _, email := range details.Invitees {
		attendees = append(attendees, &gcal.EventAttendee{Email: email})
	}
	if details.RoomResource != nil && *details.RoomResource != "" {
		attendees = append(attendees, &gcal.EventAttendee{Email: *details.RoomResource, Resource: true})
	}

	return &gcal.Event{
		Summary:     details.Title,
		Description: details.Description,
		Start: &gcal.EventDateTime{
			DateTime: details.Start.Format(time.RFC3339),
			TimeZone: g.cfg.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: details.End.Format(time.RFC3339),
			TimeZone: g.cfg.TimeZone,
		},
		Attendees: attendees,
	}
}

// mapGoogleError folds the API's "already gone" responses into
// ErrEventNotFound so callers can absorb them.
func mapGoogleError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone {
			return ErrEventNotFound
		}
	}
	return err
}
