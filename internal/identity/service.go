// Package identity handles sign-in through the external identity provider and
// the session state issued afterwards. Accounts are provisioned on first
// sign-in; there is no local password storage.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/calendar"
	"github.com/example/room-reservations/internal/credentials"
	"github.com/example/room-reservations/internal/persistence"
)

var (
	// ErrInvalidSession is returned for unknown or expired session tokens.
	ErrInvalidSession = errors.New("identity: invalid session")
	// ErrNoRefreshToken is returned when the provider completed the exchange
	// without a refresh token, so calendar access cannot be delegated.
	ErrNoRefreshToken = errors.New("identity: provider returned no refresh token")
)

// Service exchanges OAuth authorization codes for provisioned accounts and
// sessions, and resolves calendar credentials for the booking workflow.
type Service struct {
	oauth          *oauth2.Config
	users          persistence.UserRepository
	sessions       persistence.SessionRepository
	vault          *credentials.Vault
	adminEmails    map[string]struct{}
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// Config carries the dependencies for NewService.
type Config struct {
	OAuth       *oauth2.Config
	Users       persistence.UserRepository
	Sessions    persistence.SessionRepository
	Vault       *credentials.Vault
	AdminEmails []string
	IDGenerator func() string
	// TokenGenerator produces opaque session tokens. Defaults to 32 random
	// bytes, hex encoded.
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// NewService wires an identity service.
func NewService(cfg Config) *Service {
	admins := make(map[string]struct{}, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			admins[email] = struct{}{}
		}
	}
	if cfg.TokenGenerator == nil {
		cfg.TokenGenerator = randomToken
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		oauth:          cfg.OAuth,
		users:          cfg.Users,
		sessions:       cfg.Sessions,
		vault:          cfg.Vault,
		adminEmails:    admins,
		idGenerator:    cfg.IDGenerator,
		tokenGenerator: cfg.TokenGenerator,
		now:            cfg.Now,
		sessionTTL:     cfg.SessionTTL,
		logger:         cfg.Logger,
	}
}

// AuthCodeURL builds the provider sign-in URL. Offline access with forced
// consent is requested so the exchange always yields a refresh token for
// later calendar calls.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Session is the issued authentication state returned after sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal booking.Principal
}

// HandleCallback exchanges the authorization code, provisions or refreshes
// the local account, stores the sealed refresh token, and issues a session.
func (s *Service) HandleCallback(ctx context.Context, code string) (Session, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return Session{}, fmt.Errorf("fetch user info: %w", err)
	}

	user, err := s.upsertUser(ctx, info, token.RefreshToken)
	if err != nil {
		return Session{}, err
	}

	now := s.now()
	session := persistence.Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     s.tokenGenerator(),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID)
	return Session{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Principal: principalFor(user),
	}, nil
}

// Authenticate resolves a session token to the acting principal. Expired
// sessions are removed eagerly.
func (s *Service) Authenticate(ctx context.Context, token string) (booking.Principal, error) {
	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return booking.Principal{}, ErrInvalidSession
		}
		return booking.Principal{}, err
	}
	if !session.ExpiresAt.After(s.now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to remove expired session", "error", err)
		}
		return booking.Principal{}, ErrInvalidSession
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return booking.Principal{}, ErrInvalidSession
		}
		return booking.Principal{}, err
	}
	return principalFor(user), nil
}

// Logout removes the session. A token that is already gone is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpiredSessions drops sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) error {
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}

// CalendarCredential unseals the stored refresh token for the user, making
// the identity service the credential source of the booking workflow.
func (s *Service) CalendarCredential(ctx context.Context, userID string) (calendar.Credential, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return calendar.Credential{}, err
	}
	if len(user.RefreshToken) == 0 {
		return calendar.Credential{}, ErrNoRefreshToken
	}
	plaintext, err := s.vault.Open(user.RefreshToken)
	if err != nil {
		return calendar.Credential{}, fmt.Errorf("unseal refresh token: %w", err)
	}
	return calendar.Credential{RefreshToken: plaintext}, nil
}

func (s *Service) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*goauth2.Userinfo, error) {
	svc, err := goauth2.NewService(ctx, option.WithTokenSource(s.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, err
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("identity: provider returned no email")
	}
	return info, nil
}

// upsertUser provisions the account on first sign-in and refreshes display
// attributes and the sealed refresh token on every subsequent one. The
// provider only sends a refresh token when consent is (re-)granted, so an
// empty one leaves the stored token untouched.
func (s *Service) upsertUser(ctx context.Context, info *goauth2.Userinfo, refreshToken string) (persistence.User, error) {
	var sealed []byte
	if refreshToken != "" {
		var err error
		sealed, err = s.vault.Seal(refreshToken)
		if err != nil {
			return persistence.User{}, fmt.Errorf("seal refresh token: %w", err)
		}
	}

	_, isAdmin := s.adminEmails[strings.ToLower(info.Email)]
	now := s.now()

	user, err := s.users.GetUserByEmail(ctx, info.Email)
	switch {
	case err == nil:
		user.DisplayName = displayName(info)
		user.IsAdmin = isAdmin
		if sealed != nil {
			user.RefreshToken = sealed
		}
		user.UpdatedAt = now
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return persistence.User{}, fmt.Errorf("update user: %w", err)
		}
		return user, nil
	case errors.Is(err, persistence.ErrNotFound):
		if sealed == nil {
			return persistence.User{}, ErrNoRefreshToken
		}
		user = persistence.User{
			ID:           s.idGenerator(),
			Email:        info.Email,
			DisplayName:  displayName(info),
			IsAdmin:      isAdmin,
			RefreshToken: sealed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return persistence.User{}, fmt.Errorf("create user: %w", err)
		}
		s.logger.InfoContext(ctx, "provisioned new user", "user_id", user.ID)
		return user, nil
	default:
		return persistence.User{}, err
	}
}

func principalFor(user persistence.User) booking.Principal {
	return booking.Principal{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}
}

func displayName(info *goauth2.Userinfo) string {
	if info.Name != "" {
		return info.Name
	}
	return info.Email
}

func randomToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("identity: read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}
