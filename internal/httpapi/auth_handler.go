package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/room-reservations/internal/identity"
)

type authService interface {
	AuthCodeURL(state string) string
	HandleCallback(ctx context.Context, code string) (identity.Session, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandler drives the OAuth sign-in flow and session lifecycle.
type AuthHandler struct {
	service        authService
	responder      responder
	logger         *slog.Logger
	stateGenerator func() string
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{
		service:        service,
		responder:      newResponder(base),
		logger:         base,
		stateGenerator: randomState,
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// Login redirects the browser to the identity provider. The anti-forgery
// state is mirrored into a short lived cookie checked on callback.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	state := h.stateGenerator()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the OAuth exchange and issues the session.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	if providerErr := strings.TrimSpace(query.Get("error")); providerErr != "" {
		h.log(r.Context(), "Callback", "provider_error", providerErr).ErrorContext(r.Context(), "sign-in rejected by identity provider")
		h.responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_PROVIDER_DENIED",
			Message:   "Sign-in was cancelled or rejected by the identity provider.",
		})
		return
	}

	state := strings.TrimSpace(query.Get("state"))
	cookie, err := r.Cookie("oauth_state")
	if err != nil || state == "" || cookie.Value != state {
		h.log(r.Context(), "Callback", "error_kind", "state_mismatch").ErrorContext(r.Context(), "oauth state validation failed")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("the sign-in state is missing or does not match"))
		return
	}
	clearStateCookie(w)

	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("an authorization code is required"))
		return
	}

	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		h.log(r.Context(), "Callback").ErrorContext(r.Context(), "failed to complete sign-in", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	setSessionCookie(w, session.Token, session.ExpiresAt)
	w.Header().Set("X-Session-Token", session.Token)

	h.log(r.Context(), "Callback", "user_id", session.Principal.UserID).InfoContext(r.Context(), "user signed in")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		Principal: toPrincipalDTO(session.Principal),
	})
}

// Logout revokes the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token := extractTokenFromRequest(r)
	if token == "" {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		h.log(r.Context(), "Logout").ErrorContext(r.Context(), "failed to revoke session", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Me reports the authenticated principal.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPrincipalDTO(principal))
}

type loginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	Principal principalDTO `json:"principal"`
}

func setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    token,
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	})
}

func randomState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return url.QueryEscape(time.Now().String())
	}
	return hex.EncodeToString(buf)
}
