package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/room-reservations/internal/booking"
	"github.com/example/room-reservations/internal/identity"
)

type stubAuthService struct {
	session   identity.Session
	err       error
	logoutErr error

	lastCode  string
	lastToken string
}

func (s *stubAuthService) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (s *stubAuthService) HandleCallback(_ context.Context, code string) (identity.Session, error) {
	s.lastCode = code
	return s.session, s.err
}

func (s *stubAuthService) Logout(_ context.Context, token string) error {
	s.lastToken = token
	return s.logoutErr
}

func newAuthHandlerForTest(service authService) *AuthHandler {
	handler := NewAuthHandler(service, slog.New(slog.DiscardHandler))
	handler.stateGenerator = func() string { return "state-1" }
	return handler
}

func TestAuthLogin(t *testing.T) {
	handler := newAuthHandlerForTest(&stubAuthService{})

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	if recorder.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", recorder.Code)
	}
	if got := recorder.Header().Get("Location"); got != "https://accounts.example.com/auth?state=state-1" {
		t.Errorf("redirect location = %q", got)
	}

	var stateCookie *http.Cookie
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == "oauth_state" {
			stateCookie = cookie
		}
	}
	if stateCookie == nil || stateCookie.Value != "state-1" {
		t.Fatalf("oauth_state cookie = %+v", stateCookie)
	}
	if !stateCookie.HttpOnly || !stateCookie.Secure {
		t.Errorf("oauth_state cookie not protected: %+v", stateCookie)
	}
}

func TestAuthCallback(t *testing.T) {
	expires := time.Date(2024, 3, 1, 21, 0, 0, 0, time.UTC)
	session := identity.Session{
		Token:     "session-token-1",
		ExpiresAt: expires,
		Principal: booking.Principal{UserID: "user-1", Email: "owner@example.com"},
	}

	t.Run("issues the session on a valid exchange", func(t *testing.T) {
		service := &stubAuthService{session: session}
		handler := newAuthHandlerForTest(service)

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=state-1&code=code-1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
		recorder := httptest.NewRecorder()
		handler.Callback(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", recorder.Code, recorder.Body.String())
		}
		if service.lastCode != "code-1" {
			t.Errorf("code forwarded = %q", service.lastCode)
		}
		if got := recorder.Header().Get("X-Session-Token"); got != "session-token-1" {
			t.Errorf("X-Session-Token = %q", got)
		}

		var resp loginResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Token != "session-token-1" || resp.Principal.UserID != "user-1" {
			t.Errorf("response = %+v", resp)
		}

		var sessionCookie *http.Cookie
		for _, cookie := range recorder.Result().Cookies() {
			if cookie.Name == "session_token" {
				sessionCookie = cookie
			}
		}
		if sessionCookie == nil || sessionCookie.Value != "session-token-1" {
			t.Fatalf("session_token cookie = %+v", sessionCookie)
		}
	})

	t.Run("rejects a state mismatch", func(t *testing.T) {
		handler := newAuthHandlerForTest(&stubAuthService{session: session})

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=state-1&code=code-1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "other-state"})
		recorder := httptest.NewRecorder()
		handler.Callback(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
	})

	t.Run("rejects a missing state cookie", func(t *testing.T) {
		handler := newAuthHandlerForTest(&stubAuthService{session: session})

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=state-1&code=code-1", nil)
		recorder := httptest.NewRecorder()
		handler.Callback(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
	})

	t.Run("surfaces a provider denial", func(t *testing.T) {
		handler := newAuthHandlerForTest(&stubAuthService{})

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil)
		recorder := httptest.NewRecorder()
		handler.Callback(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ErrorCode != "AUTH_PROVIDER_DENIED" {
			t.Errorf("error_code = %q", resp.ErrorCode)
		}
	})

	t.Run("requires an authorization code", func(t *testing.T) {
		handler := newAuthHandlerForTest(&stubAuthService{session: session})

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=state-1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
		recorder := httptest.NewRecorder()
		handler.Callback(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", recorder.Code)
		}
	})

	t.Run("maps a missing refresh token to the calendar auth code", func(t *testing.T) {
		handler := newAuthHandlerForTest(&stubAuthService{err: identity.ErrNoRefreshToken})

		req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=state-1&code=code-1", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-1"})
		recorder := httptest.NewRecorder()
		handler.Callback(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401 (body %s)", recorder.Code, recorder.Body.String())
		}
		var resp errorResponse
		if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ErrorCode != "CALENDAR_AUTH_REQUIRED" {
			t.Errorf("error_code = %q", resp.ErrorCode)
		}
	})
}

func TestAuthLogout(t *testing.T) {
	t.Run("revokes the session and clears the cookie", func(t *testing.T) {
		service := &stubAuthService{}
		handler := newAuthHandlerForTest(service)

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "token-1"})
		recorder := httptest.NewRecorder()
		handler.Logout(recorder, req)

		if recorder.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", recorder.Code)
		}
		if service.lastToken != "token-1" {
			t.Errorf("revoked token = %q", service.lastToken)
		}

		var cleared bool
		for _, cookie := range recorder.Result().Cookies() {
			if cookie.Name == "session_token" && cookie.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Error("session cookie was not cleared")
		}
	})

	t.Run("requires a token", func(t *testing.T) {
		handler := newAuthHandlerForTest(&stubAuthService{})

		recorder := httptest.NewRecorder()
		handler.Logout(recorder, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
	})
}

func TestAuthMe(t *testing.T) {
	handler := newAuthHandlerForTest(&stubAuthService{})

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/auth/me", nil), booking.Principal{UserID: "user-1", Email: "owner@example.com"})
	recorder := httptest.NewRecorder()
	handler.Me(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	var dto principalDTO
	if err := json.Unmarshal(recorder.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if dto.UserID != "user-1" {
		t.Errorf("principal = %+v", dto)
	}
}
