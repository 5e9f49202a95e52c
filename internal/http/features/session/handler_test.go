package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

type fakeSessions struct {
	refreshErr error
	refreshed  string
	revoked    []string
	revokedAll []uuid.UUID
}

func (f *fakeSessions) RefreshSession(ctx context.Context, refreshToken string, opts auth.IssueSessionOpts) (*domain.TokenPair, error) {
	f.refreshed = refreshToken
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &domain.TokenPair{AccessToken: "new-access", RefreshToken: refreshToken, TokenType: "Bearer", ExpiresIn: 900}, nil
}

func (f *fakeSessions) RevokeSession(ctx context.Context, refreshToken string) error {
	f.revoked = append(f.revoked, refreshToken)
	return nil
}

func (f *fakeSessions) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

func (f *fakeSessions) RefreshTokenTTL() time.Duration { return time.Hour }

func newHandler(s *fakeSessions) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), s, httputil.DefaultCookieConfig(true))
}

func TestRefreshRequest_Validation_Mobile(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "refresh_token is required",
		},
		{
			name:           "empty refresh_token",
			body:           `{"refresh_token": ""}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "refresh_token is required",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Client-Type", "mobile")
			rec := httptest.NewRecorder()

			newHandler(sessions).Refresh(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
			if sessions.refreshed != "" {
				t.Errorf("Validation should have failed before reaching service")
			}
		})
	}
}

func TestRefreshRequest_WebClient_NoCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	rec := httptest.NewRecorder()

	newHandler(&fakeSessions{}).Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var response map[string]string
	json.NewDecoder(rec.Body).Decode(&response)
	if response["error"] != "refresh token not found" {
		t.Errorf("Error = %q, want %q", response["error"], "refresh token not found")
	}
}

func TestRefresh_WebClient_RotatesCookies(t *testing.T) {
	sessions := &fakeSessions{}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: httputil.RefreshTokenCookie, Value: "old-refresh"})
	rec := httptest.NewRecorder()

	newHandler(sessions).Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if sessions.refreshed != "old-refresh" {
		t.Errorf("refreshed = %q, want %q", sessions.refreshed, "old-refresh")
	}

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	if cookies[httputil.AccessTokenCookie] != "new-access" {
		t.Errorf("access cookie = %q, want %q", cookies[httputil.AccessTokenCookie], "new-access")
	}
}

func TestRefresh_RevokedSessionClearsCookies(t *testing.T) {
	sessions := &fakeSessions{refreshErr: domain.ErrSessionRevoked}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: httputil.RefreshTokenCookie, Value: "stale"})
	rec := httptest.NewRecorder()

	newHandler(sessions).Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s not cleared (MaxAge=%d)", c.Name, c.MaxAge)
		}
	}
}

func TestLogoutRequest_Validation_Mobile(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
		expectRevoke   bool
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusNoContent, // Logout succeeds even with empty token
		},
		{
			name:           "with token",
			body:           `{"refresh_token": "abc"}`,
			expectedStatus: http.StatusNoContent,
			expectRevoke:   true,
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{}
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Client-Type", "mobile")
			rec := httptest.NewRecorder()

			newHandler(sessions).Logout(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if got := len(sessions.revoked) == 1; got != tt.expectRevoke {
				t.Errorf("revoked = %v, want %v", sessions.revoked, tt.expectRevoke)
			}

			if tt.expectedError != "" {
				var response map[string]string
				json.NewDecoder(rec.Body).Decode(&response)
				if response["error"] != tt.expectedError {
					t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
				}
			}
		})
	}
}

func TestLogoutRequest_WebClient_NoCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	rec := httptest.NewRecorder()

	newHandler(&fakeSessions{}).Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if n := len(rec.Result().Cookies()); n != 2 {
		t.Errorf("cookies set = %d, want 2 cleared cookies", n)
	}
}

func TestLogoutAll(t *testing.T) {
	userID := uuid.New()
	sessions := &fakeSessions{}
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout/all", nil)
	claims := &auth.AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()}}
	req = req.WithContext(middleware.WithClaims(req.Context(), userID, claims))
	rec := httptest.NewRecorder()

	newHandler(sessions).LogoutAll(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(sessions.revokedAll) != 1 || sessions.revokedAll[0] != userID {
		t.Errorf("revokedAll = %v, want [%s]", sessions.revokedAll, userID)
	}
}
