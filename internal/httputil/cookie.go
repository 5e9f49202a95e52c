package httputil

import (
	"net/http"
	"time"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Cookie names and the header mobile clients identify themselves with.
const (
	AccessTokenCookie  = "bl_access_token"
	RefreshTokenCookie = "bl_refresh_token"
	ClientTypeHeader   = "X-Client-Type"
)

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns Lax, host-only cookies. Secure should be set
// whenever the app is served over HTTPS.
func DefaultCookieConfig(secure bool) CookieConfig {
	return CookieConfig{
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// SetAuthCookies sets HttpOnly cookies for access and refresh tokens.
func SetAuthCookies(w http.ResponseWriter, tokens *domain.TokenPair, refreshTTL time.Duration, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(AccessTokenCookie, tokens.AccessToken, tokens.ExpiresIn))
	http.SetCookie(w, cfg.cookie(RefreshTokenCookie, tokens.RefreshToken, int(refreshTTL.Seconds())))
}

// ClearAuthCookies expires both auth cookies.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, cfg.cookie(RefreshTokenCookie, "", -1))
}

// GetRefreshTokenFromCookie extracts the refresh token cookie.
func GetRefreshTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(RefreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// GetAccessTokenFromCookie extracts the access token cookie.
func GetAccessTokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// IsMobileClient reports whether the request carries X-Client-Type: mobile.
// Mobile clients receive tokens in the body instead of cookies.
func IsMobileClient(r *http.Request) bool {
	return r.Header.Get(ClientTypeHeader) == "mobile"
}

// TokenResponse is the body returned after sign-in or refresh. Tokens are
// only included for mobile clients.
type TokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// WriteTokens returns tokens in the body for mobile clients and as cookies
// for everyone else.
func WriteTokens(w http.ResponseWriter, r *http.Request, status int, tokens *domain.TokenPair, refreshTTL time.Duration, cfg CookieConfig) {
	resp := TokenResponse{TokenType: tokens.TokenType, ExpiresIn: tokens.ExpiresIn}
	if IsMobileClient(r) {
		resp.AccessToken = tokens.AccessToken
		resp.RefreshToken = tokens.RefreshToken
	} else {
		SetAuthCookies(w, tokens, refreshTTL, cfg)
	}
	JSON(w, status, resp)
}
