package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/config"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/admin"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/certifications"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/courses"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/email"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/inbox"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/me"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/onboarding"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/password"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/progress"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/features/session"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/http/middleware"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
)

// SessionService is everything the router needs from the session layer:
// token validation for the auth middleware plus the sign-in and refresh flows.
type SessionService interface {
	middleware.TokenValidator
	password.Sessions
	session.Sessions
}

// RecoveryService runs the reset and verification flows.
type RecoveryService interface {
	password.Recovery
	email.Verifier
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Passwords       password.Passwords
	Sessions        SessionService
	Recovery        RecoveryService
	Accounts        me.Accounts
	Profiles        onboarding.Profiles
	Catalog         courses.Catalog
	Progress        progress.Tracker
	Certifications  certifications.Certifications
	Notifications   inbox.Inbox
	Sweeper         admin.Sweeper
	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	AdminSecret     string
	// CookieSecure sets the Secure flag on auth cookies.
	CookieSecure             bool
	RequireEmailVerification bool
}

// Health is the body served by /health.
type Health struct {
	Status string `json:"status"`
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, Health{Status: "ok"})
	})

	limits := middleware.CreateRateLimiters(cfg.RateLimit, logger)
	requireAuth := middleware.Auth(cfg.Sessions)
	cookies := httputil.DefaultCookieConfig(cfg.CookieSecure)

	password.NewHandler(logger, cfg.Passwords, cfg.Sessions, cfg.Recovery, cookies, cfg.RequireEmailVerification).
		RegisterRoutes(r, limits[middleware.LimitAuth], limits[middleware.LimitReset])
	email.NewHandler(logger, cfg.Recovery).
		RegisterRoutes(r, requireAuth, limits[middleware.LimitVerify])
	session.NewHandler(logger, cfg.Sessions, cookies).
		RegisterRoutes(r, requireAuth, limits[middleware.LimitRefresh])
	me.NewHandler(logger, cfg.Accounts, cookies).
		RegisterRoutes(r, requireAuth, limits[middleware.LimitProfile])
	onboarding.NewHandler(logger, cfg.Profiles).
		RegisterRoutes(r, requireAuth)
	courses.NewHandler(logger, cfg.Catalog).
		RegisterRoutes(r)
	progress.NewHandler(logger, cfg.Progress).
		RegisterRoutes(r, requireAuth, middleware.RequireVerified())
	certifications.NewHandler(logger, cfg.Certifications).
		RegisterRoutes(r, requireAuth)
	inbox.NewHandler(logger, cfg.Notifications).
		RegisterRoutes(r, requireAuth)
	admin.NewHandler(logger, cfg.Sweeper).
		RegisterRoutes(r, middleware.AdminSecret(cfg.AdminSecret), limits[middleware.LimitAdmin])

	return r
}
