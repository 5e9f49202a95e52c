package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/config"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
)

// Rate limiter groups.
const (
	LimitAuth    = "auth"
	LimitReset   = "reset"
	LimitVerify  = "verify"
	LimitRefresh = "refresh"
	LimitProfile = "profile"
	LimitAdmin   = "admin"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates a per-client-IP rate limiter that logs rejected requests.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return passthrough
}

func passthrough(next http.Handler) http.Handler { return next }

// CreateRateLimiters builds one limiter per endpoint group.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) map[string]func(http.Handler) http.Handler {
	budgets := map[string]struct{ requests, minutes int }{
		LimitAuth:    {cfg.AuthRequestsPerMinute, cfg.AuthWindowMinutes},
		LimitReset:   {cfg.ResetRequestsPerWindow, cfg.ResetWindowMinutes},
		LimitVerify:  {cfg.VerifyRequestsPerWindow, cfg.VerifyWindowMinutes},
		LimitRefresh: {cfg.RefreshRequestsPerMinute, cfg.RefreshWindowMinutes},
		LimitProfile: {cfg.ProfileRequestsPerMinute, cfg.ProfileWindowMinutes},
		LimitAdmin:   {cfg.AdminRequestsPerWindow, cfg.AdminWindowMinutes},
	}

	limiters := make(map[string]func(http.Handler) http.Handler, len(budgets))
	for name, b := range budgets {
		if !cfg.Enabled || b.requests <= 0 {
			limiters[name] = NoRateLimit()
			continue
		}
		limiters[name] = RateLimit(RateLimitConfig{
			Requests: b.requests,
			Window:   time.Duration(max(b.minutes, 1)) * time.Minute,
			Logger:   logger,
		})
	}
	return limiters
}
