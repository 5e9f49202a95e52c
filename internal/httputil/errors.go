package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/mailer"
	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Messages for errors whose text is not shown to clients as is.
const (
	DeliveryFailedMessage = "could not send email, please try again"
	UnavailableMessage    = "service temporarily unavailable, please try again"
	InternalMessage       = "internal server error"
	LockedMessage         = "account temporarily locked due to too many failed login attempts, try again in 15 minutes"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidToken, http.StatusBadRequest},
	{domain.ErrExpiredToken, http.StatusBadRequest},
	{domain.ErrInvalidEmail, http.StatusBadRequest},
	{domain.ErrInvalidUsername, http.StatusBadRequest},
	{domain.ErrInvalidNotificationKind, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized},
	{domain.ErrSessionNotFound, http.StatusUnauthorized},
	{domain.ErrSessionExpired, http.StatusUnauthorized},
	{domain.ErrSessionRevoked, http.StatusUnauthorized},
	{domain.ErrSessionFingerprint, http.StatusUnauthorized},
	{domain.ErrEmailNotVerified, http.StatusForbidden},
	{domain.ErrUserAlreadyExists, http.StatusConflict},
	{domain.ErrUsernameAlreadyExists, http.StatusConflict},
	{domain.ErrCourseNotCompleted, http.StatusConflict},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrCourseNotFound, http.StatusNotFound},
	{domain.ErrProgressNotFound, http.StatusNotFound},
	{domain.ErrCertificationNotFound, http.StatusNotFound},
	{domain.ErrArtifactUnavailable, http.StatusNotFound},
	{domain.ErrProfileNotFound, http.StatusNotFound},
	{domain.ErrNotificationNotFound, http.StatusNotFound},
}

// WriteError maps a service error to its status code and writes it.
// Unexpected errors are logged and hidden from the client.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation *auth.ValidationError
		policy     *auth.PolicyError
		provider   *auth.ProviderAccountError
	)
	switch {
	case errors.As(err, &validation):
		JSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Message, Field: validation.Field})
		return
	case errors.As(err, &policy):
		JSON(w, http.StatusBadRequest, ErrorResponse{
			Error:        domain.ErrWeakPassword.Error(),
			Violations:   policy.Violations,
			Requirements: policy.Requirements,
		})
		return
	case errors.As(err, &provider):
		Error(w, http.StatusConflict, provider.Error())
		return
	case errors.Is(err, domain.ErrAccountLocked):
		Error(w, http.StatusForbidden, LockedMessage)
		return
	case mailer.IsDelivery(err):
		Error(w, http.StatusBadGateway, DeliveryFailedMessage)
		return
	}

	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			Error(w, s.status, s.err.Error())
			return
		}
	}

	if logger == nil {
		logger = slog.Default()
	}
	if store.IsTransient(err) {
		logger.Error("store unavailable", "error", err)
		Error(w, http.StatusServiceUnavailable, UnavailableMessage)
		return
	}
	logger.Error("unhandled error", "error", err)
	Error(w, http.StatusInternalServerError, InternalMessage)
}
