package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound          = errors.New("user not found")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account locked due to too many failed login attempts")
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionExpired        = errors.New("session expired")
	ErrSessionRevoked        = errors.New("session revoked")
	ErrSessionFingerprint    = errors.New("session fingerprint mismatch - possible token theft")
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrPasswordNotSet        = errors.New("password not set")
	ErrProviderAccount       = errors.New("account uses an identity provider")
)

// Token errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrTokenNotFound = errors.New("verification token not found")
)

// Validation errors
var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidUsername  = errors.New("invalid username format")
	ErrWeakPassword     = errors.New("password does not meet requirements")
	ErrEmailNotVerified = errors.New("email not verified")
)

// Learning errors
var (
	ErrCourseNotFound          = errors.New("course not found")
	ErrProgressNotFound        = errors.New("progress not found")
	ErrCourseNotCompleted      = errors.New("course not completed")
	ErrCertificationNotFound   = errors.New("certification not found")
	ErrArtifactUnavailable     = errors.New("certificate file not available")
	ErrProfileNotFound         = errors.New("learner profile not found")
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrInvalidNotificationKind = errors.New("invalid notification type")
)
