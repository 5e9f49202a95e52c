// Package learning implements the learner-facing features: catalog,
// onboarding, progress tracking and certifications.
package learning

import (
	"context"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Notifier creates in-app notifications. *notifications.Service implements it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) error
}

// CourseLookup finds published courses by id.
type CourseLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
}

// UserLookup finds users by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
