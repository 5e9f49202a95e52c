package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/events"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Onboarding limits.
const (
	MaxInterests       = 10
	MaxInterestLength  = 50
	MaxGoalLength      = 500
	MinWeeklyGoalHours = 1
	MaxWeeklyGoalHours = 40
)

// ProfileStore persists learner profiles. *repository.ProfilesRepository
// implements it.
type ProfileStore interface {
	CompleteOnboarding(ctx context.Context, p *domain.LearnerProfile) error
	Get(ctx context.Context, userID uuid.UUID) (*domain.LearnerProfile, error)
}

// OnboardingInput is what a learner answers during onboarding.
type OnboardingInput struct {
	Interests       []string           `json:"interests"`
	Level           domain.CourseLevel `json:"level"`
	WeeklyGoalHours int                `json:"weekly_goal_hours"`
	Goal            string             `json:"goal"`
}

// OnboardingService records learner profiles.
type OnboardingService struct {
	profiles ProfileStore
	notifier Notifier
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewOnboardingService creates an onboarding service. notifier and pub may
// be nil.
func NewOnboardingService(profiles ProfileStore, notifier Notifier, pub events.Publisher, logger *slog.Logger) *OnboardingService {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OnboardingService{profiles: profiles, notifier: notifier, events: pub, logger: logger, now: time.Now}
}

// Complete validates in, stores the profile and marks the user onboarded.
// Completing again replaces the previous answers.
func (s *OnboardingService) Complete(ctx context.Context, userID uuid.UUID, in OnboardingInput) (*domain.LearnerProfile, error) {
	interests, err := normalizeInterests(in.Interests)
	if err != nil {
		return nil, err
	}
	if !in.Level.Valid() {
		return nil, &auth.ValidationError{Field: "level", Message: "level must be beginner, intermediate or advanced"}
	}
	if in.WeeklyGoalHours < MinWeeklyGoalHours || in.WeeklyGoalHours > MaxWeeklyGoalHours {
		return nil, &auth.ValidationError{
			Field:   "weekly_goal_hours",
			Message: fmt.Sprintf("weekly_goal_hours must be between %d and %d", MinWeeklyGoalHours, MaxWeeklyGoalHours),
		}
	}
	goal := strings.TrimSpace(in.Goal)
	if utf8.RuneCountInString(goal) > MaxGoalLength {
		return nil, &auth.ValidationError{Field: "goal", Message: fmt.Sprintf("goal must be at most %d characters", MaxGoalLength)}
	}

	now := s.now().UTC()
	profile := &domain.LearnerProfile{
		UserID:          userID,
		Interests:       interests,
		Level:           in.Level,
		WeeklyGoalHours: in.WeeklyGoalHours,
		Goal:            auth.SanitizeText(goal),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.profiles.CompleteOnboarding(ctx, profile); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, userID, domain.NotificationInfo,
			"Welcome to BlissLearn", "Your profile is ready. Browse the catalog to find your first course."); err != nil {
			s.logger.Warn("failed to create welcome notification", "error", err, "user_id", userID)
		}
	}
	if err := s.events.Publish(ctx, events.SubjectOnboardingCompleted, map[string]any{
		"user_id":   userID,
		"level":     profile.Level,
		"interests": profile.Interests,
	}); err != nil {
		s.logger.Warn("failed to publish onboarding event", "error", err, "user_id", userID)
	}

	s.logger.Info("onboarding completed", "user_id", userID)
	return profile, nil
}

// Get returns the user's learner profile.
func (s *OnboardingService) Get(ctx context.Context, userID uuid.UUID) (*domain.LearnerProfile, error) {
	return s.profiles.Get(ctx, userID)
}

// normalizeInterests trims, sanitizes and dedupes interests, ignoring case.
func normalizeInterests(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		v := strings.Join(strings.Fields(raw), " ")
		if v == "" {
			return nil, &auth.ValidationError{Field: "interests", Message: "interests must not be empty"}
		}
		if utf8.RuneCountInString(v) > MaxInterestLength {
			return nil, &auth.ValidationError{
				Field:   "interests",
				Message: fmt.Sprintf("each interest must be at most %d characters", MaxInterestLength),
			}
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, auth.SanitizeName(v))
	}
	if len(out) == 0 || len(out) > MaxInterests {
		return nil, &auth.ValidationError{
			Field:   "interests",
			Message: fmt.Sprintf("choose between 1 and %d interests", MaxInterests),
		}
	}
	return out, nil
}
