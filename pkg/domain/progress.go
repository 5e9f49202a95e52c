package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProgressStatus tracks where a learner is in a course.
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// CourseProgress is a learner's enrollment in one course.
type CourseProgress struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"-"`
	CourseID         uuid.UUID      `json:"course_id"`
	Status           ProgressStatus `json:"status"`
	CompletedModules int            `json:"completed_modules"`
	Percent          int            `json:"percent"`
	MinutesSpent     int            `json:"minutes_spent"`
	StartedAt        time.Time      `json:"started_at"`
	LastAccessedAt   time.Time      `json:"last_accessed_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
}

// ProgressStats aggregates a learner's progress across courses.
type ProgressStats struct {
	InProgress     int64   `json:"in_progress"`
	Completed      int64   `json:"completed"`
	TotalMinutes   int64   `json:"total_minutes"`
	AveragePercent float64 `json:"average_percent"`
}
