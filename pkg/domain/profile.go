package domain

import (
	"time"

	"github.com/google/uuid"
)

// LearnerProfile holds the answers given during onboarding.
type LearnerProfile struct {
	UserID          uuid.UUID   `json:"-"`
	Interests       []string    `json:"interests"`
	Level           CourseLevel `json:"level"`
	WeeklyGoalHours int         `json:"weekly_goal_hours"`
	Goal            string      `json:"goal,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
