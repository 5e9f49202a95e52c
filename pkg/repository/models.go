package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Row types for the tables accessed through gorm. They stay private to the
// package; callers only see domain types.

type notificationRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Kind      string    `gorm:"not null"`
	Title     string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
	Read      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (notificationRow) TableName() string { return "notifications" }

func (r notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      domain.NotificationKind(r.Kind),
		Title:     r.Title,
		Message:   r.Message,
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
	}
}

type courseRow struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Slug            string    `gorm:"uniqueIndex;not null"`
	Title           string    `gorm:"not null"`
	Description     string
	Category        string `gorm:"not null"`
	Level           string `gorm:"not null"`
	Language        string
	Provider        string
	DurationMinutes int
	TotalModules    int
	Rating          float64
	Published       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (courseRow) TableName() string { return "courses" }

func (r courseRow) toDomain() domain.Course {
	return domain.Course{
		ID:              r.ID,
		Slug:            r.Slug,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Level:           domain.CourseLevel(r.Level),
		Language:        r.Language,
		Provider:        r.Provider,
		DurationMinutes: r.DurationMinutes,
		TotalModules:    r.TotalModules,
		Rating:          r.Rating,
		Published:       r.Published,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type progressRow struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_progress_user_course;not null"`
	CourseID         uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_progress_user_course;not null"`
	Status           string    `gorm:"not null"`
	CompletedModules int
	Percent          int
	MinutesSpent     int
	StartedAt        time.Time
	LastAccessedAt   time.Time
	CompletedAt      *time.Time
}

func (progressRow) TableName() string { return "course_progress" }

func (r progressRow) toDomain() domain.CourseProgress {
	return domain.CourseProgress{
		ID:               r.ID,
		UserID:           r.UserID,
		CourseID:         r.CourseID,
		Status:           domain.ProgressStatus(r.Status),
		CompletedModules: r.CompletedModules,
		Percent:          r.Percent,
		MinutesSpent:     r.MinutesSpent,
		StartedAt:        r.StartedAt,
		LastAccessedAt:   r.LastAccessedAt,
		CompletedAt:      r.CompletedAt,
	}
}

func progressFromDomain(p *domain.CourseProgress) progressRow {
	return progressRow{
		ID:               p.ID,
		UserID:           p.UserID,
		CourseID:         p.CourseID,
		Status:           string(p.Status),
		CompletedModules: p.CompletedModules,
		Percent:          p.Percent,
		MinutesSpent:     p.MinutesSpent,
		StartedAt:        p.StartedAt,
		LastAccessedAt:   p.LastAccessedAt,
		CompletedAt:      p.CompletedAt,
	}
}

type certificationRow struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cert_user_course;not null"`
	CourseID          uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cert_user_course;not null"`
	CertificateNumber string    `gorm:"uniqueIndex;not null"`
	ArtifactKey       *string
	IssuedAt          time.Time
}

func (certificationRow) TableName() string { return "certifications" }

func (r certificationRow) toDomain() domain.Certification {
	return domain.Certification{
		ID:                r.ID,
		UserID:            r.UserID,
		CourseID:          r.CourseID,
		CertificateNumber: r.CertificateNumber,
		ArtifactKey:       r.ArtifactKey,
		IssuedAt:          r.IssuedAt,
	}
}

type learnerProfileRow struct {
	UserID          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Interests       datatypes.JSONSlice[string] `gorm:"not null"`
	Level           string                      `gorm:"not null"`
	WeeklyGoalHours int                         `gorm:"not null"`
	Goal            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (learnerProfileRow) TableName() string { return "learner_profiles" }

func (r learnerProfileRow) toDomain() domain.LearnerProfile {
	return domain.LearnerProfile{
		UserID:          r.UserID,
		Interests:       []string(r.Interests),
		Level:           domain.CourseLevel(r.Level),
		WeeklyGoalHours: r.WeeklyGoalHours,
		Goal:            r.Goal,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
