package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// ProfilesRepository stores onboarding answers.
type ProfilesRepository struct {
	pool *store.Pool
}

// NewProfilesRepository creates a new learner profiles repository.
func NewProfilesRepository(pool *store.Pool) *ProfilesRepository {
	return &ProfilesRepository{pool: pool}
}

// CompleteOnboarding upserts the profile and flags the user as onboarded in
// one transaction.
func (r *ProfilesRepository) CompleteOnboarding(ctx context.Context, p *domain.LearnerProfile) error {
	row := learnerProfileRow{
		UserID:          p.UserID,
		Interests:       datatypes.JSONSlice[string](p.Interests),
		Level:           string(p.Level),
		WeeklyGoalHours: p.WeeklyGoalHours,
		Goal:            p.Goal,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	return withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			res := tx.Exec(`UPDATE users SET onboarding_completed = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
				true, p.UpdatedAt, p.UserID)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrUserNotFound
			}
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"interests", "level", "weekly_goal_hours", "goal", "updated_at"}),
			}).Create(&row).Error
		})
	})
}

// Get returns the user's profile.
func (r *ProfilesRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.LearnerProfile, error) {
	var row learnerProfileRow
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).Take(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

