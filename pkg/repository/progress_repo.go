package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// ProgressRepository tracks course enrollments.
type ProgressRepository struct {
	pool *store.Pool
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(pool *store.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// CreateIfAbsent inserts p unless the user is already enrolled, then returns
// the stored row.
func (r *ProgressRepository) CreateIfAbsent(ctx context.Context, p *domain.CourseProgress) (*domain.CourseProgress, error) {
	row := progressFromDomain(p)
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, p.UserID, p.CourseID)
}

// Get returns the user's progress in a course.
func (r *ProgressRepository) Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	var row progressRow
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Where("user_id = ? AND course_id = ?", userID, courseID).Take(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

// Save adds addMinutes to the stored time spent and writes the module
// counts, status and completion time of p. A row that is already completed
// keeps its counts, so of two concurrent completions only one reports
// completed. The stored row is returned.
func (r *ProgressRepository) Save(ctx context.Context, p *domain.CourseProgress, addMinutes int) (*domain.CourseProgress, bool, error) {
	var (
		row       progressRow
		completed bool
	)
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&progressRow{}).
				Where("id = ? AND user_id = ?", p.ID, p.UserID).
				Updates(map[string]any{
					"minutes_spent":    gorm.Expr("minutes_spent + ?", addMinutes),
					"last_accessed_at": p.LastAccessedAt,
				})
			if err := requireRow(res.RowsAffected, res.Error, domain.ErrProgressNotFound); err != nil {
				return err
			}

			res = tx.Model(&progressRow{}).
				Where("id = ? AND status <> ?", p.ID, string(domain.StatusCompleted)).
				Updates(map[string]any{
					"status":            string(p.Status),
					"completed_modules": p.CompletedModules,
					"percent":           p.Percent,
					"completed_at":      p.CompletedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			completed = p.Status == domain.StatusCompleted && res.RowsAffected == 1

			return tx.Where("id = ?", p.ID).Take(&row).Error
		})
	})
	if err != nil {
		return nil, false, err
	}
	saved := row.toDomain()
	return &saved, completed, nil
}

// ListByUser returns the user's enrollments, most recently accessed first.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CourseProgress, error) {
	var rows []progressRow
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).
			Order("last_accessed_at DESC").Order("id").
			Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.CourseProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Stats aggregates the user's progress.
func (r *ProgressRepository) Stats(ctx context.Context, userID uuid.UUID) (*domain.ProgressStats, error) {
	var out struct {
		InProgress     int64
		Completed      int64
		TotalMinutes   int64
		AveragePercent float64
	}
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Model(&progressRow{}).
			Select(`COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS in_progress,
				COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed,
				COALESCE(SUM(minutes_spent), 0) AS total_minutes,
				COALESCE(AVG(percent), 0) AS average_percent`,
				string(domain.StatusInProgress), string(domain.StatusCompleted)).
			Where("user_id = ?", userID).
			Scan(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &domain.ProgressStats{
		InProgress:     out.InProgress,
		Completed:      out.Completed,
		TotalMinutes:   out.TotalMinutes,
		AveragePercent: out.AveragePercent,
	}, nil
}
