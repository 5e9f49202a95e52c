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

// CertificationsRepository stores issued certifications.
type CertificationsRepository struct {
	pool *store.Pool
}

// NewCertificationsRepository creates a new certifications repository.
func NewCertificationsRepository(pool *store.Pool) *CertificationsRepository {
	return &CertificationsRepository{pool: pool}
}

// CreateIfAbsent inserts c unless the user already holds a certification for
// the course. It reports whether c was inserted and returns the stored row
// either way.
func (r *CertificationsRepository) CreateIfAbsent(ctx context.Context, c *domain.Certification) (*domain.Certification, bool, error) {
	row := certificationRow{
		ID:                c.ID,
		UserID:            c.UserID,
		CourseID:          c.CourseID,
		CertificateNumber: c.CertificateNumber,
		ArtifactKey:       c.ArtifactKey,
		IssuedAt:          c.IssuedAt,
	}
	var created bool
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).Create(&row)
		created = res.RowsAffected == 1
		return res.Error
	})
	if err != nil {
		return nil, false, err
	}
	stored, err := r.GetByCourse(ctx, c.UserID, c.CourseID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// GetByCourse returns the user's certification for a course.
func (r *CertificationsRepository) GetByCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Certification, error) {
	return r.getOne(ctx, "user_id = ? AND course_id = ?", userID, courseID)
}

// GetByID returns one of the user's certifications.
func (r *CertificationsRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Certification, error) {
	return r.getOne(ctx, "id = ? AND user_id = ?", id, userID)
}

func (r *CertificationsRepository) getOne(ctx context.Context, cond string, args ...any) (*domain.Certification, error) {
	var row certificationRow
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Where(cond, args...).Take(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCertificationNotFound
	}
	if err != nil {
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

// ListByUser returns the user's certifications, newest first.
func (r *CertificationsRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Certification, error) {
	var rows []certificationRow
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Where("user_id = ?", userID).Order("issued_at DESC").Order("id").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Certification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// SetArtifactKey records where the rendered certificate was stored.
func (r *CertificationsRepository) SetArtifactKey(ctx context.Context, id uuid.UUID, key string) error {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Model(&certificationRow{}).Where("id = ?", id).Update("artifact_key", key)
		n = res.RowsAffected
		return res.Error
	})
	return requireRow(n, err, domain.ErrCertificationNotFound)
}
