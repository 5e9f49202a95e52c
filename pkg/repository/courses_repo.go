package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// CoursesRepository reads the course catalog.
type CoursesRepository struct {
	pool *store.Pool
}

// NewCoursesRepository creates a new courses repository.
func NewCoursesRepository(pool *store.Pool) *CoursesRepository {
	return &CoursesRepository{pool: pool}
}

// Search returns published courses matching f, ordered by f.Sort, limited
// to one page. f.Page and f.PageSize must already be normalized.
func (r *CoursesRepository) Search(ctx context.Context, f domain.CourseFilter) ([]domain.Course, int64, error) {
	var (
		rows  []courseRow
		total int64
	)
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		if err := applyCourseFilter(db.Model(&courseRow{}), f).Count(&total).Error; err != nil {
			return err
		}
		q := applyCourseFilter(db.Model(&courseRow{}), f)
		for _, o := range courseOrder(f.Sort) {
			q = q.Order(o)
		}
		return q.Limit(f.PageSize).Offset((f.Page - 1) * f.PageSize).Find(&rows).Error
	})
	if err != nil {
		return nil, 0, err
	}

	items := make([]domain.Course, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, nil
}

func applyCourseFilter(q *gorm.DB, f domain.CourseFilter) *gorm.DB {
	q = q.Where("published = ?", true)
	if text := strings.TrimSpace(f.Query); text != "" {
		like := "%" + escapeLike(strings.ToLower(text)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, like, like)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Level != "" {
		q = q.Where("level = ?", string(f.Level))
	}
	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}
	if f.Provider != "" {
		q = q.Where("provider = ?", f.Provider)
	}
	if f.MinDuration > 0 {
		q = q.Where("duration_minutes >= ?", f.MinDuration)
	}
	if f.MaxDuration > 0 {
		q = q.Where("duration_minutes <= ?", f.MaxDuration)
	}
	return q
}

func courseOrder(sort domain.CourseSort) []string {
	switch sort {
	case domain.SortRating:
		return []string{"rating DESC", "title ASC"}
	case domain.SortTitle:
		return []string{"title ASC", "id ASC"}
	case domain.SortDuration:
		return []string{"duration_minutes ASC", "title ASC"}
	default:
		return []string{"created_at DESC", "id ASC"}
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// GetBySlug returns a published course.
func (r *CoursesRepository) GetBySlug(ctx context.Context, slug string) (*domain.Course, error) {
	return r.getOne(ctx, "slug = ? AND published = ?", slug, true)
}

// GetByID returns a published course.
func (r *CoursesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return r.getOne(ctx, "id = ? AND published = ?", id, true)
}

func (r *CoursesRepository) getOne(ctx context.Context, cond string, args ...any) (*domain.Course, error) {
	var row courseRow
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Where(cond, args...).Take(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	course := row.toDomain()
	return &course, nil
}

// Categories counts published courses per category.
func (r *CoursesRepository) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	var out []domain.CategoryCount
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Model(&courseRow{}).
			Select("category, COUNT(*) AS courses").
			Where("published = ?", true).
			Group("category").
			Order("category").
			Scan(&out).Error
	})
	return out, err
}
