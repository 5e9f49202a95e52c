package learning

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Catalog paging limits.
const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// CourseStore is the catalog persistence. *repository.CoursesRepository
// implements it.
type CourseStore interface {
	Search(ctx context.Context, f domain.CourseFilter) ([]domain.Course, int64, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Course, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	Categories(ctx context.Context) ([]domain.CategoryCount, error)
}

// Cache stores JSON values with a TTL. *cache.Cache implements it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// CatalogService searches the published catalog, optionally through a cache.
type CatalogService struct {
	courses CourseStore
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCatalogService creates a catalog service. cache may be nil.
func NewCatalogService(courses CourseStore, cache Cache, ttl time.Duration, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		cache = nil
	}
	return &CatalogService{courses: courses, cache: cache, ttl: ttl, logger: logger}
}

// NormalizeFilter validates f and fills in paging and sort defaults.
func NormalizeFilter(f domain.CourseFilter) (domain.CourseFilter, error) {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	f.Language = strings.ToLower(strings.TrimSpace(f.Language))
	f.Provider = strings.TrimSpace(f.Provider)

	if f.Level != "" && !f.Level.Valid() {
		return f, &auth.ValidationError{Field: "level", Message: "level must be beginner, intermediate or advanced"}
	}
	if f.MinDuration < 0 || f.MaxDuration < 0 {
		return f, &auth.ValidationError{Field: "duration", Message: "duration filters must not be negative"}
	}
	if f.MaxDuration > 0 && f.MinDuration > f.MaxDuration {
		return f, &auth.ValidationError{Field: "duration", Message: "min_duration must not exceed max_duration"}
	}

	switch f.Sort {
	case domain.SortNewest, domain.SortRating, domain.SortTitle, domain.SortDuration:
	case "":
		f.Sort = domain.SortNewest
	default:
		return f, &auth.ValidationError{Field: "sort", Message: "sort must be newest, rating, title or duration"}
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f, nil
}

// Search returns one page of published courses matching f.
func (s *CatalogService) Search(ctx context.Context, f domain.CourseFilter) (*domain.CoursePage, error) {
	f, err := NormalizeFilter(f)
	if err != nil {
		return nil, err
	}

	key := searchKey(f)
	var page domain.CoursePage
	if s.cached(ctx, key, &page) {
		return &page, nil
	}

	items, total, err := s.courses.Search(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Course{}
	}
	page = domain.CoursePage{
		Items:      items,
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: int((total + int64(f.PageSize) - 1) / int64(f.PageSize)),
	}
	s.store(ctx, key, page)
	return &page, nil
}

// Get returns a published course by slug.
func (s *CatalogService) Get(ctx context.Context, slug string) (*domain.Course, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, domain.ErrCourseNotFound
	}
	return s.courses.GetBySlug(ctx, slug)
}

// Categories lists categories with their published course count.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	const key = "catalog:categories"
	var cats []domain.CategoryCount
	if s.cached(ctx, key, &cats) {
		return cats, nil
	}
	cats, err := s.courses.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []domain.CategoryCount{}
	}
	s.store(ctx, key, cats)
	return cats, nil
}

func searchKey(f domain.CourseFilter) string {
	raw, _ := json.Marshal(f)
	sum := sha256.Sum256(raw)
	return "catalog:search:" + hex.EncodeToString(sum[:16])
}

func (s *CatalogService) cached(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Warn("catalog cache read failed", "error", err, "key", key)
		return false
	}
	return hit
}

func (s *CatalogService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn("catalog cache write failed", "error", err, "key", key)
	}
}
