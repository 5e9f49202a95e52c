package courses

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/httputil"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// Catalog is the course catalog. *learning.CatalogService implements it.
type Catalog interface {
	Search(ctx context.Context, f domain.CourseFilter) (*domain.CoursePage, error)
	Get(ctx context.Context, slug string) (*domain.Course, error)
	Categories(ctx context.Context) ([]domain.CategoryCount, error)
}

// Handler serves the public catalog.
type Handler struct {
	logger  *slog.Logger
	catalog Catalog
}

func NewHandler(logger *slog.Logger, catalog Catalog) *Handler {
	return &Handler{logger: logger, catalog: catalog}
}

// CategoriesResponse wraps the category list.
type CategoriesResponse struct {
	Categories []domain.CategoryCount `json:"categories"`
}

// List searches published courses.
// GET /v1/courses
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	page, err := h.catalog.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, page)
}

// Get returns one course.
// GET /v1/courses/{slug}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.catalog.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, course)
}

// Categories lists categories with their published course counts.
// GET /v1/courses/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, h.logger, err)
		return
	}
	if categories == nil {
		categories = []domain.CategoryCount{}
	}
	httputil.JSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

func parseFilter(w http.ResponseWriter, r *http.Request) (domain.CourseFilter, bool) {
	q := r.URL.Query()
	f := domain.CourseFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Level:    domain.CourseLevel(q.Get("level")),
		Language: q.Get("language"),
		Provider: q.Get("provider"),
		Sort:     domain.CourseSort(q.Get("sort")),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"min_duration", &f.MinDuration},
		{"max_duration", &f.MaxDuration},
		{"page", &f.Page},
		{"page_size", &f.PageSize},
	}
	for _, p := range ints {
		n, ok := httputil.QueryInt(w, r, p.name, 0)
		if !ok {
			return f, false
		}
		*p.dst = n
	}
	return f, true
}

// RegisterRoutes registers the public catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/v1/courses", h.List)
	r.Get("/v1/courses/categories", h.Categories)
	r.Get("/v1/courses/{slug}", h.Get)
}
