package domain

import (
	"time"

	"github.com/google/uuid"
)

// CourseLevel is the difficulty of a course, also used for a learner's
// self-assessed level.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// Valid reports whether l is a known level.
func (l CourseLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Course is an entry of the catalog.
type Course struct {
	ID              uuid.UUID   `json:"id"`
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        string      `json:"category"`
	Level           CourseLevel `json:"level"`
	Language        string      `json:"language"`
	Provider        string      `json:"provider"`
	DurationMinutes int         `json:"duration_minutes"`
	TotalModules    int         `json:"total_modules"`
	Rating          float64     `json:"rating"`
	Published       bool        `json:"-"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// CourseSort orders catalog results.
type CourseSort string

const (
	SortNewest   CourseSort = "newest"
	SortRating   CourseSort = "rating"
	SortTitle    CourseSort = "title"
	SortDuration CourseSort = "duration"
)

// CourseFilter narrows a catalog search. Zero values mean "any".
type CourseFilter struct {
	Query       string      `json:"q,omitempty"`
	Category    string      `json:"category,omitempty"`
	Level       CourseLevel `json:"level,omitempty"`
	Language    string      `json:"language,omitempty"`
	Provider    string      `json:"provider,omitempty"`
	MinDuration int         `json:"min_duration,omitempty"`
	MaxDuration int         `json:"max_duration,omitempty"`
	Sort        CourseSort  `json:"sort,omitempty"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
}

// CoursePage is one page of catalog results.
type CoursePage struct {
	Items      []Course `json:"items"`
	Total      int64    `json:"total"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	TotalPages int      `json:"total_pages"`
}

// CategoryCount is the number of published courses in a category.
type CategoryCount struct {
	Category string `json:"category"`
	Courses  int64  `json:"courses"`
}
