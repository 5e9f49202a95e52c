package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/events"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/auth"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// ProgressStore persists course progress. *repository.ProgressRepository
// implements it.
//
// Save adds addMinutes to the stored time spent and writes the module counts
// and status of p unless the stored row is already completed. It returns the
// stored row and whether this call moved it to completed.
type ProgressStore interface {
	CreateIfAbsent(ctx context.Context, p *domain.CourseProgress) (*domain.CourseProgress, error)
	Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
	Save(ctx context.Context, p *domain.CourseProgress, addMinutes int) (*domain.CourseProgress, bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CourseProgress, error)
	Stats(ctx context.Context, userID uuid.UUID) (*domain.ProgressStats, error)
}

// Issuer issues a certification for a completed course.
type Issuer interface {
	Issue(ctx context.Context, userID, courseID uuid.UUID) (*domain.Certification, error)
}

// ProgressDeps groups the collaborators of ProgressService. Issuer,
// Notifier and Events are optional.
type ProgressDeps struct {
	Progress ProgressStore
	Courses  CourseLookup
	Issuer   Issuer
	Notifier Notifier
	Events   events.Publisher
	Logger   *slog.Logger
}

// ProgressService tracks learners through courses.
type ProgressService struct {
	progress ProgressStore
	courses  CourseLookup
	issuer   Issuer
	notifier Notifier
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewProgressService creates a progress service.
func NewProgressService(deps ProgressDeps) *ProgressService {
	pub := deps.Events
	if pub == nil {
		pub = events.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{
		progress: deps.Progress,
		courses:  deps.Courses,
		issuer:   deps.Issuer,
		notifier: deps.Notifier,
		events:   pub,
		logger:   logger,
		now:      time.Now,
	}
}

// ProgressUpdated is the payload of progress.updated.
type ProgressUpdated struct {
	UserID           uuid.UUID             `json:"user_id"`
	CourseID         uuid.UUID             `json:"course_id"`
	Status           domain.ProgressStatus `json:"status"`
	Percent          int                   `json:"percent"`
	CompletedModules int                   `json:"completed_modules"`
}

// Start enrolls the user in a course. Starting an already started course
// returns the existing progress unchanged.
func (s *ProgressService) Start(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.enroll(ctx, userID, courseID)
}

func (s *ProgressService) enroll(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	now := s.now().UTC()
	p, err := s.progress.CreateIfAbsent(ctx, &domain.CourseProgress{
		ID:             uuid.New(),
		UserID:         userID,
		CourseID:       courseID,
		Status:         domain.StatusInProgress,
		StartedAt:      now,
		LastAccessedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("start course: %w", err)
	}
	return p, nil
}

// Update records completed modules and adds minutesSpent to the time spent
// in the course. Reaching the last module completes the course, which
// issues its certification; later updates of a completed course retry a
// certificate that failed to issue.
func (s *ProgressService) Update(ctx context.Context, userID, courseID uuid.UUID, completedModules, minutesSpent int) (*domain.CourseProgress, error) {
	if minutesSpent < 0 {
		return nil, &auth.ValidationError{Field: "minutes_spent", Message: "minutes_spent must not be negative"}
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	p, err := s.progress.Get(ctx, userID, courseID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		p, err = s.enroll(ctx, userID, courseID)
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p.LastAccessedAt = now
	if p.Status != domain.StatusCompleted {
		p.CompletedModules = clampModules(completedModules, course.TotalModules)
		p.Percent = Percent(p.CompletedModules, course.TotalModules)
		p.Status = domain.StatusInProgress
		p.CompletedAt = nil
		if course.TotalModules > 0 && p.CompletedModules == course.TotalModules {
			p.Status = domain.StatusCompleted
			p.CompletedAt = &now
		}
	}

	saved, completed, err := s.progress.Save(ctx, p, minutesSpent)
	if err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	if err := s.events.Publish(ctx, events.SubjectCourseProgressUpdated, ProgressUpdated{
		UserID:           userID,
		CourseID:         courseID,
		Status:           saved.Status,
		Percent:          saved.Percent,
		CompletedModules: saved.CompletedModules,
	}); err != nil {
		s.logger.Warn("failed to publish progress event", "error", err, "user_id", userID)
	}

	switch {
	case completed:
		s.complete(ctx, userID, course)
	case saved.Status == domain.StatusCompleted:
		s.ensureCertificate(ctx, userID, courseID)
	}
	return saved, nil
}

func (s *ProgressService) complete(ctx context.Context, userID uuid.UUID, course *domain.Course) {
	s.logger.Info("course completed", "user_id", userID, "course_id", course.ID)

	message := fmt.Sprintf("You completed %s.", course.Title)
	if s.issuer != nil {
		cert, err := s.issuer.Issue(ctx, userID, course.ID)
		if err != nil {
			s.logger.Error("failed to issue certification", "error", err, "user_id", userID, "course_id", course.ID)
		} else {
			message = fmt.Sprintf("You completed %s. Your certificate %s is ready.", course.Title, cert.CertificateNumber)
		}
	}

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, domain.NotificationSuccess, "Course completed", message); err != nil {
		s.logger.Warn("failed to create notification", "error", err, "user_id", userID)
	}
}

// ensureCertificate issues the certificate of a course completed earlier
// whose first issue failed. Issue returns an existing certificate as is.
func (s *ProgressService) ensureCertificate(ctx context.Context, userID, courseID uuid.UUID) {
	if s.issuer == nil {
		return
	}
	if _, err := s.issuer.Issue(ctx, userID, courseID); err != nil {
		s.logger.Error("failed to issue certification", "error", err, "user_id", userID, "course_id", courseID)
	}
}

// Get returns the user's progress in one course.
func (s *ProgressService) Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	return s.progress.Get(ctx, userID, courseID)
}

// List returns every course the user started, most recently accessed first.
func (s *ProgressService) List(ctx context.Context, userID uuid.UUID) ([]domain.CourseProgress, error) {
	items, err := s.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CourseProgress{}
	}
	return items, nil
}

// Stats aggregates the user's progress.
func (s *ProgressService) Stats(ctx context.Context, userID uuid.UUID) (*domain.ProgressStats, error) {
	return s.progress.Stats(ctx, userID)
}

// Percent is done out of total as a whole percentage, rounded half away
// from zero. A course without modules is at 0%.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func clampModules(done, total int) int {
	return max(0, min(done, total))
}
