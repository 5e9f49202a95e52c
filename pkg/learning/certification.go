package learning

import (
	"bytes"
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/events"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// DownloadURLTTL is how long a certificate download link stays valid.
const DownloadURLTTL = 15 * time.Minute

//go:embed templates/certificate.html
var certificateFS embed.FS

var certificateTemplate = template.Must(template.ParseFS(certificateFS, "templates/certificate.html"))

// CertificationStore persists certifications. *repository.CertificationsRepository
// implements it.
type CertificationStore interface {
	CreateIfAbsent(ctx context.Context, c *domain.Certification) (*domain.Certification, bool, error)
	GetByCourse(ctx context.Context, userID, courseID uuid.UUID) (*domain.Certification, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Certification, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Certification, error)
	SetArtifactKey(ctx context.Context, id uuid.UUID, key string) error
}

// ProgressReader reads a learner's progress in one course.
type ProgressReader interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
}

// ArtifactStore keeps rendered certificates. *storage.S3 implements it.
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// CertificationDeps groups the collaborators of CertificationService.
// Artifacts and Events are optional.
type CertificationDeps struct {
	Certifications CertificationStore
	Progress       ProgressReader
	Courses        CourseLookup
	Users          UserLookup
	Artifacts      ArtifactStore
	Events         events.Publisher
	Logger         *slog.Logger
}

// CertificationService issues and serves course completion certificates.
type CertificationService struct {
	certs     CertificationStore
	progress  ProgressReader
	courses   CourseLookup
	users     UserLookup
	artifacts ArtifactStore
	events    events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	random    io.Reader
}

// NewCertificationService creates a certification service.
func NewCertificationService(deps CertificationDeps) *CertificationService {
	pub := deps.Events
	if pub == nil {
		pub = events.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificationService{
		certs:     deps.Certifications,
		progress:  deps.Progress,
		courses:   deps.Courses,
		users:     deps.Users,
		artifacts: deps.Artifacts,
		events:    pub,
		logger:    logger,
		now:       time.Now,
		random:    rand.Reader,
	}
}

// CertificateIssued is the payload of certifications.issued.
type CertificateIssued struct {
	CertificationID   uuid.UUID `json:"certification_id"`
	UserID            uuid.UUID `json:"user_id"`
	CourseID          uuid.UUID `json:"course_id"`
	CertificateNumber string    `json:"certificate_number"`
	IssuedAt          time.Time `json:"issued_at"`
}

// Issue creates the certification for a completed course. Issuing twice
// returns the existing certification.
func (s *CertificationService) Issue(ctx context.Context, userID, courseID uuid.UUID) (*domain.Certification, error) {
	progress, err := s.progress.Get(ctx, userID, courseID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return nil, domain.ErrCourseNotCompleted
	}
	if err != nil {
		return nil, err
	}
	if progress.Status != domain.StatusCompleted {
		return nil, domain.ErrCourseNotCompleted
	}

	existing, err := s.certs.GetByCourse(ctx, userID, courseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrCertificationNotFound) {
		return nil, err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	number, err := s.certificateNumber(now)
	if err != nil {
		return nil, err
	}
	cert, created, err := s.certs.CreateIfAbsent(ctx, &domain.Certification{
		ID:                uuid.New(),
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: number,
		IssuedAt:          now,
	})
	if err != nil {
		return nil, fmt.Errorf("create certification: %w", err)
	}
	if !created {
		return cert, nil
	}

	if s.artifacts != nil {
		if err := s.storeArtifact(ctx, cert, course); err != nil {
			s.logger.Error("failed to store certificate", "error", err, "certification_id", cert.ID)
		}
	}

	if err := s.events.Publish(ctx, events.SubjectCertificationIssued, CertificateIssued{
		CertificationID:   cert.ID,
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: cert.CertificateNumber,
		IssuedAt:          cert.IssuedAt,
	}); err != nil {
		s.logger.Warn("failed to publish certification event", "error", err, "certification_id", cert.ID)
	}

	s.logger.Info("certification issued", "user_id", userID, "course_id", courseID, "number", cert.CertificateNumber)
	return cert, nil
}

// List returns the user's certifications, newest first.
func (s *CertificationService) List(ctx context.Context, userID uuid.UUID) ([]domain.Certification, error) {
	certs, err := s.certs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if certs == nil {
		certs = []domain.Certification{}
	}
	return certs, nil
}

// Get returns one of the user's certifications.
func (s *CertificationService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Certification, error) {
	return s.certs.GetByID(ctx, userID, id)
}

// DownloadURL returns a short-lived link to the rendered certificate.
func (s *CertificationService) DownloadURL(ctx context.Context, userID, id uuid.UUID) (string, error) {
	cert, err := s.certs.GetByID(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if s.artifacts == nil || !cert.HasArtifact() {
		return "", domain.ErrArtifactUnavailable
	}
	return s.artifacts.PresignGet(ctx, *cert.ArtifactKey, DownloadURLTTL)
}

// ArtifactKey is the object key of a rendered certificate.
func ArtifactKey(userID, certID uuid.UUID) string {
	return fmt.Sprintf("certificates/%s/%s.html", userID, certID)
}

func (s *CertificationService) storeArtifact(ctx context.Context, cert *domain.Certification, course *domain.Course) error {
	name := "BlissLearn learner"
	if s.users != nil {
		user, err := s.users.GetByID(ctx, cert.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		name = user.DisplayName()
	}

	var buf bytes.Buffer
	if err := RenderCertificate(&buf, cert, course, name); err != nil {
		return err
	}

	key := ArtifactKey(cert.UserID, cert.ID)
	if err := s.artifacts.Put(ctx, key, "text/html; charset=utf-8", buf.Bytes()); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := s.certs.SetArtifactKey(ctx, cert.ID, key); err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	cert.ArtifactKey = &key
	return nil
}

// RenderCertificate writes the HTML certificate for cert.
func RenderCertificate(w io.Writer, cert *domain.Certification, course *domain.Course, name string) error {
	data := struct {
		Name     string
		Course   string
		Provider string
		Number   string
		IssuedAt string
	}{
		Name:     name,
		Course:   course.Title,
		Provider: course.Provider,
		Number:   cert.CertificateNumber,
		IssuedAt: cert.IssuedAt.Format("January 2, 2006"),
	}
	if err := certificateTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}
	return nil
}

func (s *CertificationService) certificateNumber(at time.Time) (string, error) {
	b := make([]byte, 4)
	if _, err := io.ReadFull(s.random, b); err != nil {
		return "", fmt.Errorf("generate certificate number: %w", err)
	}
	return "BL-" + at.Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b)), nil
}
