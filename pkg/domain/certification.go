package domain

import (
	"time"

	"github.com/google/uuid"
)

// Certification is issued once per user and completed course.
type Certification struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"-"`
	CourseID          uuid.UUID `json:"course_id"`
	CertificateNumber string    `json:"certificate_number"`
	ArtifactKey       *string   `json:"-"`
	IssuedAt          time.Time `json:"issued_at"`
}

// HasArtifact reports whether a rendered certificate was stored.
func (c *Certification) HasArtifact() bool {
	return c.ArtifactKey != nil && *c.ArtifactKey != ""
}
