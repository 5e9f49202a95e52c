// Package notifications manages in-app notifications and their retention.
package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/events"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/repository"
)

// Paging limits for List.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrEmptyTitle is returned by Create for a blank title.
var ErrEmptyTitle = errors.New("notification title is required")

// Store is the persistence used by Service. *repository.NotificationsRepository
// implements it.
type Store interface {
	Create(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context, userID uuid.UUID, q repository.NotificationQuery) ([]domain.Notification, int64, int64, error)
	SetRead(ctx context.Context, userID, id uuid.UUID, read bool) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListOptions selects a page of notifications.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Service creates, lists and updates notifications.
type Service struct {
	store  Store
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a notification service. pub may be nil.
func NewService(store Store, pub events.Publisher, logger *slog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, events: pub, logger: logger, now: time.Now}
}

// Create stores a notification for userID.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) (*domain.Notification, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidNotificationKind
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   strings.TrimSpace(message),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, events.SubjectNotificationCreated, map[string]any{
		"notification_id": n.ID,
		"user_id":         userID,
		"type":            kind,
	}); err != nil {
		s.logger.Warn("failed to publish notification event", "error", err, "user_id", userID)
	}
	return n, nil
}

// Notify is Create without the result, for callers that only fire
// notifications.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) error {
	_, err := s.Create(ctx, userID, kind, title, message)
	return err
}

// List returns a page of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, opts ListOptions) (*domain.NotificationPage, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	items, total, unread, err := s.store.List(ctx, userID, repository.NotificationQuery{
		UnreadOnly: opts.UnreadOnly,
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return &domain.NotificationPage{
		Items:  items,
		Total:  total,
		Unread: unread,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}, nil
}

// SetRead marks one notification read or unread.
func (s *Service) SetRead(ctx context.Context, userID, id uuid.UUID, read bool) error {
	return s.store.SetRead(ctx, userID, id, read)
}

// MarkAllRead marks every notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.Delete(ctx, userID, id)
}

// DeleteAll removes every notification of the user.
func (s *Service) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.DeleteAll(ctx, userID)
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.UnreadCount(ctx, userID)
}
