package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/AlfredLandry1/blisslearn-sub002/internal/store"
	"github.com/AlfredLandry1/blisslearn-sub002/pkg/domain"
)

// NotificationsRepository handles in-app notifications. Every user-facing
// method filters on user_id so one user can never see or change another
// user's rows.
type NotificationsRepository struct {
	pool *store.Pool
}

// NewNotificationsRepository creates a new notifications repository.
func NewNotificationsRepository(pool *store.Pool) *NotificationsRepository {
	return &NotificationsRepository{pool: pool}
}

// NotificationQuery selects a page of a user's notifications.
type NotificationQuery struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Create stores a notification.
func (r *NotificationsRepository) Create(ctx context.Context, n *domain.Notification) error {
	row := notificationRow{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	return withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Create(&row).Error
	})
}

// List returns a page of notifications, newest first, together with the
// number of rows matching the query and the user's unread count.
func (r *NotificationsRepository) List(ctx context.Context, userID uuid.UUID, q NotificationQuery) ([]domain.Notification, int64, int64, error) {
	var (
		rows          []notificationRow
		total, unread int64
	)
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		scope := func() *gorm.DB {
			s := db.Model(&notificationRow{}).Where("user_id = ?", userID)
			if q.UnreadOnly {
				s = s.Where("read = ?", false)
			}
			return s
		}
		if err := scope().Count(&total).Error; err != nil {
			return err
		}
		if err := db.Model(&notificationRow{}).
			Where("user_id = ? AND read = ?", userID, false).
			Count(&unread).Error; err != nil {
			return err
		}
		return scope().Order("created_at DESC").Order("id").
			Limit(q.Limit).Offset(q.Offset).
			Find(&rows).Error
	})
	if err != nil {
		return nil, 0, 0, err
	}

	items := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, unread, nil
}

// SetRead marks a single notification read or unread.
func (r *NotificationsRepository) SetRead(ctx context.Context, userID, id uuid.UUID, read bool) error {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Model(&notificationRow{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("read", read)
		n = res.RowsAffected
		return res.Error
	})
	return requireRow(n, err, domain.ErrNotificationNotFound)
}

// MarkAllRead marks every unread notification of the user as read.
func (r *NotificationsRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Model(&notificationRow{}).
			Where("user_id = ? AND read = ?", userID, false).
			Update("read", true)
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

// Delete removes one notification.
func (r *NotificationsRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Where("id = ? AND user_id = ?", id, userID).Delete(&notificationRow{})
		n = res.RowsAffected
		return res.Error
	})
	return requireRow(n, err, domain.ErrNotificationNotFound)
}

// DeleteAll removes every notification of the user.
func (r *NotificationsRepository) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Where("user_id = ?", userID).Delete(&notificationRow{})
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}

// UnreadCount counts the user's unread notifications.
func (r *NotificationsRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		return db.Model(&notificationRow{}).
			Where("user_id = ? AND read = ?", userID, false).
			Count(&n).Error
	})
	return n, err
}

// DeleteCreatedBefore removes every notification created strictly before
// cutoff, for all users. A row created exactly at cutoff is kept.
func (r *NotificationsRepository) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := withORM(ctx, r.pool, func(db *gorm.DB) error {
		res := db.Where("created_at < ?", cutoff).Delete(&notificationRow{})
		n = res.RowsAffected
		return res.Error
	})
	return n, err
}
