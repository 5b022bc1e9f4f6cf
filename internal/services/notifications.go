package services

import (
	"context"

	"agora/internal/models"
	"agora/internal/rbac"

	"gorm.io/gorm"
)

func notify(tx *gorm.DB, n models.Notification) error {
	return tx.Create(&n).Error
}

type NotificationService struct {
	db    *gorm.DB
	guard *rbac.Guard
}

func NewNotificationService(conn *gorm.DB, guard *rbac.Guard) *NotificationService {
	return &NotificationService{db: conn, guard: guard}
}

// List returns the actor's notifications, newest first, and the unread count.
func (s *NotificationService) List(ctx context.Context, actor *rbac.Actor, limit int) ([]models.Notification, int64, error) {
	if err := s.guard.Authorize(actor, rbac.PermViewUserDashboard); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []models.Notification
	if err := s.db.WithContext(ctx).Where("user_id = ?", actor.ID).
		Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, 0, err
	}
	unread, err := s.UnreadCount(ctx, actor.ID)
	if err != nil {
		return nil, 0, err
	}
	return notifications, unread, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).Count(&count).Error
	return count, err
}

// MarkRead marks one of the actor's notifications as read. Other users' notifications
// are reported as missing.
func (s *NotificationService) MarkRead(ctx context.Context, actor *rbac.Actor, id uint) error {
	if err := s.guard.Authorize(actor, rbac.PermViewUserDashboard); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, actor.ID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor *rbac.Actor) error {
	if err := s.guard.Authorize(actor, rbac.PermViewUserDashboard); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Update("is_read", true).Error
}
