package models

import (
	"time"
)

type NotificationType string

const (
	NotifyComment     NotificationType = "comment"
	NotifyReply       NotificationType = "reply"
	NotifyApplication NotificationType = "application"
	NotifyRoleChanged NotificationType = "role_changed"
)

// Notification is an in-app message to UserID. ActorID is nil for system messages.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notification_inbox,priority:1" json:"user_id"`
	User      User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	ActorID   *uint            `gorm:"index" json:"actor_id"`
	PostID    *uint            `gorm:"index" json:"post_id,omitempty"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Reason    string           `gorm:"type:text" json:"reason"`
	IsRead    bool             `gorm:"default:false;index:idx_notification_inbox,priority:2" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
