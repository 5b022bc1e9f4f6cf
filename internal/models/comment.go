package models

import (
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	PostID    uint           `gorm:"not null;index" json:"post_id"`
	Post      Post           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID  *uint          `gorm:"index" json:"parent_id"` // Nullable for top-level comments
	Content   string         `gorm:"type:text;not null" json:"content"`
	Upvotes   int            `gorm:"default:0;not null;check:chk_comments_upvotes,upvotes >= 0" json:"upvotes"`
	Downvotes int            `gorm:"default:0;not null;check:chk_comments_downvotes,downvotes >= 0" json:"downvotes"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
