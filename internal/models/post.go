package models

import (
	"time"
)

type Post struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	TopicID       *uint     `gorm:"index" json:"topic_id"`
	Topic         *Topic    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"topic,omitempty"`
	Title         string    `gorm:"not null" json:"title"`
	Content       string    `gorm:"type:text" json:"content"`
	Upvotes       int       `gorm:"default:0;not null;check:chk_posts_upvotes,upvotes >= 0" json:"upvotes"`
	Downvotes     int       `gorm:"default:0;not null;check:chk_posts_downvotes,downvotes >= 0" json:"downvotes"`
	CommentCount  int       `gorm:"default:0;not null" json:"comment_count"` // live (non-deleted) comments
	IsAIGenerated bool      `gorm:"default:false" json:"is_ai_generated"`
	Tags          []Tag     `gorm:"many2many:post_tags;" json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
