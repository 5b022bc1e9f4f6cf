package models

import (
	"time"
)

// Topic groups posts. Posting into an ExpertOnly topic needs publish:expert_content.
type Topic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"size:80;not null;uniqueIndex" json:"slug"`
	Description string    `json:"description"`
	ExpertOnly  bool      `gorm:"not null;default:false" json:"expert_only"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
