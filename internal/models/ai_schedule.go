package models

import (
	"time"
)

// AISchedule is the persisted configuration read by the external AI content job runner.
type AISchedule struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:80;not null;uniqueIndex" json:"name"`
	Cron        string    `gorm:"size:100;not null" json:"cron"`
	Prompt      string    `gorm:"type:text;not null" json:"prompt"`
	TopicID     *uint     `json:"topic_id"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	UpdatedByID uint      `json:"updated_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
