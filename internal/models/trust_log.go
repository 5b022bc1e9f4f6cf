package models

import (
	"time"
)

// TrustLog records every change of a user's trust score.
type TrustLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Delta     int       `gorm:"not null" json:"delta"` // 正数为增加，负数为扣除
	Score     int       `gorm:"not null" json:"score"` // score after the change
	Reason    string    `gorm:"size:100;not null" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
