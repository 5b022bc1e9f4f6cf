package models

import (
	"time"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ContributorApplication is a user's request to be promoted to contributor.
// Only an approval by an admin-or-above actor changes the applicant's role.
type ContributorApplication struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	UserID          uint              `gorm:"not null;index" json:"user_id"`
	User            User              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ContributorType string            `gorm:"size:20;not null" json:"contributor_type"`
	Statement       string            `gorm:"type:text" json:"statement"`
	TrustScore      int               `gorm:"not null" json:"trust_score"` // score at submission time
	Status          ApplicationStatus `gorm:"size:10;not null;default:'pending';index" json:"status"`
	ReviewerID      *uint             `json:"reviewer_id,omitempty"`
	ReviewNote      string            `gorm:"size:500" json:"review_note,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
