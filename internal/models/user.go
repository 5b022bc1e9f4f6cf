package models

import (
	"time"

	"agora/internal/rbac"
)

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"not null" json:"username"`
	Email           string    `gorm:"uniqueIndex;not null" json:"-"`
	Password        string    `gorm:"not null" json:"-"`                         // Hash
	Role            string    `gorm:"size:20;default:'user'" json:"role"`        // superadmin, admin, contributor, user
	ContributorType string    `gorm:"size:20" json:"contributor_type,omitempty"` // surgeon, patient, influencer, blogger
	Verified        bool      `gorm:"default:false" json:"verified"`
	TrustScore      int       `gorm:"default:0;not null" json:"trust_score"`
	Bio             string    `gorm:"size:200" json:"bio"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Deprecated: older rows carried only this flag. Read through Actor(), never written.
	IsAdmin *bool `gorm:"column:is_admin" json:"-"`
}

// Actor projects the persisted user onto the identity consumed by the rbac package.
func (u *User) Actor() *rbac.Actor {
	if u == nil {
		return nil
	}
	return &rbac.Actor{
		ID:              u.ID,
		Role:            u.Role,
		ContributorType: u.ContributorType,
		Verified:        u.Verified,
		TrustScore:      u.TrustScore,
		LegacyIsAdmin:   u.IsAdmin,
	}
}
