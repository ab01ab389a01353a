package models

import (
	"time"
)

// User is an account that can log in and own items.
type User struct {
	BaseModel

	Email          string `gorm:"uniqueIndex;size:320;not null" json:"email"`
	HashedPassword string `gorm:"not null" json:"-"`
	FullName       string `json:"full_name"`

	IsActive    bool `gorm:"default:true" json:"is_active"`
	IsSuperuser bool `gorm:"default:false" json:"is_superuser"`

	Items    []Item           `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Sessions []RefreshSession `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`
}

// IsLocked reports whether the account is inside a lockout window at now.
func (u *User) IsLocked(now time.Time) bool {
	return u != nil && u.LockedUntil != nil && u.LockedUntil.After(now)
}
