package models

import (
	"time"

	"gorm.io/gorm"
)

// RefreshSession binds an issued refresh token to the user and device fingerprint it was minted for.
// A session is single use: a successful refresh deletes it and creates a successor.
type RefreshSession struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" bson:"_id"`
	UserID       string    `gorm:"size:36;not null;index:idx_refresh_sessions_user_fingerprint,priority:1" json:"user_id" bson:"user_id"`
	RefreshToken string    `gorm:"uniqueIndex;size:1024;not null" json:"-" bson:"refresh_token"`
	Fingerprint  string    `gorm:"size:256;not null;index:idx_refresh_sessions_user_fingerprint,priority:2" json:"fingerprint" bson:"fingerprint"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expires_at" bson:"expires_at"`
}

func (s *RefreshSession) BeforeCreate(*gorm.DB) error {
	return assignID(&s.ID)
}

// IsExpired reports whether the session can no longer be exchanged at now.
func (s *RefreshSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
