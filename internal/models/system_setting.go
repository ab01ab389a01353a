package models

import "time"

// SystemSetting is a named value owned by the server itself, such as a generated signing secret.
type SystemSetting struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}
