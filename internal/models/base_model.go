package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel holds the identifier and timestamps shared by users and items.
// Identifiers are UUIDv7 strings so new rows sort after old ones in the primary index.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	return assignID(&m.ID)
}

func assignID(id *string) error {
	if *id != "" {
		return nil
	}
	generated, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = generated.String()
	return nil
}
