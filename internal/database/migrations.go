package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/models"
	"github.com/charlesng35/itemhub/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.RefreshSession{},
		&models.RateCounter{},
		&models.SystemSetting{},
	)
}

// SeedOptions describes the bootstrap superuser.
type SeedOptions struct {
	SuperuserEmail    string
	SuperuserPassword string
}

// SeedSuperuser creates the first superuser when it does not exist yet.
// An empty email or password skips seeding.
func SeedSuperuser(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.SuperuserEmail))
	if email == "" || opts.SuperuserPassword == "" {
		return nil
	}

	var existing models.User
	err := db.WithContext(ctx).Take(&existing, "email = ?", email).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup superuser: %w", err)
	}

	hashed, err := crypto.HashPassword(opts.SuperuserPassword)
	if err != nil {
		return fmt.Errorf("hash superuser password: %w", err)
	}

	user := models.User{
		Email:          email,
		HashedPassword: hashed,
		FullName:       "Administrator",
		IsActive:       true,
		IsSuperuser:    true,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("create superuser: %w", err)
	}
	return nil
}
