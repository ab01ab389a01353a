package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/itemhub/internal/models"
)

// JWTSecretSetting holds the signing secret generated on first boot.
const JWTSecretSetting = "auth.jwt.secret"

var errSettingsDBMissing = errors.New("system settings: db is nil")

// GetSystemSetting returns the stored value for name, or "" when nothing is stored.
func GetSystemSetting(ctx context.Context, db *gorm.DB, name string) (string, error) {
	if db == nil {
		return "", errSettingsDBMissing
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Where("name = ?", name).Take(&setting).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("system settings: get %q: %w", name, err)
	}
	return setting.Value, nil
}

// UpsertSystemSetting stores value under name, replacing any previous value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, name, value string) error {
	if db == nil {
		return errSettingsDBMissing
	}
	if name = strings.TrimSpace(name); name == "" {
		return errors.New("system settings: name is required")
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&models.SystemSetting{Name: name, Value: value}).Error
	if err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", name, err)
	}
	return nil
}

// ResolveGeneratedSecret stores candidate under name unless a value is already present and
// returns the stored value. Instances booting at the same time settle on the first insert.
func ResolveGeneratedSecret(ctx context.Context, db *gorm.DB, name, candidate string) (string, error) {
	if db == nil {
		return "", errSettingsDBMissing
	}
	if candidate = strings.TrimSpace(candidate); candidate == "" {
		return "", fmt.Errorf("system settings: %s candidate is empty", name)
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SystemSetting{Name: name, Value: candidate}).Error
	if err != nil {
		return "", fmt.Errorf("system settings: insert %q: %w", name, err)
	}

	stored, err := GetSystemSetting(ctx, db, name)
	if err != nil {
		return "", err
	}
	if stored = strings.TrimSpace(stored); stored != "" {
		return stored, nil
	}

	// a blank row left by hand is replaced
	if err := UpsertSystemSetting(ctx, db, name, candidate); err != nil {
		return "", err
	}
	return candidate, nil
}
