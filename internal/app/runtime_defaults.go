package app

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/database"
	"github.com/charlesng35/itemhub/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults ensures critical secrets are populated even when no configuration file is supplied.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated[database.JWTSecretSetting] = true
	}

	return generated, nil
}

// PersistGeneratedSecrets stores freshly generated secrets in system settings, or replaces them
// with the value stored by an earlier boot so issued tokens survive restarts.
func PersistGeneratedSecrets(ctx context.Context, db *gorm.DB, cfg *Config, generated map[string]bool) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !generated[database.JWTSecretSetting] {
		return nil
	}

	secret, err := database.ResolveGeneratedSecret(ctx, db, database.JWTSecretSetting, cfg.Auth.JWT.Secret)
	if err != nil {
		return fmt.Errorf("persist jwt secret: %w", err)
	}
	cfg.Auth.JWT.Secret = secret
	return nil
}
