package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/database"
	"github.com/charlesng35/itemhub/internal/models"
	"github.com/charlesng35/itemhub/pkg/crypto"
	apperrors "github.com/charlesng35/itemhub/pkg/errors"
	"github.com/charlesng35/itemhub/pkg/logger"
)

// SessionRevoker ends every refresh session of a user.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
}

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Email       string
	Password    string
	FullName    string
	IsSuperuser bool
	IsActive    *bool
}

// UpdateUserInput enumerates mutable user attributes. Nil fields are left untouched.
type UpdateUserInput struct {
	Email       *string
	Password    *string
	FullName    *string
	IsActive    *bool
	IsSuperuser *bool
}

// UserService manages the CRUD lifecycle of users.
type UserService struct {
	db       *gorm.DB
	sessions SessionRevoker
}

// NewUserService constructs a UserService instance. sessions may be nil.
func NewUserService(db *gorm.DB, sessions SessionRevoker) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{
		db:       db,
		sessions: sessions,
	}, nil
}

// Create provisions a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		HashedPassword: hashed,
		FullName:       strings.TrimSpace(input.FullName),
		IsActive:       true,
		IsSuperuser:    input.IsSuperuser,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		// gorm skips zero values for columns with a default, so deactivation is a second write.
		if input.IsActive != nil && !*input.IsActive {
			if err := tx.Model(user).Update("is_active", false).Error; err != nil {
				return err
			}
			user.IsActive = false
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	logger.WithModule("users").Info("user created",
		zap.String("user_id", user.ID),
		zap.Bool("is_superuser", user.IsSuperuser),
	)
	return user, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// GetByEmail loads a user by email, case-insensitively.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "email = ?", normaliseEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user by email: %w", err)
	}
	return &user, nil
}

// List returns a page of users ordered by creation time together with the total count.
func (s *UserService) List(ctx context.Context, opts ListOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)
	opts = opts.Normalise()

	query := s.db.WithContext(ctx).Model(&models.User{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	err := query.
		Order("created_at ASC").
		Order("id ASC").
		Offset(opts.Offset).
		Limit(opts.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}
	return users, total, nil
}

// Update applies the supplied changes and returns the refreshed user.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Email != nil {
		email := normaliseEmail(*input.Email)
		if email == "" {
			return nil, apperrors.NewBadRequest("email cannot be empty")
		}
		updates["email"] = email
	}
	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, apperrors.NewBadRequest("password cannot be empty")
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		updates["hashed_password"] = hashed
	}
	if input.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*input.FullName)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.IsSuperuser != nil {
		updates["is_superuser"] = *input.IsSuperuser
	}

	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	return s.GetByID(ctx, user.ID)
}

// Delete removes a user together with their items and refresh sessions.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if s.sessions != nil {
		if _, err := s.sessions.RevokeUserSessions(ctx, user.ID); err != nil {
			return fmt.Errorf("user service: revoke sessions: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ?", user.ID).Delete(&models.Item{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshSession{}).Error; err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}

	logger.WithModule("users").Info("user deleted", zap.String("user_id", user.ID))
	return nil
}
