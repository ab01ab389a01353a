package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/database"
	"github.com/charlesng35/itemhub/internal/models"
)

// GormSessionStore keeps refresh sessions in the relational database.
type GormSessionStore struct {
	db  *gorm.DB
	now func() time.Time
}

var _ SessionStore = (*GormSessionStore)(nil)

// NewGormSessionStore constructs a database backed SessionStore.
func NewGormSessionStore(db *gorm.DB, opts ...StoreOption) (*GormSessionStore, error) {
	if db == nil {
		return nil, errors.New("session store: db is required")
	}
	o := applyStoreOptions(opts)
	return &GormSessionStore{db: db, now: o.now}, nil
}

func (s *GormSessionStore) FindActive(ctx context.Context, userID, fingerprint string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND fingerprint = ? AND expires_at > ?", userID, fingerprint, s.now().UTC()).
		Order("created_at DESC").
		Take(&session).Error
	return foundOrNil(&session, err, "find active session")
}

func (s *GormSessionStore) FindByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	var session models.RefreshSession
	err := s.db.WithContext(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, s.now().UTC()).
		Take(&session).Error
	return foundOrNil(&session, err, "find session by token")
}

func (s *GormSessionStore) Create(ctx context.Context, userID, refreshToken, fingerprint string, ttl time.Duration) (*models.RefreshSession, error) {
	session, err := newSessionRecord(userID, refreshToken, fingerprint, s.now(), ttl)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("session store: %w", ErrDuplicateToken)
		}
		return nil, fmt.Errorf("session store: create session: %w", err)
	}
	return session, nil
}

func (s *GormSessionStore) DeleteByToken(ctx context.Context, refreshToken string) error {
	if err := s.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&models.RefreshSession{}).Error; err != nil {
		return fmt.Errorf("session store: delete session: %w", err)
	}
	return nil
}

// TakeByToken reads the row and deletes it by id and token inside one transaction.
// Only the caller whose delete affects the row owns the session.
func (s *GormSessionStore) TakeByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	var taken *models.RefreshSession

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.RefreshSession
		err := tx.Where("refresh_token = ?", refreshToken).Take(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		result := tx.Where("id = ? AND refresh_token = ?", session.ID, session.RefreshToken).
			Delete(&models.RefreshSession{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return nil
		}

		taken = &session
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session store: take session: %w", err)
	}
	return taken, nil
}

func (s *GormSessionStore) ListByUser(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	var sessions []models.RefreshSession
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, s.now().UTC()).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("session store: list sessions: %w", err)
	}
	return sessions, nil
}

func (s *GormSessionStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RefreshSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session store: delete user sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *GormSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.RefreshSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session store: delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func foundOrNil(session *models.RefreshSession, err error, op string) (*models.RefreshSession, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session store: %s: %w", op, err)
	}
	return session, nil
}
