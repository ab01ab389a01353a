package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/itemhub/internal/models"
	"github.com/charlesng35/itemhub/pkg/crypto"
	"github.com/charlesng35/itemhub/pkg/logger"
	"github.com/charlesng35/itemhub/pkg/metrics"
)

// Refresh outcome labels recorded in metrics.RefreshOutcomes.
const (
	outcomeSuccess             = "success"
	outcomeInvalidToken        = "invalid_token"
	outcomeExpiredToken        = "expired_token"
	outcomeMalformedPayload    = "malformed_payload"
	outcomeUnknownSession      = "unknown_session"
	outcomeFingerprintMismatch = "fingerprint_mismatch"
	outcomeSubjectMismatch     = "subject_mismatch"
	outcomeError               = "error"
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	Clock func() time.Time
}

// SessionService runs the login and refresh protocols on top of a TokenCodec and a SessionStore.
type SessionService struct {
	store SessionStore
	codec *TokenCodec
	now   func() time.Time
	log   *zap.Logger
}

// NewSessionService constructs a session manager backed by the provided store and codec.
func NewSessionService(store SessionStore, codec *TokenCodec, cfg SessionConfig) (*SessionService, error) {
	if store == nil {
		return nil, errors.New("session service: store is required")
	}
	if codec == nil {
		return nil, errors.New("session service: token codec is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{
		store: store,
		codec: codec,
		now:   clock,
		log:   logger.WithModule("auth.session"),
	}, nil
}

// Codec exposes the token codec used to mint and verify tokens.
func (s *SessionService) Codec() *TokenCodec {
	return s.codec
}

// Login issues a token pair for an authenticated user. When the device already holds a
// live session, its refresh token is returned instead of the freshly minted one.
func (s *SessionService) Login(ctx context.Context, userID, fingerprint string) (TokenPair, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, errors.New("session service: user id is required")
	}

	pair, err := s.codec.IssuePair(userID, fingerprint)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: issue tokens: %w", err)
	}

	existing, err := s.store.FindActive(ctx, userID, fingerprint)
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: lookup session: %w", err)
	}
	if existing != nil {
		pair.RefreshToken = existing.RefreshToken
		return pair, nil
	}

	if err := s.persist(ctx, userID, pair.RefreshToken, fingerprint); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented session is consumed before
// any check runs, so a token is never accepted twice. Every rejection is ErrAuthenticationFailed.
func (s *SessionService) Refresh(ctx context.Context, refreshToken, fingerprint string) (TokenPair, error) {
	payload, err := s.codec.DecodeRefresh(refreshToken)
	if err != nil {
		s.recordOutcome(decodeOutcome(err))
		return TokenPair{}, ErrAuthenticationFailed
	}

	session, err := s.store.TakeByToken(ctx, refreshToken)
	if err != nil {
		s.recordOutcome(outcomeError)
		return TokenPair{}, fmt.Errorf("session service: take session: %w", err)
	}
	if session != nil {
		metrics.ActiveSessions.Dec()
	}
	if session == nil || session.IsExpired(s.now()) {
		s.recordOutcome(outcomeUnknownSession)
		return TokenPair{}, ErrAuthenticationFailed
	}

	if !crypto.ConstantTimeEqual(session.Fingerprint, fingerprint) ||
		!crypto.ConstantTimeEqual(payload.Fingerprint, fingerprint) {
		metrics.TheftDetections.Inc()
		s.recordOutcome(outcomeFingerprintMismatch)
		s.log.Warn("refresh token presented from a different device; session revoked",
			zap.String("user_id", session.UserID),
			zap.String("session_id", session.ID),
		)
		return TokenPair{}, ErrAuthenticationFailed
	}

	if session.UserID != payload.Subject {
		s.recordOutcome(outcomeSubjectMismatch)
		s.log.Warn("refresh token subject does not match its session",
			zap.String("session_id", session.ID),
		)
		return TokenPair{}, ErrAuthenticationFailed
	}

	pair, err := s.codec.IssuePair(session.UserID, session.Fingerprint)
	if err != nil {
		s.recordOutcome(outcomeError)
		return TokenPair{}, fmt.Errorf("session service: issue tokens: %w", err)
	}
	if err := s.persist(ctx, session.UserID, pair.RefreshToken, session.Fingerprint); err != nil {
		s.recordOutcome(outcomeError)
		return TokenPair{}, err
	}

	s.recordOutcome(outcomeSuccess)
	return pair, nil
}

// Logout ends the session holding refreshToken. Unknown tokens are ignored.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	session, err := s.store.TakeByToken(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("session service: logout: %w", err)
	}
	if session != nil {
		metrics.ActiveSessions.Dec()
	}
	return nil
}

// ListSessions returns the live sessions of a user.
func (s *SessionService) ListSessions(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	sessions, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session service: list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeUserSessions deletes every session of a user.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, errors.New("session service: user id is required")
	}

	removed, err := s.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session service: revoke user sessions: %w", err)
	}
	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
	}
	return removed, nil
}

// CleanupExpired removes expired sessions and updates active session metrics accordingly.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", err)
	}
	if removed > 0 {
		metrics.ActiveSessions.Sub(float64(removed))
		metrics.SessionsReaped.Add(float64(removed))
	}
	return removed, nil
}

func (s *SessionService) persist(ctx context.Context, userID, refreshToken, fingerprint string) error {
	_, err := s.store.Create(ctx, userID, refreshToken, fingerprint, s.codec.RefreshTokenTTL())
	if err != nil {
		if errors.Is(err, ErrDuplicateToken) {
			s.log.Error("refresh token collision while storing session", zap.String("user_id", userID))
		}
		return fmt.Errorf("session service: store session: %w", err)
	}
	metrics.ActiveSessions.Inc()
	return nil
}

func (s *SessionService) recordOutcome(outcome string) {
	metrics.RefreshOutcomes.WithLabelValues(outcome).Inc()
}

func decodeOutcome(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return outcomeExpiredToken
	case errors.Is(err, ErrMalformedPayload):
		return outcomeMalformedPayload
	default:
		return outcomeInvalidToken
	}
}
