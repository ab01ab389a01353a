package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL defines the fallback validity period for refresh tokens.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// GrantType distinguishes access tokens from refresh tokens.
type GrantType string

const (
	GrantAccess  GrantType = "access"
	GrantRefresh GrantType = "refresh"
)

// TokenConfig bundles the configuration required to build a TokenCodec.
type TokenConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           func() time.Time
}

// TokenPair is handed to clients after login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenPayload is the verified content of a token.
type TokenPayload struct {
	Subject     string
	GrantType   GrantType
	Fingerprint string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

type tokenClaims struct {
	GrantType   GrantType `json:"grant_type"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 signed tokens.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// NewTokenCodec constructs a TokenCodec instance when provided with the required configuration.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &TokenCodec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// AccessTokenTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTokenTTL() time.Duration { return c.accessTTL }

// RefreshTokenTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTokenTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs a short lived access token for subject.
func (c *TokenCodec) IssueAccessToken(subject string) (string, error) {
	return c.issue(subject, GrantAccess, "", c.accessTTL)
}

// IssueRefreshToken signs a refresh token bound to fingerprint.
func (c *TokenCodec) IssueRefreshToken(subject, fingerprint string) (string, error) {
	if fingerprint == "" {
		return "", errors.New("jwt: fingerprint is required for refresh tokens")
	}
	return c.issue(subject, GrantRefresh, fingerprint, c.refreshTTL)
}

// IssuePair mints an access token and a refresh token for the same subject.
func (c *TokenCodec) IssuePair(subject, fingerprint string) (TokenPair, error) {
	access, err := c.IssueAccessToken(subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := c.IssueRefreshToken(subject, fingerprint)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (c *TokenCodec) issue(subject string, grant GrantType, fingerprint string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("jwt: subject is required")
	}

	now := c.now()
	claims := &tokenClaims{
		GrantType:   grant,
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry, then checks the claim shape.
func (c *TokenCodec) Decode(token string) (*TokenPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims tokenClaims
	_, err := c.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if err := claims.validateShape(); err != nil {
		return nil, err
	}

	payload := &TokenPayload{
		Subject:     claims.Subject,
		GrantType:   claims.GrantType,
		Fingerprint: claims.Fingerprint,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	return payload, nil
}

// DecodeAccess decodes token and requires an access grant.
func (c *TokenCodec) DecodeAccess(token string) (*TokenPayload, error) {
	return c.decodeGrant(token, GrantAccess)
}

// DecodeRefresh decodes token and requires a refresh grant.
func (c *TokenCodec) DecodeRefresh(token string) (*TokenPayload, error) {
	return c.decodeGrant(token, GrantRefresh)
}

func (c *TokenCodec) decodeGrant(token string, want GrantType) (*TokenPayload, error) {
	payload, err := c.Decode(token)
	if err != nil {
		return nil, err
	}
	if payload.GrantType != want {
		return nil, fmt.Errorf("%w: expected %s grant, got %s", ErrMalformedPayload, want, payload.GrantType)
	}
	return payload, nil
}

func (c *tokenClaims) validateShape() error {
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrMalformedPayload)
	}

	switch c.GrantType {
	case GrantAccess:
		if c.Fingerprint != "" {
			return fmt.Errorf("%w: access token carries a fingerprint", ErrMalformedPayload)
		}
	case GrantRefresh:
		if c.Fingerprint == "" {
			return fmt.Errorf("%w: refresh token without fingerprint", ErrMalformedPayload)
		}
	case "":
		return fmt.Errorf("%w: missing grant_type", ErrMalformedPayload)
	default:
		return fmt.Errorf("%w: unknown grant_type %q", ErrMalformedPayload, c.GrantType)
	}
	return nil
}
