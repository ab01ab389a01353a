package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/itemhub/internal/auth"
	"github.com/charlesng35/itemhub/internal/auth/providers"
	appErrors "github.com/charlesng35/itemhub/pkg/errors"
	"github.com/charlesng35/itemhub/pkg/metrics"
	"github.com/charlesng35/itemhub/pkg/response"
)

const tokenTypeBearer = "bearer"

// AuthHandler serves the login, token refresh and session management endpoints.
type AuthHandler struct {
	local    *providers.LocalProvider
	sessions *iauth.SessionService
}

func NewAuthHandler(local *providers.LocalProvider, sessions *iauth.SessionService) (*AuthHandler, error) {
	if local == nil {
		return nil, errors.New("auth handler: local provider is required")
	}
	if sessions == nil {
		return nil, errors.New("auth handler: session service is required")
	}
	return &AuthHandler{local: local, sessions: sessions}, nil
}

type loginRequest struct {
	Username    string `json:"username" form:"username" validate:"required,email,max=320"`
	Password    string `json:"password" form:"password" validate:"required"`
	Fingerprint string `json:"fingerprint" form:"fingerprint" validate:"required,fingerprint"`
}

type updateTokenRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" validate:"required"`
	// Fingerprint is compared by SessionService.Refresh only, so a malformed value
	// burns the session like any other mismatch.
	Fingerprint  string `json:"fingerprint" form:"fingerprint"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type sessionResponse struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func newTokenResponse(pair iauth.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    tokenTypeBearer,
	}
}

// POST /api/v1/login/
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	user, err := h.local.Authenticate(ctx, providers.AuthenticateInput{
		Email:    req.Username,
		Password: req.Password,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues(loginFailureLabel(err)).Inc()
		response.Error(c, mapAuthError(err))
		return
	}

	pair, err := h.sessions.Login(ctx, user.ID, req.Fingerprint)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("error").Inc()
		response.Error(c, mapAuthError(err))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	response.Success(c, http.StatusOK, newTokenResponse(pair))
}

// POST /api/v1/login/test-token
func (h *AuthHandler) TestToken(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/v1/login/update-token
func (h *AuthHandler) UpdateToken(c *gin.Context) {
	var req updateTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.sessions.Refresh(requestContext(c), strings.TrimSpace(req.RefreshToken), req.Fingerprint)
	if err != nil {
		response.Error(c, mapAuthError(err))
		return
	}

	response.Success(c, http.StatusOK, newTokenResponse(pair))
}

// POST /api/v1/login/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.sessions.Logout(requestContext(c), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// GET /api/v1/login/sessions
func (h *AuthHandler) Sessions(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListSessions(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, sessionResponse{
			ID:          session.ID,
			Fingerprint: session.Fingerprint,
			CreatedAt:   session.CreatedAt,
			ExpiresAt:   session.ExpiresAt,
		})
	}

	response.Success(c, http.StatusOK, out)
}

// POST /api/v1/login/sessions/revoke-all
func (h *AuthHandler) RevokeAll(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	removed, err := h.sessions.RevokeUserSessions(requestContext(c), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": removed})
}

// mapAuthError translates auth package sentinels into client facing errors.
// Token failures never reveal which check rejected them.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, iauth.ErrInvalidCredentials):
		return appErrors.ErrInvalidCredentials
	case errors.Is(err, iauth.ErrInactiveAccount):
		return appErrors.ErrInactiveAccount
	case errors.Is(err, iauth.ErrAccountLocked):
		return appErrors.ErrAccountLocked
	case errors.Is(err, iauth.ErrAuthenticationFailed),
		errors.Is(err, iauth.ErrInvalidToken),
		errors.Is(err, iauth.ErrExpiredToken),
		errors.Is(err, iauth.ErrMalformedPayload):
		return appErrors.ErrAuthenticationFailed
	default:
		return err
	}
}

func loginFailureLabel(err error) string {
	switch {
	case errors.Is(err, iauth.ErrInvalidCredentials):
		return "failure"
	case errors.Is(err, iauth.ErrInactiveAccount):
		return "inactive"
	case errors.Is(err, iauth.ErrAccountLocked):
		return "locked"
	default:
		return "error"
	}
}
