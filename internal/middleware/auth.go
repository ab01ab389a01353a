package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/itemhub/internal/auth"
	"github.com/charlesng35/itemhub/internal/models"
	"github.com/charlesng35/itemhub/pkg/errors"
	"github.com/charlesng35/itemhub/pkg/response"
)

const (
	CtxUserKey   = "currentUser"
	CtxUserIDKey = "userID"
)

// UserLoader resolves the account behind an access token subject.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Auth authenticates requests carrying a bearer access token and loads the active user.
// A missing header is 401; any token failure is 403 without detail; an unknown subject is
// whatever the loader reports (404); an inactive account is 403.
func Auth(codec *iauth.TokenCodec, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		payload, err := codec.DecodeAccess(token)
		if err != nil {
			response.Error(c, errors.ErrAuthenticationFailed)
			c.Abort()
			return
		}

		user, err := users.GetByID(c.Request.Context(), payload.Subject)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !user.IsActive {
			response.Error(c, errors.ErrInactiveAccount)
			c.Abort()
			return
		}

		c.Set(CtxUserKey, user)
		c.Set(CtxUserIDKey, user.ID)

		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}
