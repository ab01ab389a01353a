package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/internal/middleware"
	"github.com/charlesng35/itemhub/internal/models"
	appErrors "github.com/charlesng35/itemhub/pkg/errors"
	"github.com/charlesng35/itemhub/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUser returns the authenticated user or writes a 401 and returns false.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return user, true
}
