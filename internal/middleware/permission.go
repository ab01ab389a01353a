package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/pkg/errors"
	"github.com/charlesng35/itemhub/pkg/response"
)

// RequireSuperuser lets the request through only when Auth loaded a superuser.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !user.IsSuperuser {
			response.Error(c, errors.ErrInsufficientPrivileges)
			c.Abort()
			return
		}
		c.Next()
	}
}
