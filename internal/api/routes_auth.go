package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/internal/handlers"
)

func registerAuthRoutes(v1 *gin.RouterGroup, handler *handlers.AuthHandler, requireAuth gin.HandlerFunc) {
	login := v1.Group("/login")
	{
		login.POST("/", handler.Login)
		login.POST("/update-token", handler.UpdateToken)
		login.POST("/logout", handler.Logout)

		login.POST("/test-token", requireAuth, handler.TestToken)
		login.GET("/sessions", requireAuth, handler.Sessions)
		login.POST("/sessions/revoke-all", requireAuth, handler.RevokeAll)
	}
}
