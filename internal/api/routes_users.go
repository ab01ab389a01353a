package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/internal/handlers"
	"github.com/charlesng35/itemhub/internal/middleware"
)

func registerUserRoutes(v1 *gin.RouterGroup, handler *handlers.UserHandler, requireAuth gin.HandlerFunc) {
	users := v1.Group("/users")

	users.POST("/open", handler.Register)

	authed := users.Group("")
	authed.Use(requireAuth)
	{
		authed.GET("/me", handler.Me)
		authed.PUT("/me", handler.UpdateMe)
		authed.GET("/:id", handler.Get)

		authed.GET("", middleware.RequireSuperuser(), handler.List)
		authed.POST("", middleware.RequireSuperuser(), handler.Create)
		authed.PUT("/:id", middleware.RequireSuperuser(), handler.Update)
		authed.DELETE("/:id", middleware.RequireSuperuser(), handler.Delete)
	}
}
