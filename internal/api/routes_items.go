package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/itemhub/internal/handlers"
)

func registerItemRoutes(v1 *gin.RouterGroup, handler *handlers.ItemHandler, requireAuth gin.HandlerFunc) {
	items := v1.Group("/items")
	items.Use(requireAuth)
	{
		items.GET("", handler.List)
		items.POST("", handler.Create)
		items.GET("/:id", handler.Get)
		items.PUT("/:id", handler.Update)
		items.DELETE("/:id", handler.Delete)
	}
}
