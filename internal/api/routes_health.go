package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/itemhub/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB, checks map[string]handlers.HealthCheck) {
	health := handlers.Health(db, checks)
	r.GET("/health", health)
	r.GET("/api/v1/health", health)
}
