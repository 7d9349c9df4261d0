package routes

import (
	"tstore_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRoutes монтирует все маршруты под /api/v1.
// authMW передается сюда один раз и переиспользуется всеми группами.
func SetupRoutes(router *gin.Engine, h *handlers.AppHandlers, authMW gin.HandlerFunc) {
	api := router.Group("/api/v1")

	h.Auth.RegisterRoutes(api, authMW)
	h.User.RegisterRoutes(api, authMW)
}
