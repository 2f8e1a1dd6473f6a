package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/assistant-provisioner/api/handlers"
	"github.com/feichai0017/assistant-provisioner/api/middleware"
	"github.com/feichai0017/assistant-provisioner/pkg/logger"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, allowOrigins []string, log logger.Logger) {
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.CORS(allowOrigins))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.Health)

		api.GET("/bootstrap", h.Assistant.Bootstrap)
		api.POST("/bootstrap", h.Assistant.Bootstrap)
		api.GET("/done", h.Assistant.Done)
		api.GET("/check_assistant", h.Assistant.CheckAssistant)
		api.GET("/list_assistant_files", h.Assistant.ListAssistantFiles)

		api.POST("/chat", h.Chat.Chat)
	}
}
