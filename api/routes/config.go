package routes

import (
	"github.com/gin-gonic/gin"

	"reconpipe/internal/config"
	"reconpipe/internal/handlers"
	"reconpipe/internal/services"
)

func InitConfigRoutes(router *gin.RouterGroup, cfg *config.PipelineConfig) {
	h := handlers.NewConfigHandler(services.NewConfigService(cfg))

	configRoutes := router.Group("/config")
	{
		configRoutes.GET("/capabilities", h.GetCapabilities)
		configRoutes.GET("/settings", h.GetSettings)
	}
}
