package routes

import (
	"github.com/gin-gonic/gin"

	"reconpipe/internal/handlers"
	"reconpipe/internal/services"
)

func InitScanRoutes(router *gin.RouterGroup, scanService services.ScanServiceMethods) {
	h := handlers.NewScanHandler(scanService)

	scanRoutes := router.Group("/scans")
	{
		scanRoutes.POST("", h.StartScan)
		scanRoutes.GET("", h.ListScans)
		scanRoutes.GET("/:id", h.GetScanByUUID)
		scanRoutes.GET("/:id/status", h.GetScanStatus)
		scanRoutes.GET("/:id/assets", h.GetScanAssets)
		scanRoutes.POST("/:id/cancel", h.CancelScan)
		scanRoutes.DELETE("/:id", h.DeleteScan)
	}
}
