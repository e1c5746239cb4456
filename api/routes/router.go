package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reconpipe/internal/config"
	"reconpipe/internal/dao"
	"reconpipe/internal/notification"
	"reconpipe/internal/services"
)

func InitRouter(db *gorm.DB, cfg *config.PipelineConfig) *gin.Engine {
	router := gin.Default()

	scanDao := dao.NewScanDAO(db)
	assetDao := dao.NewAssetDAO(db)
	notifier := notification.NewFromEnv()
	scanService := services.NewScanService(scanDao, assetDao, cfg, notifier)

	api := router.Group("/api")
	{
		InitScanRoutes(api, scanService)
		InitConfigRoutes(api, cfg)
	}

	return router
}
