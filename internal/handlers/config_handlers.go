package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reconpipe/internal/services"
	"reconpipe/pkg/logger"
)

type ConfigHandler struct {
	configService services.ConfigServiceMethods
	logger        *logger.Logger
}

func NewConfigHandler(configService services.ConfigServiceMethods) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
		logger:        logger.NewLogger(logrus.InfoLevel),
	}
}

func (h *ConfigHandler) GetCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, h.configService.GetCapabilities())
}

func (h *ConfigHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.configService.GetSettings())
}
