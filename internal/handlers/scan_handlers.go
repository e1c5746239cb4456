package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"reconpipe/internal/models"
	"reconpipe/internal/services"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/logger"
)

type ScanHandler struct {
	scanService services.ScanServiceMethods
	logger      *logger.Logger
}

func NewScanHandler(scanService services.ScanServiceMethods) *ScanHandler {
	return &ScanHandler{scanService: scanService, logger: logger.NewLogger(logrus.InfoLevel)}
}

func (h *ScanHandler) StartScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Failed to bind JSON:", logger.Fields{"error": err})
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	scanType := req.ScanType
	if scanType == "" {
		scanType = models.ScanTypeFull
	}
	switch scanType {
	case models.ScanTypeFull, models.ScanTypeSubdomain, models.ScanTypeProbing:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scan type"})
		return
	}

	scan := &models.Scan{
		Domain:   req.Domain,
		ScanType: scanType,
		ToolList: req.Tools,
	}

	h.logger.Info("Starting scan", logger.Fields{"scan_type": scanType, "domain": req.Domain})
	id, err := h.scanService.StartScan(scan)
	if err != nil {
		h.logger.Error("Failed to start scan:", logger.Fields{"error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start scan"})
		return
	}
	c.JSON(http.StatusAccepted, ScanResponse{ScanID: id})
}

func (h *ScanHandler) GetScanByUUID(c *gin.Context) {
	scan, ok := h.lookupScan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scan)
}

func (h *ScanHandler) GetScanStatus(c *gin.Context) {
	scan, ok := h.lookupScan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, StatusResponse{
		ScanID:       scan.UUID,
		Status:       scan.Status,
		Progress:     scan.Progress,
		Message:      scan.Message,
		LiveResults:  scan.LiveResults,
		ErrorMessage: scan.ErrorMessage,
	})
}

func (h *ScanHandler) ListScans(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	scans, total, err := h.scanService.ListScans(page, limit)
	if err != nil {
		h.logger.Error("Failed to list scans:", logger.Fields{"error": err})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list scans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scans": scans,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *ScanHandler) CancelScan(c *gin.Context) {
	scanID := c.Param("id")
	err := h.scanService.CancelScan(scanID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"scan_id": scanID, "message": "Cancellation requested"})
	case errors.Is(err, pkgerrors.ErrScanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
	case errors.Is(err, pkgerrors.ErrScanTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Scan already finished"})
	default:
		h.logger.Error("Failed to cancel scan:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel scan"})
	}
}

func (h *ScanHandler) DeleteScan(c *gin.Context) {
	scanID := c.Param("id")
	err := h.scanService.DeleteScan(scanID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"scan_id": scanID, "message": "Scan deleted"})
	case errors.Is(err, pkgerrors.ErrScanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
	case errors.Is(err, pkgerrors.ErrScanTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Scan still running"})
	default:
		h.logger.Error("Failed to delete scan:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete scan"})
	}
}

func (h *ScanHandler) GetScanAssets(c *gin.Context) {
	scanID := c.Param("id")
	report, err := h.scanService.GetAssets(scanID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, pkgerrors.ErrScanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
	default:
		h.logger.Error("Failed to load scan assets:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scan assets"})
	}
}

func (h *ScanHandler) lookupScan(c *gin.Context) (*models.Scan, bool) {
	scanID := c.Param("id")
	scan, err := h.scanService.GetScanByUUID(scanID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrScanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Scan not found"})
			return nil, false
		}
		h.logger.Error("Failed to get scan:", logger.Fields{"error": err, "scan_id": scanID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get scan"})
		return nil, false
	}
	return scan, true
}
