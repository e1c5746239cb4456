package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reconpipe/internal/config"
	"reconpipe/internal/dao"
	"reconpipe/internal/models"
	"reconpipe/internal/notification"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/logger"
	"reconpipe/pkg/runner"
)

// AssetReport bundles everything recorded for one scan's target domain.
type AssetReport struct {
	Stats      *dao.AssetStats    `json:"stats"`
	Subdomains []models.Subdomain `json:"subdomains"`
	LiveHosts  []models.LiveHost  `json:"live_hosts"`
	OpenPorts  []models.OpenPort  `json:"open_ports"`
	URLs       []models.URL       `json:"urls"`
}

type ScanServiceMethods interface {
	StartScan(scan *models.Scan) (string, error)
	GetScanByUUID(id string) (*models.Scan, error)
	ListScans(page, limit int) ([]models.Scan, int64, error)
	CancelScan(id string) error
	DeleteScan(id string) error
	GetAssets(id string) (*AssetReport, error)
}

type scanService struct {
	scanDao       dao.ScanDAO
	assetDao      dao.AssetDAO
	cfg           *config.PipelineConfig
	notifier      notification.Notifier
	statusManager *ScanStatusManager
	registry      *jobRegistry
	executor      *ScanExecutor
	monitor       *ScanMonitor
	cmdRunner     runner.CommandRunner
	logger        *logger.Logger
}

func NewScanService(scanDao dao.ScanDAO, assetDao dao.AssetDAO, cfg *config.PipelineConfig, notifier notification.Notifier) ScanServiceMethods {
	log := logger.NewLogger(logrus.InfoLevel)
	s := &scanService{
		scanDao:       scanDao,
		assetDao:      assetDao,
		cfg:           cfg,
		notifier:      notifier,
		statusManager: newScanStatusManager(scanDao, log),
		registry:      newJobRegistry(),
		cmdRunner:     runner.NewExecRunner(),
		logger:        log,
	}
	s.monitor = newScanMonitor(s.statusManager, log)
	s.executor = newScanExecutor(s)
	InitGlobalQueue(cfg.MaxConcurrent)
	return s
}

// StartScan persists the scan in the created state and hands it to a
// background goroutine. The returned id is valid for status polling
// immediately.
func (s *scanService) StartScan(scan *models.Scan) (string, error) {
	id := uuid.New().String()
	scan.UUID = id
	scan.Status = models.StatusCreated
	scan.Progress = 0
	scan.StartTime = nowUnix()

	if err := s.scanDao.SaveScan(scan); err != nil {
		s.logger.Error("SaveScan failed", logger.Fields{"error": err})
		return "", err
	}

	s.logger.Info("Scan accepted", logger.Fields{
		"scan_id":   id,
		"domain":    scan.Domain,
		"scan_type": scan.ScanType,
	})

	go s.executor.Execute(id, scan.ScanType, scan.Domain, scan.ToolList)

	return id, nil
}

func (s *scanService) GetScanByUUID(id string) (*models.Scan, error) {
	scan, err := s.scanDao.GetScanByUUID(id)
	if err != nil {
		return nil, err
	}
	if scan == nil {
		return nil, pkgerrors.ErrScanNotFound
	}
	return scan, nil
}

func (s *scanService) ListScans(page, limit int) ([]models.Scan, int64, error) {
	return s.scanDao.ListScansWithPagination(page, limit)
}

// CancelScan fires the job's context. The running pipeline stops launching
// batches, in-flight tool processes are killed, and the executor drives the
// scan to failed with a cancellation message.
func (s *scanService) CancelScan(id string) error {
	scan, err := s.GetScanByUUID(id)
	if err != nil {
		return err
	}
	if scan.IsTerminal() {
		return pkgerrors.ErrScanTerminal
	}

	if !s.registry.cancel(id) {
		// Accepted but not picked up by a queue slot yet. Mark it failed
		// directly so it never starts.
		s.statusManager.MarkFailedWithReason(id, "Cancelled by user")
	}

	s.logger.Info("Cancellation requested", logger.Fields{"scan_id": id})
	return nil
}

func (s *scanService) DeleteScan(id string) error {
	scan, err := s.GetScanByUUID(id)
	if err != nil {
		return err
	}
	if !scan.IsTerminal() {
		return pkgerrors.ErrScanTerminal
	}
	return s.scanDao.DeleteScan(id)
}

func (s *scanService) GetAssets(id string) (*AssetReport, error) {
	if _, err := s.GetScanByUUID(id); err != nil {
		return nil, err
	}

	stats, err := s.assetDao.CountByScan(id)
	if err != nil {
		return nil, err
	}
	subdomains, err := s.assetDao.SubdomainsByScan(id)
	if err != nil {
		return nil, err
	}
	liveHosts, err := s.assetDao.LiveHostsByScan(id)
	if err != nil {
		return nil, err
	}
	openPorts, err := s.assetDao.OpenPortsByScan(id)
	if err != nil {
		return nil, err
	}
	urls, err := s.assetDao.URLsByScan(id)
	if err != nil {
		return nil, err
	}

	return &AssetReport{
		Stats:      stats,
		Subdomains: subdomains,
		LiveHosts:  liveHosts,
		OpenPorts:  openPorts,
		URLs:       urls,
	}, nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}
