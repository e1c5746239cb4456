package services

import (
	"fmt"
	"sync"

	"reconpipe/internal/dao"
	"reconpipe/internal/models"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/logger"
	"reconpipe/pkg/pipeline"
)

// ScanStatusManager owns every scan status transition. Progress never goes
// backwards and a scan in a terminal state is never touched again. All
// mutations are load-modify-save cycles over the full row, so mu serializes
// them: the progress drainer and the workspace monitor write concurrently
// and an unserialized stale save would roll progress back.
type ScanStatusManager struct {
	scanDao dao.ScanDAO
	logger  *logger.Logger
	mu      sync.Mutex
}

func newScanStatusManager(scanDao dao.ScanDAO, logger *logger.Logger) *ScanStatusManager {
	return &ScanStatusManager{
		scanDao: scanDao,
		logger:  logger,
	}
}

func (m *ScanStatusManager) load(scanID string) (*models.Scan, error) {
	scan, err := m.scanDao.GetScanByUUID(scanID)
	if err != nil {
		return nil, fmt.Errorf("load scan: %w", err)
	}
	if scan == nil {
		return nil, pkgerrors.ErrScanNotFound
	}
	return scan, nil
}

func (m *ScanStatusManager) MarkRunning(scanID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan, err := m.load(scanID)
	if err != nil {
		return err
	}
	if scan.IsTerminal() {
		return pkgerrors.ErrScanTerminal
	}
	scan.Status = models.StatusRunning
	return m.scanDao.UpdateScan(scan)
}

// UpdateProgress records a progress step. Regressions and updates to a scan
// already in a terminal state are dropped silently; the pipeline keeps
// running either way.
func (m *ScanStatusManager) UpdateProgress(scanID string, percent int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan, err := m.load(scanID)
	if err != nil {
		m.logger.Error("Failed to load scan for progress update", logger.Fields{"error": err, "scan_id": scanID})
		return
	}
	if scan.IsTerminal() || percent < scan.Progress {
		return
	}

	scan.Progress = percent
	scan.Message = message
	if err := m.scanDao.UpdateScan(scan); err != nil {
		m.logger.Error("Failed to persist progress", logger.Fields{"error": err, "scan_id": scanID})
	}
}

// UpdateLiveResults records the running tally of tool output lines observed
// by the workspace monitor.
func (m *ScanStatusManager) UpdateLiveResults(scanID string, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan, err := m.load(scanID)
	if err != nil {
		m.logger.Error("Failed to load scan for live results update", logger.Fields{"error": err, "scan_id": scanID})
		return
	}
	if scan.IsTerminal() || total <= scan.LiveResults {
		return
	}

	scan.LiveResults = total
	if err := m.scanDao.UpdateScan(scan); err != nil {
		m.logger.Error("Failed to persist live results", logger.Fields{"error": err, "scan_id": scanID})
	}
}

func (m *ScanStatusManager) MarkFailedWithReason(scanID string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan, err := m.load(scanID)
	if err != nil {
		m.logger.Error("Failed to load scan for failure update", logger.Fields{"error": err, "scan_id": scanID})
		return
	}
	if scan.IsTerminal() {
		return
	}

	scan.Status = models.StatusFailed
	scan.ErrorMessage = reason
	scan.EndTime = nowUnix()

	if err := m.scanDao.UpdateScan(scan); err != nil {
		m.logger.Error("Failed to persist failed scan status", logger.Fields{"error": err, "scan_id": scanID})
	}

	m.logger.Error("Scan marked as failed", logger.Fields{
		"scan_id": scanID,
		"reason":  reason,
	})
}

// MarkCompleted finalizes a successful run with its summary. Partial stage
// failures still land here; they are surfaced in the completion message.
func (m *ScanStatusManager) MarkCompleted(scanID string, summary *pipeline.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scan, err := m.load(scanID)
	if err != nil {
		return err
	}
	if scan.IsTerminal() {
		return pkgerrors.ErrScanTerminal
	}

	scan.Status = models.StatusCompleted
	scan.Progress = 100
	scan.Message = completionMessage(summary)
	scan.EndTime = nowUnix()

	if err := m.scanDao.UpdateScan(scan); err != nil {
		return fmt.Errorf("persist scan completion: %w", err)
	}
	return nil
}

func completionMessage(summary *pipeline.Summary) string {
	if summary == nil {
		return "Scan completed"
	}
	msg := fmt.Sprintf("Scan completed: %d new subdomains, %d new live hosts, %d new URLs",
		summary.NewSubdomains, summary.NewLiveHosts, summary.NewURLs)
	if len(summary.PartialFailures) > 0 {
		msg += fmt.Sprintf(" (%d partial failures)", len(summary.PartialFailures))
	}
	return msg
}
