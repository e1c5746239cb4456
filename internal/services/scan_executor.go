package services

import (
	"context"
	"errors"
	"fmt"

	"reconpipe/internal/models"
	"reconpipe/internal/notification"
	"reconpipe/internal/utils"
	"reconpipe/pkg/capability"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/jsmon"
	"reconpipe/pkg/logger"
	"reconpipe/pkg/pipeline"
)

type progressUpdate struct {
	percent int
	message string
}

// ScanExecutor runs one scan end to end in the background: queue slot,
// workspace, cancellable context, pipeline run, terminal status.
type ScanExecutor struct {
	scanService *scanService
}

func newScanExecutor(s *scanService) *ScanExecutor {
	return &ScanExecutor{scanService: s}
}

func (e *ScanExecutor) Execute(scanID, scanType, domain, toolList string) {
	svc := e.scanService

	defer func() {
		if r := recover(); r != nil {
			panicMsg := fmt.Sprintf("panic in background scan: %v", r)
			svc.logger.Error(panicMsg, logger.Fields{"scan_id": scanID, "panic": r})
			svc.statusManager.MarkFailedWithReason(scanID, panicMsg)
		}
	}()

	err := GetGlobalQueue().ExecuteWithQueue(func() error {
		return e.run(scanID, scanType, domain, toolList)
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrScanCancelled) {
			svc.statusManager.MarkFailedWithReason(scanID, "Cancelled by user")
			return
		}
		svc.logger.Error("Scan execution failed", logger.Fields{"scan_id": scanID, "error": err})
		svc.statusManager.MarkFailedWithReason(scanID, fmt.Sprintf("Execution failed: %v", err))
		return
	}

	svc.logger.Info("Scan completed", logger.Fields{"scan_id": scanID})
}

func (e *ScanExecutor) run(scanID, scanType, domain, toolList string) error {
	svc := e.scanService

	if err := svc.statusManager.MarkRunning(scanID); err != nil {
		// Cancelled while waiting for a queue slot.
		if errors.Is(err, pkgerrors.ErrScanTerminal) {
			return nil
		}
		return err
	}

	// HardBudget caps the whole run; per-invocation budgets live in the
	// capability adapter.
	ctx, cancel := context.WithTimeout(context.Background(), svc.cfg.HardBudget)
	defer cancel()
	svc.registry.register(scanID, cancel)
	defer svc.registry.remove(scanID)

	workdir, err := utils.ScanWorkspace(svc.cfg.Workspace, domain, scanID)
	if err != nil {
		return fmt.Errorf("create scan workspace: %w", err)
	}

	// Progress writes go through a buffered channel so a slow database
	// never stalls pipeline work.
	progressCh := make(chan progressUpdate, 16)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progressCh {
			svc.statusManager.UpdateProgress(scanID, update.percent, update.message)
		}
	}()
	progress := func(percent int, message string) {
		select {
		case progressCh <- progressUpdate{percent: percent, message: message}:
		default:
		}
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	go svc.monitor.Watch(monitorCtx, scanID, workdir, monitorDone)

	adapter := capability.NewAdapter(svc.cfg, svc.cmdRunner, workdir)
	detector := jsmon.NewDetector(svc.assetDao, svc.notifier)
	pipe := pipeline.New(adapter, svc.assetDao, detector, svc.notifier, svc.cfg, progress)

	scan := &models.Scan{UUID: scanID, Domain: domain, ScanType: scanType, ToolList: toolList}
	summary, runErr := pipe.Run(ctx, scan)

	stopMonitor()
	<-monitorDone
	close(progressCh)
	<-drained

	if runErr != nil {
		if errors.Is(runErr, pkgerrors.ErrScanCancelled) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("execution budget of %s exhausted", svc.cfg.HardBudget)
		}
		return runErr
	}

	if err := svc.statusManager.MarkCompleted(scanID, summary); err != nil {
		return err
	}

	e.notifyCompletion(domain, scanID, summary)
	return nil
}

func (e *ScanExecutor) notifyCompletion(domain, scanID string, summary *pipeline.Summary) {
	svc := e.scanService
	if svc.notifier == nil || summary == nil {
		return
	}
	event := notification.Event{
		Message:  fmt.Sprintf("Scan of %s finished", domain),
		Severity: notification.SeverityInfo,
		Details: map[string]string{
			"scan_id":        scanID,
			"new_subdomains": fmt.Sprintf("%d", summary.NewSubdomains),
			"new_live_hosts": fmt.Sprintf("%d", summary.NewLiveHosts),
			"new_urls":       fmt.Sprintf("%d", summary.NewURLs),
		},
	}
	if err := svc.notifier.Send(event); err != nil {
		svc.logger.Error("Failed to deliver completion alert", logger.Fields{"error": err, "scan_id": scanID})
	}
}
