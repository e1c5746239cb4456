package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"reconpipe/pkg/logger"
)

// ScanMonitor tails the tool output files in a scan workspace and feeds a
// live found-this-run counter while the pipeline works, so a status poll
// shows movement between stage boundaries.
type ScanMonitor struct {
	statusManager *ScanStatusManager
	logger        *logger.Logger
}

func newScanMonitor(statusManager *ScanStatusManager, log *logger.Logger) *ScanMonitor {
	return &ScanMonitor{statusManager: statusManager, logger: log}
}

// Watch observes the workspace directory until ctx is cancelled. It closes
// done on exit. Failures disable monitoring but never the scan itself.
func (m *ScanMonitor) Watch(ctx context.Context, scanID, dir string, done chan struct{}) {
	defer close(done)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Error("Failed to create workspace watcher", logger.Fields{"error": err, "scan_id": scanID})
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		m.logger.Error("Failed to watch scan workspace", logger.Fields{"error": err, "dir": dir})
		return
	}

	lastSizes := make(map[string]int64)
	pending := make(map[string]bool)
	total := 0

	// Throttle database writes; bursts of tool output collapse into one
	// update per tick.
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending[event.Name] = true
			}

		case <-ticker.C:
			if len(pending) == 0 {
				continue
			}
			for path := range pending {
				total += m.countNewLines(path, lastSizes)
				delete(pending, path)
			}
			m.statusManager.UpdateLiveResults(scanID, total)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("Workspace watcher error", logger.Fields{"error": err, "dir": dir})

		case <-ctx.Done():
			return
		}
	}
}

// countNewLines reads only the bytes appended since the last pass and counts
// non-empty lines. Removed scratch files simply stop producing deltas.
func (m *ScanMonitor) countNewLines(path string, lastSizes map[string]int64) int {
	file, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil || stat.IsDir() {
		return 0
	}

	last := lastSizes[path]
	if stat.Size() <= last {
		return 0
	}

	if _, err := file.Seek(last, io.SeekStart); err != nil {
		m.logger.Error("Failed to seek output file", logger.Fields{"error": err, "file": filepath.Base(path)})
		return 0
	}

	chunk := make([]byte, stat.Size()-last)
	if _, err := io.ReadFull(file, chunk); err != nil {
		return 0
	}
	lastSizes[path] = stat.Size()

	count := 0
	for _, line := range strings.Split(string(chunk), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
