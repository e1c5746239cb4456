package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconpipe/internal/models"
	"reconpipe/internal/notification"
	"reconpipe/pkg/pipeline"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recordingNotifier) Send(event notification.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// stateScanDAO keeps the scan row in memory and hands out copies, the way a
// database read does, so a stale write-back is observable. loadGate runs
// after each load outside the row lock.
type stateScanDAO struct {
	mu       sync.Mutex
	scan     models.Scan
	loadGate func()
}

func (d *stateScanDAO) SaveScan(scan *models.Scan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scan = *scan
	return nil
}

func (d *stateScanDAO) GetScanByUUID(string) (*models.Scan, error) {
	d.mu.Lock()
	row := d.scan
	d.mu.Unlock()
	if d.loadGate != nil {
		d.loadGate()
	}
	return &row, nil
}

func (d *stateScanDAO) ListScansWithPagination(page, limit int) ([]models.Scan, int64, error) {
	return nil, 0, nil
}

func (d *stateScanDAO) UpdateScan(scan *models.Scan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scan = *scan
	return nil
}

func (d *stateScanDAO) DeleteScan(string) error {
	return nil
}

// A live-results write that loaded the row before a progress write committed
// must not roll the stored progress back when it saves.
func TestConcurrentStatusWritesKeepProgressMonotonic(t *testing.T) {
	dao := &stateScanDAO{scan: models.Scan{UUID: "scan-1", Status: models.StatusRunning, Progress: 10}}

	loaded := make(chan struct{})
	release := make(chan struct{})
	var gateOnce sync.Once
	dao.loadGate = func() {
		gateOnce.Do(func() {
			close(loaded)
			<-release
		})
	}

	manager := newScanStatusManager(dao, testLogger())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		manager.UpdateLiveResults("scan-1", 7)
	}()
	<-loaded

	progressDone := make(chan struct{})
	go func() {
		defer wg.Done()
		manager.UpdateProgress("scan-1", 50, "probing")
		close(progressDone)
	}()

	select {
	case <-progressDone:
	case <-time.After(100 * time.Millisecond):
	}
	close(release)
	wg.Wait()

	final, err := dao.GetScanByUUID("scan-1")
	require.NoError(t, err)
	assert.Equal(t, 50, final.Progress, "stale live-results save must not clobber newer progress")
	assert.Equal(t, "probing", final.Message)
	assert.Equal(t, 7, final.LiveResults)
}

func TestNotifyCompletionReportsNewAssetCounts(t *testing.T) {
	rec := &recordingNotifier{}
	svc := &scanService{notifier: rec, logger: testLogger()}
	exec := newScanExecutor(svc)

	exec.notifyCompletion("example.com", "scan-1", &pipeline.Summary{
		NewSubdomains: 3,
		NewLiveHosts:  2,
		NewURLs:       40,
	})

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, notification.SeverityInfo, event.Severity)
	assert.Contains(t, event.Message, "example.com")
	assert.Equal(t, "3", event.Details["new_subdomains"])
	assert.Equal(t, "2", event.Details["new_live_hosts"])
	assert.Equal(t, "40", event.Details["new_urls"])
}
