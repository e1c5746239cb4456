package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reconpipe/internal/models"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/logger"
	"reconpipe/pkg/pipeline"
)

type MockScanDAO struct {
	mock.Mock
}

func (m *MockScanDAO) SaveScan(scan *models.Scan) error {
	args := m.Called(scan)
	return args.Error(0)
}

func (m *MockScanDAO) GetScanByUUID(uuid string) (*models.Scan, error) {
	args := m.Called(uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockScanDAO) ListScansWithPagination(page, limit int) ([]models.Scan, int64, error) {
	args := m.Called(page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Scan), args.Get(1).(int64), args.Error(2)
}

func (m *MockScanDAO) UpdateScan(scan *models.Scan) error {
	args := m.Called(scan)
	return args.Error(0)
}

func (m *MockScanDAO) DeleteScan(uuid string) error {
	args := m.Called(uuid)
	return args.Error(0)
}

func testLogger() *logger.Logger {
	return logger.NewLogger(logrus.ErrorLevel)
}

func newTestStatusManager(dao *MockScanDAO) *ScanStatusManager {
	return newScanStatusManager(dao, testLogger())
}

func TestUpdateProgressNeverRegresses(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusRunning, Progress: 50}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)
	dao.On("UpdateScan", mock.AnythingOfType("*models.Scan")).Return(nil)

	manager := newTestStatusManager(dao)

	manager.UpdateProgress("scan-1", 30, "going backwards")
	assert.Equal(t, 50, scan.Progress, "a lower percentage must be dropped")
	assert.NotEqual(t, "going backwards", scan.Message)

	manager.UpdateProgress("scan-1", 75, "probing")
	assert.Equal(t, 75, scan.Progress)
	assert.Equal(t, "probing", scan.Message)

	dao.AssertNumberOfCalls(t, "UpdateScan", 1)
}

func TestUpdateProgressIgnoresTerminalScan(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusCompleted, Progress: 100}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)

	manager := newTestStatusManager(dao)
	manager.UpdateProgress("scan-1", 100, "late update")

	dao.AssertNotCalled(t, "UpdateScan", mock.Anything)
}

func TestMarkCompletedSetsTerminalState(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusRunning, Progress: 90}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)
	dao.On("UpdateScan", mock.AnythingOfType("*models.Scan")).Return(nil)

	manager := newTestStatusManager(dao)
	err := manager.MarkCompleted("scan-1", &pipeline.Summary{
		NewSubdomains: 5,
		NewLiveHosts:  2,
		NewURLs:       40,
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, scan.Status)
	assert.Equal(t, 100, scan.Progress)
	assert.Contains(t, scan.Message, "5 new subdomains")
	assert.NotZero(t, scan.EndTime)
}

func TestMarkCompletedNotesPartialFailures(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusRunning}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)
	dao.On("UpdateScan", mock.AnythingOfType("*models.Scan")).Return(nil)

	manager := newTestStatusManager(dao)
	err := manager.MarkCompleted("scan-1", &pipeline.Summary{
		PartialFailures: []string{"probe: batch 1 (50 targets) failed: tool crashed"},
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, scan.Status, "partial failure still completes")
	assert.Contains(t, scan.Message, "1 partial failures")
}

func TestTerminalStateIsFinal(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusFailed, ErrorMessage: "Cancelled by user"}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)

	manager := newTestStatusManager(dao)

	err := manager.MarkCompleted("scan-1", &pipeline.Summary{})
	assert.ErrorIs(t, err, pkgerrors.ErrScanTerminal)
	assert.Equal(t, models.StatusFailed, scan.Status)

	manager.MarkFailedWithReason("scan-1", "second failure")
	assert.Equal(t, "Cancelled by user", scan.ErrorMessage, "failure reason must not be overwritten")

	dao.AssertNotCalled(t, "UpdateScan", mock.Anything)
}

func TestMarkFailedSetsReason(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusRunning, Progress: 40}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)
	dao.On("UpdateScan", mock.AnythingOfType("*models.Scan")).Return(nil)

	manager := newTestStatusManager(dao)
	manager.MarkFailedWithReason("scan-1", "Cancelled by user")

	assert.Equal(t, models.StatusFailed, scan.Status)
	assert.Equal(t, "Cancelled by user", scan.ErrorMessage)
	assert.NotZero(t, scan.EndTime)
}

func TestMarkRunningFromCreated(t *testing.T) {
	scan := &models.Scan{UUID: "scan-1", Status: models.StatusCreated}

	dao := new(MockScanDAO)
	dao.On("GetScanByUUID", "scan-1").Return(scan, nil)
	dao.On("UpdateScan", mock.AnythingOfType("*models.Scan")).Return(nil)

	manager := newTestStatusManager(dao)
	require.NoError(t, manager.MarkRunning("scan-1"))
	assert.Equal(t, models.StatusRunning, scan.Status)
}
