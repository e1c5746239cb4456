package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"reconpipe/internal/models"
	"reconpipe/internal/services"
	pkgerrors "reconpipe/pkg/errors"
)

type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) StartScan(scan *models.Scan) (string, error) {
	args := m.Called(scan)
	return args.String(0), args.Error(1)
}

func (m *MockScanService) GetScanByUUID(id string) (*models.Scan, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Scan), args.Error(1)
}

func (m *MockScanService) ListScans(page, limit int) ([]models.Scan, int64, error) {
	args := m.Called(page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Scan), args.Get(1).(int64), args.Error(2)
}

func (m *MockScanService) CancelScan(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockScanService) DeleteScan(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockScanService) GetAssets(id string) (*services.AssetReport, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AssetReport), args.Error(1)
}

func TestStartScan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
		validateMock   func(*testing.T, *MockScanService)
	}{
		{
			name:        "Valid Request - Success",
			requestBody: `{"scan_type":"full","domain":"example.com"}`,
			setupMock: func(m *MockScanService) {
				m.On("StartScan", mock.MatchedBy(func(scan *models.Scan) bool {
					return scan.ScanType == models.ScanTypeFull &&
						scan.Domain == "example.com"
				})).Return("123e4567-e89b-12d3-a456-426614174000", nil)
			},
			expectedStatus: 202,
			expectedBody:   `{"scan_id":"123e4567-e89b-12d3-a456-426614174000"}`,
			validateMock: func(t *testing.T, m *MockScanService) {
				m.AssertNumberOfCalls(t, "StartScan", 1)
			},
		},
		{
			name:        "Missing Scan Type Defaults To Full",
			requestBody: `{"domain":"example.com"}`,
			setupMock: func(m *MockScanService) {
				m.On("StartScan", mock.MatchedBy(func(scan *models.Scan) bool {
					return scan.ScanType == models.ScanTypeFull
				})).Return("id-1", nil)
			},
			expectedStatus: 202,
			expectedBody:   `{"scan_id":"id-1"}`,
		},
		{
			name:           "Invalid JSON - Malformed",
			requestBody:    `{"scan_type":"full","domain":}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid request payload"}`,
			validateMock: func(t *testing.T, m *MockScanService) {
				m.AssertNumberOfCalls(t, "StartScan", 0)
			},
		},
		{
			name:           "Missing Required Field - domain",
			requestBody:    `{"scan_type":"full"}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Invalid request payload"}`,
		},
		{
			name:           "Unknown Scan Type",
			requestBody:    `{"scan_type":"nuclear","domain":"example.com"}`,
			setupMock:      func(m *MockScanService) {},
			expectedStatus: 400,
			expectedBody:   `{"error":"Unknown scan type"}`,
		},
		{
			name:        "Service Error - Internal Error",
			requestBody: `{"scan_type":"full","domain":"example.com"}`,
			setupMock: func(m *MockScanService) {
				m.On("StartScan", mock.AnythingOfType("*models.Scan")).
					Return("", errors.New("database connection failed"))
			},
			expectedStatus: 500,
			expectedBody:   `{"error":"Failed to start scan"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)

			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)

			router := gin.New()
			router.POST("/api/scans", handler.StartScan)

			req, err := http.NewRequest("POST", "/api/scans", strings.NewReader(tt.requestBody))
			assert.NoError(t, err, "Failed to create request")
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code,
				"Expected status %d, got %d. Response: %s",
				tt.expectedStatus, w.Code, w.Body.String())

			assert.JSONEq(t, tt.expectedBody, w.Body.String(),
				"Response body doesn't match expected JSON")

			if tt.validateMock != nil {
				tt.validateMock(t, mockService)
			}

			mockService.AssertExpectations(t)
		})
	}
}

func TestGetScanStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		scanID         string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "Running Scan",
			scanID: "123e4567-e89b-12d3-a456-426614174000",
			setupMock: func(m *MockScanService) {
				scan := &models.Scan{
					UUID:     "123e4567-e89b-12d3-a456-426614174000",
					Domain:   "example.com",
					ScanType: models.ScanTypeFull,
					Status:   models.StatusRunning,
					Progress: 50,
					Message:  "Probing new assets for web servers...",
				}
				m.On("GetScanByUUID", "123e4567-e89b-12d3-a456-426614174000").
					Return(scan, nil)
			},
			expectedStatus: 200,
			expectedBody: `{
				"scan_id":"123e4567-e89b-12d3-a456-426614174000",
				"status":"running",
				"progress":50,
				"message":"Probing new assets for web servers...",
				"live_results":0
			}`,
		},
		{
			name:   "Scan Not Found",
			scanID: "non-existent-id",
			setupMock: func(m *MockScanService) {
				m.On("GetScanByUUID", "non-existent-id").
					Return(nil, pkgerrors.ErrScanNotFound)
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"Scan not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)
			router := gin.New()
			router.GET("/api/scans/:id/status", handler.GetScanStatus)

			url := fmt.Sprintf("/api/scans/%s/status", tt.scanID)
			req, _ := http.NewRequest("GET", url, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

func TestCancelScan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		scanID         string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "Running Scan Cancelled",
			scanID: "uuid-123",
			setupMock: func(m *MockScanService) {
				m.On("CancelScan", "uuid-123").Return(nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"scan_id":"uuid-123","message":"Cancellation requested"}`,
		},
		{
			name:   "Scan Not Found",
			scanID: "missing-id",
			setupMock: func(m *MockScanService) {
				m.On("CancelScan", "missing-id").Return(pkgerrors.ErrScanNotFound)
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"Scan not found"}`,
		},
		{
			name:   "Scan Already Finished",
			scanID: "uuid-done",
			setupMock: func(m *MockScanService) {
				m.On("CancelScan", "uuid-done").Return(pkgerrors.ErrScanTerminal)
			},
			expectedStatus: 409,
			expectedBody:   `{"error":"Scan already finished"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)
			router := gin.New()
			router.POST("/api/scans/:id/cancel", handler.CancelScan)

			url := fmt.Sprintf("/api/scans/%s/cancel", tt.scanID)
			req, _ := http.NewRequest("POST", url, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

func TestDeleteScan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		scanID         string
		setupMock      func(*MockScanService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "Successful Deletion",
			scanID: "uuid-123",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "uuid-123").Return(nil)
			},
			expectedStatus: 200,
			expectedBody:   `{"scan_id":"uuid-123","message":"Scan deleted"}`,
		},
		{
			name:   "Scan Not Found",
			scanID: "missing-id",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "missing-id").Return(pkgerrors.ErrScanNotFound)
			},
			expectedStatus: 404,
			expectedBody:   `{"error":"Scan not found"}`,
		},
		{
			name:   "Scan Still Running",
			scanID: "uuid-running",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "uuid-running").Return(pkgerrors.ErrScanTerminal)
			},
			expectedStatus: 409,
			expectedBody:   `{"error":"Scan still running"}`,
		},
		{
			name:   "Service Error",
			scanID: "uuid-987",
			setupMock: func(m *MockScanService) {
				m.On("DeleteScan", "uuid-987").Return(errors.New("db error"))
			},
			expectedStatus: 500,
			expectedBody:   `{"error":"Failed to delete scan"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockScanService)
			tt.setupMock(mockService)

			handler := NewScanHandler(mockService)
			router := gin.New()
			router.DELETE("/api/scans/:id", handler.DeleteScan)

			url := fmt.Sprintf("/api/scans/%s", tt.scanID)
			req, _ := http.NewRequest("DELETE", url, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

func TestGetScanAssets(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockScanService)
	mockService.On("GetAssets", "uuid-123").Return(&services.AssetReport{
		Subdomains: []models.Subdomain{{Name: "api.example.com"}},
	}, nil)

	handler := NewScanHandler(mockService)
	router := gin.New()
	router.GET("/api/scans/:id/assets", handler.GetScanAssets)

	req, _ := http.NewRequest("GET", "/api/scans/uuid-123/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "api.example.com")
	mockService.AssertExpectations(t)
}
