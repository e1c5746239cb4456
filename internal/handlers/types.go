package handlers

type ScanRequest struct {
	Domain   string `json:"domain" binding:"required"`
	ScanType string `json:"scan_type"`
	Tools    string `json:"tools"`
}

type ScanResponse struct {
	ScanID string `json:"scan_id"`
}

type StatusResponse struct {
	ScanID       string `json:"scan_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Message      string `json:"message"`
	LiveResults  int    `json:"live_results"`
	ErrorMessage string `json:"error_message,omitempty"`
}
