package models

// Scan lifecycle states. A scan never leaves a terminal state.
const (
	StatusCreated   = "created"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Supported scan types.
const (
	ScanTypeFull      = "full"
	ScanTypeSubdomain = "subdomain"
	ScanTypeProbing   = "probing"
)

// Scan is the job record for one pipeline run. It is owned exclusively by
// the job controller: created at submission, mutated only through status
// transitions, deleted only by explicit operator action.
type Scan struct {
	UUID         string `gorm:"primaryKey;type:varchar(36)" json:"uuid"`
	Domain       string `gorm:"index;not null" json:"domain"`
	ScanType     string `json:"scan_type"`
	ToolList     string `json:"tool_list"`
	Status       string `gorm:"index" json:"status"`
	Progress     int    `json:"progress"`
	Message      string `json:"message"`
	LiveResults  int    `json:"live_results"`
	ErrorMessage string `json:"error_message,omitempty"`
	StartTime    int64  `json:"start_time"`
	EndTime      int64  `json:"end_time,omitempty"`
}

// Subdomain is recorded at most once across the system's lifetime; the
// unique index on Name is the dedup serialization point.
type Subdomain struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"uniqueIndex;not null" json:"name"`
	ParentDomain string `gorm:"index" json:"parent_domain"`
	Source       string `json:"source"`
	ScanID       string `gorm:"index;type:varchar(36)" json:"scan_id"`
	DiscoveredAt int64  `gorm:"autoCreateTime" json:"discovered_at"`
}

type LiveHost struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	URL           string `gorm:"uniqueIndex;not null" json:"url"`
	Subdomain     string `gorm:"index" json:"subdomain"`
	StatusCode    int    `json:"status_code"`
	Title         string `json:"title"`
	TechStack     string `json:"tech_stack"`
	ContentLength int    `json:"content_length"`
	ScanID        string `gorm:"index;type:varchar(36)" json:"scan_id"`
	DiscoveredAt  int64  `gorm:"autoCreateTime" json:"discovered_at"`
}

// OpenPort identity is (host, port, scan): the same open port observed by a
// later scan is a distinct observation, unlike the globally-unique assets.
type OpenPort struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Host         string `gorm:"uniqueIndex:idx_host_port_scan;not null" json:"host"`
	Port         int    `gorm:"uniqueIndex:idx_host_port_scan" json:"port"`
	Protocol     string `gorm:"default:tcp" json:"protocol"`
	ScanID       string `gorm:"uniqueIndex:idx_host_port_scan;type:varchar(36)" json:"scan_id"`
	DiscoveredAt int64  `gorm:"autoCreateTime" json:"discovered_at"`
}

type URL struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	URL          string `gorm:"uniqueIndex;not null" json:"url"`
	Host         string `gorm:"index" json:"host"`
	Path         string `json:"path"`
	Method       string `gorm:"default:GET" json:"method"`
	StatusCode   int    `json:"status_code"`
	ScanID       string `gorm:"index;type:varchar(36)" json:"scan_id"`
	DiscoveredAt int64  `gorm:"autoCreateTime" json:"discovered_at"`
}

// JSAsset is mutated in place when a later run observes a different content
// hash; the Changed flag is sticky until explicitly cleared.
type JSAsset struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	URL          string `gorm:"uniqueIndex;not null" json:"url"`
	Hash         string `json:"hash"`
	Size         int    `json:"size"`
	Changed      bool   `gorm:"default:false" json:"changed"`
	LastChecked  int64  `json:"last_checked"`
	ScanID       string `gorm:"index;type:varchar(36)" json:"scan_id"`
	DiscoveredAt int64  `gorm:"autoCreateTime" json:"discovered_at"`
}

// IsTerminal reports whether the scan reached a final state.
func (s *Scan) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}
