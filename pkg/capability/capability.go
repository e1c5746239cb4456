// Package capability wraps the external discovery and probing tools behind a
// closed set of typed adapters. Each capability takes a batch of targets and
// yields its own record shape; tool binaries, flags and output formats stay
// behind this boundary.
package capability

import "strconv"

// Capability identifies one external discovery/probing function.
type Capability string

const (
	SubdomainDiscovery Capability = "subdomain-discovery"
	PortScan           Capability = "port-scan"
	WebProbe           Capability = "web-probe"
	ContentDiscovery   Capability = "content-discovery"
)

// SubdomainRecord is one discovered subdomain with the tool that found it.
type SubdomainRecord struct {
	Name   string
	Source string
}

// PortRecord is one open port observation.
type PortRecord struct {
	Host     string
	Port     int
	Protocol string
}

// ProbeRecord is one live web server confirmed by the web-probe capability.
// The web-probe tool emits one JSON object per output line.
type ProbeRecord struct {
	URL           string   `json:"url"`
	Host          string   `json:"host"`
	StatusCode    int      `json:"status_code"`
	Title         string   `json:"title"`
	TechStack     []string `json:"tech"`
	ContentLength int      `json:"content_length"`
}

// URLRecord is one historical/content-discovery URL.
type URLRecord struct {
	URL        string
	Host       string
	Path       string
	Method     string
	StatusCode int
}

// Identity keys used for cross-batch deduplication.

func (r SubdomainRecord) Identity() string { return r.Name }
func (r ProbeRecord) Identity() string     { return r.URL }
func (r URLRecord) Identity() string       { return r.URL }

func (r PortRecord) Identity() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}
