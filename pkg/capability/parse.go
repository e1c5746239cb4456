package capability

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// parsePortLine parses a "host:port" line, optionally suffixed with a
// protocol ("host:port/udp"). Returns ok=false for anything malformed.
func parsePortLine(line string) (PortRecord, bool) {
	protocol := "tcp"
	if idx := strings.LastIndex(line, "/"); idx > 0 {
		protocol = strings.ToLower(line[idx+1:])
		line = line[:idx]
	}

	idx := strings.LastIndex(line, ":")
	if idx <= 0 || idx == len(line)-1 {
		return PortRecord{}, false
	}

	port, err := strconv.Atoi(line[idx+1:])
	if err != nil || port < 1 || port > 65535 {
		return PortRecord{}, false
	}

	return PortRecord{
		Host:     line[:idx],
		Port:     port,
		Protocol: protocol,
	}, true
}

// parseProbeLine parses one JSON object emitted by the web-probe tool.
func parseProbeLine(line string) (ProbeRecord, bool) {
	var rec ProbeRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return ProbeRecord{}, false
	}
	if rec.URL == "" {
		return ProbeRecord{}, false
	}
	if rec.Host == "" {
		if parsed, err := url.Parse(rec.URL); err == nil {
			rec.Host = parsed.Hostname()
		}
	}
	return rec, true
}

// parseURLLine parses one discovered URL into its host/path parts.
func parseURLLine(line string) (URLRecord, bool) {
	parsed, err := url.Parse(line)
	if err != nil || parsed.Host == "" || parsed.Scheme == "" {
		return URLRecord{}, false
	}
	return URLRecord{
		URL:    line,
		Host:   parsed.Hostname(),
		Path:   parsed.Path,
		Method: "GET",
	}, true
}

// IsScript reports whether a discovered URL points at a script resource
// that the change detector should track.
func IsScript(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".js")
}
