package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ScanWorkspace returns the per-scan working directory under baseDir, named
// after the target domain and scan id, creating it if needed.
func ScanWorkspace(baseDir, domain, scanID string) (string, error) {
	dir := filepath.Join(baseDir, fmt.Sprintf("%s_%s", SanitizeForFilesystem(domain), scanID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return dir, nil
}

// SanitizeForFilesystem removes or replaces characters that are invalid in filenames
func SanitizeForFilesystem(input string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)

	sanitized := replacer.Replace(input)

	sanitized = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, sanitized)

	if sanitized == "" {
		sanitized = "unknown"
	}

	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}

	return sanitized
}
