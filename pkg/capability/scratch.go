package capability

import (
	"fmt"
	"os"
	"strings"

	"reconpipe/pkg/logger"
)

// scratch owns the transient files used to interop with an external
// process. Acquisition is scoped: create through the scratch, defer Close,
// and every file is removed on all exit paths, success or failure.
type scratch struct {
	files []string
}

func newScratch() *scratch {
	return &scratch{}
}

// tempFile creates an empty temp file under dir and tracks it for removal.
func (s *scratch) tempFile(dir, pattern string) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	s.files = append(s.files, path)
	return path, nil
}

// writeLines creates a tracked temp file holding one target per line, the
// list format every supported tool consumes.
func (s *scratch) writeLines(dir, pattern string, lines []string) (string, error) {
	path, err := s.tempFile(dir, pattern)
	if err != nil {
		return "", err
	}
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write scratch file %s: %w", path, err)
	}
	return path, nil
}

func (s *scratch) Close() {
	for _, path := range s.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.WithFields(logger.Fields{"file": path, "error": err}).Warn("Failed to remove scratch file")
		}
	}
	s.files = nil
}
