// Package testutil provides testing utilities for the reconpipe application
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "reconpipe/pkg/errors"
)

// MockCommandRunner implements runner.CommandRunner for testing. Responses
// are keyed by command name only: adapter invocations carry randomized
// scratch file paths in their args.
type MockCommandRunner struct {
	mu          sync.RWMutex
	commands    []ExecutedCommand
	responses   map[string]CommandResponse
	unavailable map[string]bool
}

type ExecutedCommand struct {
	Command string
	Args    []string
	Context context.Context
}

// CommandResponse scripts one command's behavior. OutputLines are written to
// the file at args[OutputIndex] before Err is returned, mimicking a recon
// tool that writes results to an output flag.
type CommandResponse struct {
	Err         error
	Delay       time.Duration
	OutputIndex int
	OutputLines []string
}

func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		responses:   make(map[string]CommandResponse),
		unavailable: make(map[string]bool),
	}
}

func (m *MockCommandRunner) Run(ctx context.Context, command string, args []string) error {
	m.mu.Lock()
	m.commands = append(m.commands, ExecutedCommand{
		Command: command,
		Args:    args,
		Context: ctx,
	})
	response, exists := m.responses[command]
	m.mu.Unlock()

	if !exists {
		return nil
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if len(response.OutputLines) > 0 && response.OutputIndex < len(args) {
		content := strings.Join(response.OutputLines, "\n") + "\n"
		if err := os.WriteFile(args[response.OutputIndex], []byte(content), 0o644); err != nil {
			return err
		}
	}

	return response.Err
}

func (m *MockCommandRunner) LookPath(command string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable[command] {
		return pkgerrors.ErrCapabilityUnavailable
	}
	return nil
}

func (m *MockCommandRunner) SetResponse(command string, response CommandResponse) {
	m.mu.Lock()
	m.responses[command] = response
	m.mu.Unlock()
}

// SetUnavailable makes LookPath fail for the command, simulating a binary
// missing from PATH.
func (m *MockCommandRunner) SetUnavailable(command string) {
	m.mu.Lock()
	m.unavailable[command] = true
	m.mu.Unlock()
}

func (m *MockCommandRunner) GetExecutedCommands() []ExecutedCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()

	commands := make([]ExecutedCommand, len(m.commands))
	copy(commands, m.commands)
	return commands
}

func (m *MockCommandRunner) Reset() {
	m.mu.Lock()
	m.commands = nil
	m.responses = make(map[string]CommandResponse)
	m.unavailable = make(map[string]bool)
	m.mu.Unlock()
}

// CreateTestFile creates a test file with the given content
func CreateTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	filePath := filepath.Join(dir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", filePath, err)
	}

	return filePath
}

// WithTimeout creates a context with timeout for tests
func WithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}
