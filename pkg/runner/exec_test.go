package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArgsRejectsShellMetacharacters(t *testing.T) {
	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"Plain Flags", []string{"-d", "example.com", "-o", "/tmp/out.txt"}, true},
		{"Command Chaining", []string{"example.com;rm -rf /"}, false},
		{"Pipe", []string{"example.com|cat"}, false},
		{"Subshell", []string{"$(whoami)"}, false},
		{"Backtick", []string{"`id`"}, false},
		{"Redirect", []string{"> /etc/passwd"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateArgs(tt.args)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRunRejectsInvalidArgs(t *testing.T) {
	runner := NewExecRunner()
	err := runner.Run(context.Background(), "echo", []string{"hello;world"})
	require.Error(t, err)
}

func TestRunReturnsContextErrorWhenCancelled(t *testing.T) {
	runner := NewExecRunner()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx, "sleep", []string{"5"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookPathMissingBinary(t *testing.T) {
	runner := NewExecRunner()
	assert.Error(t, runner.LookPath("definitely-not-a-real-binary-xyz"))
}
