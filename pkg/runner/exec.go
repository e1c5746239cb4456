package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"reconpipe/pkg/logger"
)

// ExecRunner runs external tools through os/exec. Cancelling the context
// kills the in-flight process, which is how the job controller terminates
// already-started batches on cancellation.
type ExecRunner struct {
	logger *logger.Logger
}

// NewExecRunner creates a new ExecRunner instance
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		logger: logger.NewLogger(logrus.InfoLevel),
	}
}

func (r *ExecRunner) Run(ctx context.Context, command string, args []string) error {
	if err := validateArgs(args); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", command, err)
	}

	r.logger.WithFields(logger.Fields{
		"command": command,
		"args":    strings.Join(args, " "),
	}).Debug("Executing command")

	cmd := exec.CommandContext(ctx, command, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if stderr.Len() > 0 {
			return fmt.Errorf("execution failed: %w\nstderr: %s", err, stderr.String())
		}
		return fmt.Errorf("execution failed: %w", err)
	}

	return nil
}

// LookPath reports whether the command binary is installed and resolvable.
func (r *ExecRunner) LookPath(command string) error {
	_, err := exec.LookPath(command)
	return err
}

// validateArgs rejects shell metacharacters that could enable command
// injection when tool flags are assembled from configuration.
func validateArgs(args []string) error {
	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "\n", "\r", "<", ">"}
	for i, arg := range args {
		for _, char := range dangerous {
			if strings.Contains(arg, char) {
				return fmt.Errorf("argument %d contains dangerous character %q", i, char)
			}
		}
	}
	return nil
}
