package runner

import "context"

// CommandRunner executes one external tool invocation. Implementations must
// honor context cancellation by terminating the underlying process.
type CommandRunner interface {
	Run(ctx context.Context, command string, args []string) error
	LookPath(command string) error
}
