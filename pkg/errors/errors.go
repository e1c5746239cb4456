package errors

import (
	"errors"
	"fmt"
)

var (
	ErrCapabilityUnavailable = errors.New("capability binary not installed")
	ErrCapabilityTimeout     = errors.New("capability exceeded execution budget")
	ErrScanCancelled         = errors.New("scan cancelled by caller")
	ErrScanNotFound          = errors.New("scan not found")
	ErrScanTerminal          = errors.New("scan already in a terminal state")
	ErrInvalidConfig         = errors.New("invalid configuration")
)

// CapabilityError wraps a failure of one external capability invocation.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func NewCapabilityError(capability string, err error) *CapabilityError {
	return &CapabilityError{
		Capability: capability,
		Err:        err,
	}
}

// BatchFailure records one failed batch inside a fan-out run. The failure is
// isolated: sibling batches keep running and the stage still completes.
type BatchFailure struct {
	Batch int
	Size  int
	Err   error
}

func (f *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (%d targets) failed: %v", f.Batch, f.Size, f.Err)
}

func (f *BatchFailure) Unwrap() error {
	return f.Err
}

// StageError marks an error that escaped a pipeline stage entirely, such as
// the asset store being unreachable. It is the only class of error that
// drives a scan to the Failed state.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
