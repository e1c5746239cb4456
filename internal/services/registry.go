package services

import (
	"context"
	"sync"
)

// jobRegistry tracks the cancel function of every in-flight scan so a
// cancel request by id can reach the running pipeline.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]context.CancelFunc
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]context.CancelFunc)}
}

func (r *jobRegistry) register(scanID string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[scanID] = cancel
}

func (r *jobRegistry) remove(scanID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, scanID)
}

// cancel fires the job's cancel function. It reports whether the job was
// still registered.
func (r *jobRegistry) cancel(scanID string) bool {
	r.mu.Lock()
	cancel, ok := r.jobs[scanID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}
