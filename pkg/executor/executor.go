// Package executor fans a large target set out over a bounded worker pool
// in contiguous batches and merges the results into an identity-keyed set.
// Batch completion order is non-deterministic; the merge is an
// order-independent union, so parallel and sequential runs produce the same
// deduplicated output.
package executor

import (
	"context"
	"sync"

	"github.com/remeh/sizedwaitgroup"

	pkgerrors "reconpipe/pkg/errors"
)

// Options bounds one fan-out run.
type Options struct {
	BatchSize int
	Workers   int
}

// Result carries the deduplicated union plus the isolated failures. Skipped
// counts batches never started because the context was cancelled first.
type Result[T any] struct {
	Records  []T
	Failures []*pkgerrors.BatchFailure
	Skipped  int
}

// Invoke runs the capability adapter over one batch of targets.
type Invoke[T any] func(ctx context.Context, batch []string) ([]T, error)

// RunParallel splits targets into batches of at most opts.BatchSize and runs
// invoke across a pool of opts.Workers slots. One failing batch contributes
// nothing but never cancels its siblings or fails the run. Small inputs take
// the direct sequential path with identical output semantics.
func RunParallel[T any](ctx context.Context, targets []string, opts Options, invoke Invoke[T], identity func(T) string) Result[T] {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	batches := splitBatches(targets, opts.BatchSize)
	if len(batches) == 0 {
		return Result[T]{}
	}

	merger := newMerger[T](identity)

	if len(batches) == 1 || opts.Workers == 1 {
		return runSequential(ctx, batches, invoke, merger)
	}
	return runConcurrent(ctx, batches, opts.Workers, invoke, merger)
}

func runSequential[T any](ctx context.Context, batches [][]string, invoke Invoke[T], merger *merger[T]) Result[T] {
	result := Result[T]{}
	for i, batch := range batches {
		if ctx.Err() != nil {
			result.Skipped = len(batches) - i
			break
		}
		records, err := invoke(ctx, batch)
		if err != nil {
			result.Failures = append(result.Failures, &pkgerrors.BatchFailure{Batch: i, Size: len(batch), Err: err})
			continue
		}
		merger.add(records)
	}
	result.Records = merger.records()
	return result
}

func runConcurrent[T any](ctx context.Context, batches [][]string, workers int, invoke Invoke[T], merger *merger[T]) Result[T] {
	var (
		mu       sync.Mutex
		failures []*pkgerrors.BatchFailure
		skipped  int
	)

	swg := sizedwaitgroup.New(workers)
	for i, batch := range batches {
		// AddWithContext blocks for a free slot; once cancellation is
		// observed no further batch starts.
		if err := swg.AddWithContext(ctx); err != nil {
			skipped = len(batches) - i
			break
		}

		go func(idx int, targets []string) {
			defer swg.Done()
			records, err := invoke(ctx, targets)
			if err != nil {
				mu.Lock()
				failures = append(failures, &pkgerrors.BatchFailure{Batch: idx, Size: len(targets), Err: err})
				mu.Unlock()
				return
			}
			merger.add(records)
		}(i, batch)
	}
	swg.Wait()

	return Result[T]{
		Records:  merger.records(),
		Failures: failures,
		Skipped:  skipped,
	}
}

func splitBatches(targets []string, batchSize int) [][]string {
	var batches [][]string
	for start := 0; start < len(targets); start += batchSize {
		end := start + batchSize
		if end > len(targets) {
			end = len(targets)
		}
		batches = append(batches, targets[start:end])
	}
	return batches
}

// merger is the shared dedup set; add is safe for concurrent batches and
// commutative, so completion order never changes the outcome.
type merger[T any] struct {
	mu       sync.Mutex
	identity func(T) string
	seen     map[string]struct{}
	merged   []T
}

func newMerger[T any](identity func(T) string) *merger[T] {
	return &merger[T]{
		identity: identity,
		seen:     make(map[string]struct{}),
	}
}

func (m *merger[T]) add(records []T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		key := m.identity(rec)
		if _, dup := m.seen[key]; dup {
			continue
		}
		m.seen[key] = struct{}{}
		m.merged = append(m.merged, rec)
	}
}

func (m *merger[T]) records() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merged
}
