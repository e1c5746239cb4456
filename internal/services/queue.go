package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"reconpipe/pkg/logger"
)

// ScanQueue bounds concurrent pipeline runs with a simple semaphore.
// Submissions past the limit block in order until a slot frees up.
type ScanQueue struct {
	semaphore chan struct{}
	running   int
	queued    int
	mu        sync.Mutex
	logger    *logger.Logger
}

var (
	globalQueue *ScanQueue
	queueOnce   sync.Once
)

// InitGlobalQueue initializes the global scan queue with max concurrency
func InitGlobalQueue(maxConcurrent int) {
	queueOnce.Do(func() {
		if maxConcurrent < 1 {
			maxConcurrent = 1
		}
		globalQueue = &ScanQueue{
			semaphore: make(chan struct{}, maxConcurrent),
			logger:    logger.NewLogger(logrus.InfoLevel),
		}
		globalQueue.logger.Info("Scan queue initialized", logger.Fields{
			"max_concurrent": maxConcurrent,
		})
	})
}

// GetGlobalQueue returns the global queue instance (initializes with default if needed)
func GetGlobalQueue() *ScanQueue {
	if globalQueue == nil {
		InitGlobalQueue(1)
	}
	return globalQueue
}

// ExecuteWithQueue blocks until a slot is available, then runs fn.
func (q *ScanQueue) ExecuteWithQueue(fn func() error) error {
	q.mu.Lock()
	q.queued++
	currentQueued := q.queued
	currentRunning := q.running
	q.mu.Unlock()

	q.logger.Info("Scan added to queue", logger.Fields{
		"queued":  currentQueued,
		"running": currentRunning,
		"slots":   cap(q.semaphore),
	})

	q.semaphore <- struct{}{}

	q.mu.Lock()
	q.queued--
	q.running++
	q.mu.Unlock()

	defer func() {
		<-q.semaphore
		q.mu.Lock()
		q.running--
		q.mu.Unlock()
	}()

	return fn()
}

// GetStatus returns current queue status
func (q *ScanQueue) GetStatus() (running, queued, maxConcurrent int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running, q.queued, cap(q.semaphore)
}
