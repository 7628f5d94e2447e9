package utils

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WorkerPool runs jobs on a bounded number of goroutines and spaces job
// starts by at least the configured interval.
type WorkerPool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
	limiter   *rate.Limiter
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
// A rateLimitMs of zero disables spacing.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	limit := rate.Inf
	if rateLimitMs > 0 {
		limit = rate.Every(time.Duration(rateLimitMs) * time.Millisecond)
	}
	return &WorkerPool{
		semaphore: make(chan struct{}, maxWorkers),
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Submit enqueues a job for execution in the pool.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		_ = wp.limiter.Wait(context.Background())
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Set is a thread-safe string set.
type Set struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *Set) Add(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains returns true if the key is present.
func (s *Set) Contains(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[key]
	return exists
}

// Size returns the number of unique keys tracked.
func (s *Set) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
