// Package executor is the job-submission abstraction shared by the
// dispatcher and the connector's listener fan-out, per the "task executor"
// design note. The distributor and resender background loops do not use
// it; they run on goroutines of their own.
package executor

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Executor runs jobs, possibly concurrently, possibly deferred. Submit must
// not block the caller beyond acquiring capacity.
type Executor interface {
	// Submit schedules job for execution. It may run concurrently with
	// other submitted jobs.
	Submit(job func())

	// Close waits for all submitted jobs to finish and releases
	// resources. Submit after Close is a no-op.
	Close()
}

// pool is a bounded worker pool: at most n jobs run concurrently, the rest
// queue. Grounded on the semaphore-bounded concurrency pattern used for
// admission control in the teacher's memorylimiterextension and
// concurrentbatchprocessor.
type pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewPool returns an Executor that admits at most n concurrent jobs.
func NewPool(n int) Executor {
	if n < 1 {
		n = 1
	}
	return &pool{sem: semaphore.NewWeighted(int64(n))}
}

func (p *pool) Submit(job func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		p.wg.Done()
		return
	}
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		job()
	}()
}

func (p *pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

// inline runs every job synchronously on the caller's goroutine. Grounds
// the "same-thread" executor kind used for tests (spec.md §5).
type inline struct{}

// Inline returns an Executor that runs jobs synchronously, for tests and
// single-threaded deployments.
func Inline() Executor { return inline{} }

func (inline) Submit(job func()) { job() }
func (inline) Close()            {}
