package answer

import (
	"fmt"
	"sync"
	"time"

	"github.com/beeeon/gateway/model"
)

// AnswerQueue is the event-driven collection an Answer is born into and
// dies with. Waiters block on Wait until at least one owned Answer goes
// dirty, or the timeout elapses.
type AnswerQueue struct {
	mu       sync.Mutex
	answers  []*Answer
	disposed bool

	// signal is closed and replaced on every notifyUpdated, the
	// idiomatic Go rendition of Poco::Event's set/reset pair: waiters
	// select on it instead of blocking on a condition variable that
	// cannot be combined with a timeout.
	signal chan struct{}
}

// NewAnswerQueue returns an empty, accepting AnswerQueue.
func NewAnswerQueue() *AnswerQueue {
	return &AnswerQueue{signal: make(chan struct{})}
}

// NewAnswer creates and registers a new Answer, or fails with
// ErrIllegalState if the queue has been disposed.
func (q *AnswerQueue) NewAnswer() (*Answer, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.disposed {
		return nil, fmt.Errorf("%w: answer queue is disposed", model.ErrIllegalState)
	}

	a := &Answer{queue: q}
	q.answers = append(q.answers, a)
	return a, nil
}

// Remove drops answer from the queue without affecting its Results.
func (q *AnswerQueue) Remove(answer *Answer) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, a := range q.answers {
		if a == answer {
			q.answers = append(q.answers[:i], q.answers[i+1:]...)
			return
		}
	}
}

// Size returns the number of currently owned answers.
func (q *AnswerQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.answers)
}

// notifyUpdated wakes every current waiter. Called by an Answer when one
// of its Results changes.
func (q *AnswerQueue) notifyUpdated() {
	q.mu.Lock()
	close(q.signal)
	q.signal = make(chan struct{})
	q.mu.Unlock()
}

// Wait blocks for at least one owned Answer to become dirty, filling
// dirtyList with every dirty Answer found (clearing their dirty flags),
// and returns whether any were found.
//
// Timeout semantics: 0 polls without blocking; negative blocks
// unboundedly; positive bounds the wait. Spurious wake-ups are
// transparent to the caller: the dirty list is rechecked after every
// wake before deciding whether to keep waiting.
func (q *AnswerQueue) Wait(timeout time.Duration, dirtyList *[]*Answer) bool {
	var deadline time.Time
	bounded := timeout > 0
	if bounded {
		deadline = time.Now().Add(timeout)
	}

	for {
		q.mu.Lock()
		ch := q.signal
		q.mu.Unlock()

		if found := q.listDirty(dirtyList); found {
			return true
		}

		switch {
		case timeout == 0:
			return false
		case timeout < 0:
			<-ch
		default:
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false
			}
			select {
			case <-ch:
			case <-time.After(remaining):
				return false
			}
		}
	}
}

func (q *AnswerQueue) listDirty(out *[]*Answer) bool {
	q.mu.Lock()
	answers := make([]*Answer, len(q.answers))
	copy(answers, q.answers)
	q.mu.Unlock()

	found := false
	for _, a := range answers {
		if a.clearDirty() {
			*out = append(*out, a)
			found = true
		}
	}
	return found
}

// Dispose marks the queue as no longer accepting new Answers and forces
// every owned Answer's outstanding work to FAILED, then drops them.
// Idempotent: calling it again is a no-op.
func (q *AnswerQueue) Dispose() {
	q.mu.Lock()
	if q.disposed {
		q.mu.Unlock()
		return
	}
	q.disposed = true
	answers := q.answers
	q.answers = nil
	q.mu.Unlock()

	for _, a := range answers {
		a.forceComplete()
	}

	q.mu.Lock()
	close(q.signal)
	q.signal = make(chan struct{})
	q.mu.Unlock()
}

// IsDisposed reports whether Dispose has been called.
func (q *AnswerQueue) IsDisposed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.disposed
}
