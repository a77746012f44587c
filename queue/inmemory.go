package queue

import (
	"sync"

	"github.com/beeeon/gateway/model"
)

// InMemory is the non-persistent Strategy backed by a plain slice.
type InMemory struct {
	mu    sync.Mutex
	items []model.SensorData
}

// NewInMemory returns an empty in-memory queuing strategy.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (q *InMemory) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the current number of held entries.
func (q *InMemory) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *InMemory) Push(batch []model.SensorData) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, batch...)
	return nil
}

func (q *InMemory) Peek(out *[]model.SensorData, count int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := count
	if n > len(q.items) {
		n = len(q.items)
	}
	*out = append(*out, q.items[:n]...)
	return n, nil
}

func (q *InMemory) Pop(count int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := count
	if n > len(q.items) {
		n = len(q.items)
	}
	q.items = q.items[n:]
	return nil
}

var _ Strategy = (*InMemory)(nil)
