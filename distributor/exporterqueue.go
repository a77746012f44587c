// Package distributor implements the Distributor/ExporterQueue pair
// (C6): fanning SensorData out to every registered Exporter, each
// behind its own bounded, drop-oldest queue with a dead/working health
// state machine.
package distributor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/beeeon/gateway/model"
)

// UnlimitedBatchSize, UnlimitedCapacity, UnlimitedThreshold mirror
// ExporterQueue's sentinel "no limit" values.
const (
	UnlimitedBatchSize = 0
	UnlimitedCapacity  = 0
	UnlimitedThreshold = -1
)

// Exporter ships SensorData in best-effort fashion. ship returns true
// when the caller no longer needs to care about data (it shipped, or
// was intentionally discarded upstream), false when the exporter is
// temporarily full, and an error when the exporter is broken.
type Exporter interface {
	Ship(data model.SensorData) (bool, error)
}

// ExporterQueue wraps one Exporter with a bounded, drop-oldest FIFO and
// a dead/working health state machine: after threshold consecutive
// broken shipments it stops being tried until deadTimeout has elapsed
// since the transition.
type ExporterQueue struct {
	exporter  Exporter
	batchSize int
	capacity  int
	threshold int

	mu    sync.Mutex
	items []model.SensorData

	dropped uint64
	sent    uint64

	fails        int
	working      int32 // atomic bool
	timeOfFailure time.Time
}

// NewExporterQueue builds a queue around exporter. batchSize<=0 means
// unlimited per-call shipment size, capacity<=0 means unlimited
// backlog, threshold<0 means the queue never goes dead.
func NewExporterQueue(exporter Exporter, batchSize, capacity, threshold int) *ExporterQueue {
	q := &ExporterQueue{
		exporter:  exporter,
		batchSize: batchSize,
		capacity:  capacity,
		threshold: threshold,
	}
	atomic.StoreInt32(&q.working, 1)
	return q
}

// Enqueue adds data, dropping the oldest queued item first if capacity
// is reached.
func (q *ExporterQueue) Enqueue(data model.SensorData) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.items = q.items[1:]
		atomic.AddUint64(&q.dropped, 1)
	}
	q.items = append(q.items, data)
}

// ExportBatch ships up to batchSize queued items, stopping at the
// first failed/refused shipment. It returns how many were shipped.
func (q *ExporterQueue) ExportBatch() int {
	if q.Empty() {
		return 0
	}

	shipped := 0
	for q.batchSize <= 0 || shipped < q.batchSize {
		item, ok := q.front()
		if !ok {
			break
		}

		ok, err := q.shipSafely(item)
		if err != nil {
			q.fail()
			return shipped
		}
		if !ok {
			break
		}

		q.pop()
		atomic.AddUint64(&q.sent, 1)
		shipped++
		q.fails = 0
	}

	if shipped > 0 {
		atomic.StoreInt32(&q.working, 1)
	}
	return shipped
}

func (q *ExporterQueue) shipSafely(item model.SensorData) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = model.ErrIO
		}
	}()
	return q.exporter.Ship(item)
}

func (q *ExporterQueue) fail() {
	if q.threshold < 0 {
		return
	}

	if q.Working() {
		q.fails++
		if q.fails >= q.threshold {
			atomic.StoreInt32(&q.working, 0)
			q.fails = 0
			q.mu.Lock()
			q.timeOfFailure = time.Now()
			q.mu.Unlock()
		}
	} else {
		q.mu.Lock()
		q.timeOfFailure = time.Now()
		q.mu.Unlock()
	}
}

// CanExport reports whether the queue is non-empty and either working,
// or dead for at least deadTimeout.
func (q *ExporterQueue) CanExport(deadTimeout time.Duration) bool {
	if q.Empty() {
		return false
	}
	return q.deadTooLong(deadTimeout)
}

func (q *ExporterQueue) deadTooLong(deadTimeout time.Duration) bool {
	if q.Working() {
		return true
	}
	q.mu.Lock()
	failedAt := q.timeOfFailure
	q.mu.Unlock()
	return time.Since(failedAt) >= deadTimeout
}

// Working reports the current health state.
func (q *ExporterQueue) Working() bool {
	return atomic.LoadInt32(&q.working) != 0
}

// Empty reports whether the backlog is empty.
func (q *ExporterQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Sent returns the total count of items successfully shipped.
func (q *ExporterQueue) Sent() uint64 { return atomic.LoadUint64(&q.sent) }

// Dropped returns the total count of items dropped due to overflow.
func (q *ExporterQueue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }

func (q *ExporterQueue) front() (model.SensorData, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return model.SensorData{}, false
	}
	return q.items[0], true
}

func (q *ExporterQueue) pop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 {
		q.items = q.items[1:]
	}
}
