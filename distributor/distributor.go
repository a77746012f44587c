package distributor

import (
	"sync"
	"time"

	"github.com/beeeon/gateway/model"
	"go.uber.org/zap"
)

// Defaults mirror QueuingDistributor's BEEEON_OBJECT defaults.
const (
	DefaultDeadTimeout = 10 * time.Second
	DefaultIdleTimeout = 5 * time.Second
	DefaultCapacity    = 1000
	DefaultBatchSize   = 30
	DefaultThreshold   = 10
)

// Listener observes every SensorData handed to the Distributor, before
// fan-out to exporters.
type Listener interface {
	OnExportData(data model.SensorData)
}

// Distributor fans incoming SensorData out to every registered
// Exporter's queue and runs one background worker loop that drains
// them, grounded on QueuingDistributor's run()/exportData() pair. The
// worker loop's timer+flush shape follows the teacher's batch
// processor: a single select over "new data arrived" and "idle timeout
// elapsed", rather than busy-polling.
type Distributor struct {
	log *zap.Logger

	deadTimeout time.Duration
	idleTimeout time.Duration
	batchSize   int
	capacity    int
	threshold   int

	mu        sync.Mutex
	queues    []*ExporterQueue
	listeners []Listener

	newData chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// Option configures a Distributor at construction time.
type Option func(*Distributor)

func WithDeadTimeout(d time.Duration) Option { return func(di *Distributor) { di.deadTimeout = d } }
func WithIdleTimeout(d time.Duration) Option { return func(di *Distributor) { di.idleTimeout = d } }
func WithBatchSize(n int) Option             { return func(di *Distributor) { di.batchSize = n } }
func WithCapacity(n int) Option              { return func(di *Distributor) { di.capacity = n } }
func WithThreshold(n int) Option             { return func(di *Distributor) { di.threshold = n } }

// New builds a Distributor with no registered exporters yet.
func New(log *zap.Logger, opts ...Option) *Distributor {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Distributor{
		log:         log,
		deadTimeout: DefaultDeadTimeout,
		idleTimeout: DefaultIdleTimeout,
		batchSize:   DefaultBatchSize,
		capacity:    DefaultCapacity,
		threshold:   DefaultThreshold,
		newData:     make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterExporter wraps exporter in a new ExporterQueue using the
// Distributor's configured batch size / capacity / threshold.
func (d *Distributor) RegisterExporter(exporter Exporter) *ExporterQueue {
	d.mu.Lock()
	defer d.mu.Unlock()

	q := NewExporterQueue(exporter, d.batchSize, d.capacity, d.threshold)
	d.queues = append(d.queues, q)
	d.log.Debug("exporter queue created",
		zap.Int("batchSize", d.batchSize),
		zap.Int("capacity", d.capacity),
		zap.Int("threshold", d.threshold))
	return q
}

// RegisterListener adds l to the set notified of every exported
// SensorData.
func (d *Distributor) RegisterListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// ExportData fans data out to every registered exporter's queue and
// wakes the worker loop.
func (d *Distributor) ExportData(data model.SensorData) {
	d.mu.Lock()
	listeners := append([]Listener(nil), d.listeners...)
	queues := append([]*ExporterQueue(nil), d.queues...)
	d.mu.Unlock()

	for _, l := range listeners {
		l.OnExportData(data)
	}
	for _, q := range queues {
		q.Enqueue(data)
	}

	select {
	case d.newData <- struct{}{}:
	default:
	}
}

// Run drives the worker loop until Stop is called. It is meant to run
// on its own goroutine.
func (d *Distributor) Run() {
	d.log.Debug("distributor started")
	defer close(d.done)

	for {
		select {
		case <-d.stop:
			d.log.Debug("distributor stopped")
			return
		default:
		}

		d.mu.Lock()
		queues := append([]*ExporterQueue(nil), d.queues...)
		d.mu.Unlock()

		cannotExport := 0
		for _, q := range queues {
			if q.CanExport(d.deadTimeout) {
				if q.ExportBatch() == 0 {
					cannotExport++
				}
			} else {
				cannotExport++
			}
		}

		if cannotExport == len(queues) {
			select {
			case <-d.stop:
				d.log.Debug("distributor stopped")
				return
			case <-d.newData:
			case <-time.After(d.idleTimeout):
			}
		}
	}
}

// Stop requests the worker loop to exit and waits for it to do so.
func (d *Distributor) Stop() {
	close(d.stop)
	<-d.done
}
