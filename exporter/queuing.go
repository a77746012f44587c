// Package exporter implements QueuingExporter (C9): shipping batches
// out of a persistent queue.Strategy over a connector.Connector-like
// Sender, waiting for a matching SensorDataConfirm before advancing.
package exporter

import (
	"sync"
	"time"

	"github.com/beeeon/gateway/model"
	"github.com/beeeon/gateway/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Sender is the outbound surface a QueuingExporter ships batches
// through.
type Sender interface {
	Send(msg model.GWMessage)
}

// Defaults grounded on spec.md §4.9's named parameters.
const (
	DefaultAcquireTimeout  = 1 * time.Second
	DefaultSendFailedDelay = 1 * time.Second
	DefaultBatchSize       = 30
)

// Queuing ships batches out of a queue.Strategy, waiting for each
// export to be confirmed before advancing the strategy's position.
type Queuing struct {
	log             *zap.Logger
	strategy        queue.Strategy
	sender          Sender
	acquireTimeout  time.Duration
	sendFailedDelay time.Duration
	batchSize       int

	mu      sync.Mutex
	pending map[model.GlobalID]chan struct{}

	stop chan struct{}
	done chan struct{}
}

// Option configures a Queuing exporter at construction time.
type Option func(*Queuing)

func WithAcquireTimeout(d time.Duration) Option {
	return func(q *Queuing) { q.acquireTimeout = d }
}

func WithSendFailedDelay(d time.Duration) Option {
	return func(q *Queuing) { q.sendFailedDelay = d }
}

func WithBatchSize(n int) Option { return func(q *Queuing) { q.batchSize = n } }

// New builds a Queuing exporter shipping strategy's backlog via sender.
func New(strategy queue.Strategy, sender Sender, log *zap.Logger, opts ...Option) *Queuing {
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queuing{
		log:             log,
		strategy:        strategy,
		sender:          sender,
		acquireTimeout:  DefaultAcquireTimeout,
		sendFailedDelay: DefaultSendFailedDelay,
		batchSize:       DefaultBatchSize,
		pending:         make(map[model.GlobalID]chan struct{}),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Ship pushes data onto the backing strategy, to be shipped by Run.
func (q *Queuing) Ship(data model.SensorData) error {
	return q.strategy.Push([]model.SensorData{data})
}

// OnOther delivers a SensorDataConfirm to whichever in-flight export it
// matches; everything else is ignored.
func (q *Queuing) OnOther(msg model.GWMessage) {
	if msg.Kind != model.MessageSensorDataConfirm {
		return
	}

	q.mu.Lock()
	ch, ok := q.pending[msg.ID]
	q.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Run drives the peek/send/confirm/pop loop until Stop.
func (q *Queuing) Run() {
	defer close(q.done)

	for {
		select {
		case <-q.stop:
			return
		default:
		}

		var batch []model.SensorData
		n, err := q.strategy.Peek(&batch, q.batchSize)
		if err != nil {
			q.log.Warn("peek failed", zap.Error(err))
			continue
		}
		if n == 0 {
			select {
			case <-q.stop:
				return
			case <-time.After(q.acquireTimeout):
			}
			continue
		}

		id := model.GlobalID(uuid.New())
		confirmed := make(chan struct{})
		q.mu.Lock()
		q.pending[id] = confirmed
		q.mu.Unlock()

		for {
			q.sender.Send(model.GWMessage{ID: id, Kind: model.MessageSensorDataExport, Data: batch})

			select {
			case <-confirmed:
			case <-q.stop:
				q.mu.Lock()
				delete(q.pending, id)
				q.mu.Unlock()
				return
			case <-time.After(q.sendFailedDelay):
				continue
			}
			break
		}

		q.mu.Lock()
		delete(q.pending, id)
		q.mu.Unlock()

		if err := q.strategy.Pop(n); err != nil {
			q.log.Warn("pop failed", zap.Error(err))
		}
	}
}

// Stop requests the shipment loop to exit and waits for it to do so.
func (q *Queuing) Stop() {
	close(q.stop)
	<-q.done
}
