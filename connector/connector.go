package connector

import (
	"context"
	"errors"
	"sync"

	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/model"
	"go.uber.org/zap"
)

// ErrReconnecting is a sentinel for the transient between-connections
// state, grounded on the teacher's ErrStreamRestarting. Nothing in this
// package returns it: Connector.Send has no error result and queues the
// message whatever the connection state.
var ErrReconnecting = errors.New("connector: reconnecting")

// Transport is the wire-level link to the server: one bidirectional
// message stream. Connector only ever sees Send/Recv on an established
// Transport. Neither Connector nor GRPCTransport reconnects: after a Recv
// error RunRecv reports OnDisconnected and returns, and a message whose
// Send failed is requeued and retried on the same Transport.
type Transport interface {
	Send(ctx context.Context, msg model.GWMessage) error
	Recv(ctx context.Context) (model.GWMessage, error)
	Close() error
}

// Listener observes connector lifecycle and traffic events. Every
// method is optional to implement meaningfully; embed NopListener to
// satisfy the interface without overriding everything.
type Listener interface {
	OnConnected()
	OnDisconnected()
	OnTrySend(msg model.GWMessage)
	OnSent(msg model.GWMessage)
	OnRequest(msg model.GWMessage)
	OnResponse(msg model.GWMessage)
	OnAck(msg model.GWMessage)
	OnOther(msg model.GWMessage)
}

// NopListener is embeddable by Listener implementations that only care
// about a subset of events.
type NopListener struct{}

func (NopListener) OnConnected()             {}
func (NopListener) OnDisconnected()          {}
func (NopListener) OnTrySend(model.GWMessage) {}
func (NopListener) OnSent(model.GWMessage)    {}
func (NopListener) OnRequest(model.GWMessage) {}
func (NopListener) OnResponse(model.GWMessage) {}
func (NopListener) OnAck(model.GWMessage)     {}
func (NopListener) OnOther(model.GWMessage)   {}

// Connector is the priority multi-queue outbound sender plus inbound
// event fan-out for the server link, grounded on GWSConnector /
// AsyncCommandDispatcher's event-source shape (one background executor
// per direction) and the teacher's streamPrioritizer family for the
// send-side queue selection.
type Connector struct {
	log       *zap.Logger
	transport Transport
	exec      executor.Executor

	counters priorityCounters

	mu        sync.Mutex
	queues    [QueueCount][]model.GWMessage
	listeners []Listener
	connected bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New builds a Connector bound to transport, using exec to run
// inbound-event callbacks off the receive loop's goroutine.
func New(transport Transport, exec executor.Executor, log *zap.Logger) *Connector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Connector{
		log:       log,
		transport: transport,
		exec:      exec,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// RegisterListener adds l to the set of connector event observers.
func (c *Connector) RegisterListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Connector) fanOut(f func(Listener)) {
	c.mu.Lock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		listener := l
		c.exec.Submit(func() { f(listener) })
	}
}

// Send enqueues msg onto the queue selected by AssignQueue and wakes
// the sender loop.
func (c *Connector) Send(msg model.GWMessage) {
	q := AssignQueue(msg.Kind)

	c.mu.Lock()
	c.queues[q] = append(c.queues[q], msg)
	c.mu.Unlock()

	c.fanOut(func(l Listener) { l.OnTrySend(msg) })

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// nonEmptySnapshot and popFrom must be called together under c.mu.
func (c *Connector) nonEmptySnapshot() (snap [QueueCount]bool) {
	for i := range c.queues {
		snap[i] = len(c.queues[i]) > 0
	}
	return
}

func (c *Connector) popFrom(q int) (model.GWMessage, bool) {
	if len(c.queues[q]) == 0 {
		return model.GWMessage{}, false
	}
	msg := c.queues[q][0]
	c.queues[q] = c.queues[q][1:]
	return msg, true
}

// RunSend drives the priority-selecting outbound loop until Stop. It
// is meant to run on its own goroutine.
func (c *Connector) RunSend(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		snap := c.nonEmptySnapshot()
		queue, ok := c.counters.selectQueue(snap)
		var msg model.GWMessage
		if ok {
			msg, ok = c.popFrom(queue)
		}
		c.mu.Unlock()

		if !ok {
			select {
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			case <-c.wake:
			}
			continue
		}

		if err := c.transport.Send(ctx, msg); err != nil {
			c.log.Warn("send failed, requeueing", zap.Error(err))
			c.mu.Lock()
			c.queues[queue] = append([]model.GWMessage{msg}, c.queues[queue]...)
			c.mu.Unlock()
			continue
		}

		c.counters.recordSend(queue)
		c.fanOut(func(l Listener) { l.OnSent(msg) })
	}
}

// RunRecv drives the inbound loop until Stop, dispatching each message
// to the appropriate On{Request,Response,Ack,Other} listener callback.
func (c *Connector) RunRecv(ctx context.Context) {
	c.setConnected(true)
	c.fanOut(func(l Listener) { l.OnConnected() })
	defer func() {
		c.setConnected(false)
		c.fanOut(func(l Listener) { l.OnDisconnected() })
	}()

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.transport.Recv(ctx)
		if err != nil {
			c.log.Warn("receive failed", zap.Error(err))
			return
		}

		switch {
		case msg.Kind.IsRequest():
			c.fanOut(func(l Listener) { l.OnRequest(msg) })
		case msg.Kind.IsResponse():
			c.fanOut(func(l Listener) { l.OnResponse(msg) })
		case msg.Kind.IsAck():
			c.fanOut(func(l Listener) { l.OnAck(msg) })
		default:
			c.fanOut(func(l Listener) { l.OnOther(msg) })
		}
	}
}

func (c *Connector) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Connected reports whether the inbound loop believes the transport is
// currently up.
func (c *Connector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Stop requests both loops to exit.
func (c *Connector) Stop() {
	close(c.stop)
}
