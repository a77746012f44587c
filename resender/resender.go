// Package resender implements the Resender (C8): keeping unconfirmed
// outbound GWMessages scheduled for periodic resend until a matching
// response/ack/confirm arrives.
package resender

import (
	"container/heap"
	"sync"
	"time"

	"github.com/beeeon/gateway/connector"
	"github.com/beeeon/gateway/model"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// DefaultResendTimeout mirrors GWSResender's BEEEON_OBJECT default.
const DefaultResendTimeout = 10 * time.Second

// Sender is the minimal surface the Resender needs from the connector:
// re-sending a message re-enters onTrySend/onSent on the same
// Resender, exactly like the original's connector->send(message) call
// from within the scheduler loop.
type Sender interface {
	Send(msg model.GWMessage)
}

type scheduledEntry struct {
	deadline time.Time
	message  model.GWMessage
	index    int
}

type scheduleHeap []*scheduledEntry

func (h scheduleHeap) Len() int            { return len(h) }
func (h scheduleHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h scheduleHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *scheduleHeap) Push(x any) {
	e := x.(*scheduledEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Resender watches connector traffic and re-sends any message that has
// not been confirmed (by response, ack, or data-export confirm) within
// resendTimeout.
type Resender struct {
	connector.NopListener

	log           *zap.Logger
	clock         clock.Clock
	sender        Sender
	resendTimeout time.Duration

	mu       sync.Mutex
	waiting  scheduleHeap
	refs     map[model.GlobalID]*scheduledEntry
	pending  map[model.GlobalID]struct{}

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// Option configures a Resender at construction time.
type Option func(*Resender)

func WithClock(c clock.Clock) Option { return func(r *Resender) { r.clock = c } }

func WithResendTimeout(d time.Duration) Option {
	return func(r *Resender) { r.resendTimeout = d }
}

// New builds a Resender that resends via sender.
func New(sender Sender, log *zap.Logger, opts ...Option) *Resender {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resender{
		log:           log,
		clock:         clock.New(),
		sender:        sender,
		resendTimeout: DefaultResendTimeout,
		refs:          make(map[model.GlobalID]*scheduledEntry),
		pending:       make(map[model.GlobalID]struct{}),
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func resendable(msg model.GWMessage) bool {
	return msg.Kind.IsRequest() ||
		msg.Kind == model.MessageResponseWithAck ||
		msg.Kind == model.MessageSensorDataExport
}

// OnTrySend records msg.ID as pending an eventual onSent confirmation.
func (r *Resender) OnTrySend(msg model.GWMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[msg.ID] = struct{}{}
}

// OnSent schedules msg for resend after resendTimeout, unless it
// replaces an existing terminal (SUCCESS/FAILED) Response entry with a
// non-matching status, which is rejected and logged.
func (r *Resender) OnSent(msg model.GWMessage) {
	if !resendable(msg) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[msg.ID]; !ok {
		return
	}

	if existing, ok := r.refs[msg.ID]; ok {
		if existing.message.Kind == model.MessageResponseWithAck {
			switch existing.message.Status {
			case model.StatusSuccess, model.StatusFailed:
				if existing.message.Status != msg.Status {
					r.log.Warn("attempt to override final response status",
						zap.String("id", msg.ID.String()))
					return
				}
			}
		}

		existing.message = msg
		existing.deadline = r.clock.Now().Add(r.resendTimeout)
		heap.Fix(&r.waiting, existing.index)
		return
	}

	entry := &scheduledEntry{deadline: r.clock.Now().Add(r.resendTimeout), message: msg}
	heap.Push(&r.waiting, entry)
	r.refs[msg.ID] = entry

	r.notify()
}

// OnResponse drops the schedule entry for r.ID once it reaches a
// terminal status.
func (r *Resender) OnResponse(msg model.GWMessage) {
	if msg.Status != model.StatusSuccess && msg.Status != model.StatusFailed {
		return
	}
	r.findAndDrop(msg.ID)
}

// OnAck drops the schedule entry for ack.ID, but only if the stored
// response's status matches the ack's status (an ack for a
// superseded ACCEPTED is ignored).
func (r *Resender) OnAck(ack model.GWMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, ack.ID)

	entry, ok := r.refs[ack.ID]
	if !ok {
		return
	}
	if entry.message.Status != ack.AckStatus {
		return
	}

	r.removeLocked(entry)
}

// OnOther drops the schedule entry for SensorDataConfirm messages.
func (r *Resender) OnOther(msg model.GWMessage) {
	if msg.Kind == model.MessageSensorDataConfirm {
		r.findAndDrop(msg.ID)
	}
}

func (r *Resender) findAndDrop(id model.GlobalID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, id)

	entry, ok := r.refs[id]
	if !ok {
		return
	}
	r.removeLocked(entry)
}

func (r *Resender) removeLocked(entry *scheduledEntry) {
	heap.Remove(&r.waiting, entry.index)
	delete(r.refs, entry.message.ID)
}

func (r *Resender) notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// resendOrGet resends the earliest-scheduled message if its deadline
// has passed and returns the new earliest deadline (zero time, false
// if the schedule is now empty).
func (r *Resender) resendOrGet() (time.Time, bool) {
	r.mu.Lock()
	if len(r.waiting) == 0 {
		r.mu.Unlock()
		return time.Time{}, false
	}

	earliest := r.waiting[0]
	if r.clock.Now().Before(earliest.deadline) {
		deadline := earliest.deadline
		r.mu.Unlock()
		return deadline, true
	}

	heap.Pop(&r.waiting)
	delete(r.refs, earliest.message.ID)
	r.mu.Unlock()

	r.sender.Send(earliest.message)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.waiting) == 0 {
		return time.Time{}, false
	}
	return r.waiting[0].deadline, true
}

// Run drives the resend scheduler until Stop.
func (r *Resender) Run() {
	r.log.Info("starting resender")
	defer close(r.done)

	for {
		select {
		case <-r.stop:
			r.log.Info("resender has stopped")
			return
		default:
		}

		deadline, ok := r.resendOrGet()
		if !ok {
			select {
			case <-r.stop:
				return
			case <-r.wake:
			}
			continue
		}

		delay := deadline.Sub(r.clock.Now())
		if delay < time.Millisecond {
			delay = time.Millisecond
		}

		select {
		case <-r.stop:
			return
		case <-r.wake:
		case <-r.clock.After(delay):
		}
	}
}

// Stop requests the scheduler loop to exit and waits for it to do so.
func (r *Resender) Stop() {
	close(r.stop)
	<-r.done
}

// Pending reports how many entries are currently scheduled, for tests.
func (r *Resender) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}
