package dispatch

import (
	"fmt"
	"sync"

	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/model"
	"go.uber.org/zap"
)

// Dispatcher routes Commands to registered Handlers and collects their
// Results into one Answer, grounded on CommandDispatcher/
// AsyncCommandDispatcher: handler registration is synchronous and
// duplicate-checked, dispatch itself hands each accepting handler's
// Handle call to an Executor so the caller never blocks on handler work.
type Dispatcher struct {
	log      *zap.Logger
	executor executor.Executor

	mu        sync.Mutex
	handlers  []Handler
	listeners []Listener
}

// New builds a Dispatcher that runs accepted handlers on exec.
func New(exec executor.Executor, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{executor: exec, log: log}
}

// RegisterHandler adds h to the set of candidate handlers. Registering
// the same Handler value twice fails.
func (d *Dispatcher) RegisterHandler(h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.handlers {
		if existing == h {
			return fmt.Errorf("%w: duplicate handler detected", model.ErrInvalidArgument)
		}
	}
	d.handlers = append(d.handlers, h)
	return nil
}

// RegisterListener adds l to the set of dispatch listeners.
func (d *Dispatcher) RegisterListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Dispatch routes cmd to every accepting, non-sending handler, wiring
// their eventual Results into ans.
func (d *Dispatcher) Dispatch(cmd *model.Command, ans *answer.Answer) {
	d.mu.Lock()
	listeners := append([]Listener(nil), d.listeners...)
	candidates := append([]Handler(nil), d.handlers...)
	d.mu.Unlock()

	for _, l := range listeners {
		l.OnDispatch(cmd)
	}

	var accepted []Handler
	for _, h := range candidates {
		if cmd.Sender != nil && sameHandler(cmd.Sender, h) {
			continue
		}

		ok, err := safeAccept(h, cmd)
		if err != nil {
			d.log.Warn("handler accept failed", zap.Error(err))
			continue
		}
		if ok {
			accepted = append(accepted, h)
		}
	}

	ans.SetHandlersCount(len(accepted))
	if !ans.IsPending() {
		return
	}

	for _, h := range accepted {
		handler := h
		d.executor.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("command handler panicked", zap.Any("recover", r))
				}
			}()
			handler.Handle(cmd, ans)
		})
	}
}

func sameHandler(sender any, h Handler) bool {
	if cs, ok := sender.(CommandSenderIdentity); ok {
		return cs.SendingHandler() == h
	}
	return sender == h
}

// CommandSenderIdentity is implemented by Command.Sender values that are
// themselves handlers, so the dispatcher can suppress self-dispatch
// without requiring Sender to literally equal the Handler value.
type CommandSenderIdentity interface {
	SendingHandler() any
}

func safeAccept(h Handler, cmd *model.Command) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler accept panicked: %v", r)
		}
	}()
	return h.Accept(cmd)
}
