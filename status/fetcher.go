// Package status implements DeviceStatusFetcher (C10): periodically
// polling the server for each registered prefix's paired-device set and
// reporting it to the matching Handler.
package status

import (
	"sync"
	"time"

	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/model"
	"go.uber.org/zap"
)

// Defaults mirror DeviceStatusFetcher's BEEEON_OBJECT defaults.
const (
	DefaultIdleDuration = 30 * time.Minute
	DefaultWaitTimeout  = 1 * time.Second
	DefaultRepeatTimeout = 5 * time.Minute
)

// Handler receives the paired-device set for one device prefix.
type Handler interface {
	Prefix() model.DevicePrefix
	HandleRemoteStatus(prefix model.DevicePrefix, paired []model.DeviceID)
}

// Dispatcher is the minimal CommandDispatcher surface the fetcher
// needs.
type Dispatcher interface {
	Dispatch(cmd *model.Command, ans *answer.Answer)
}

// fetchStatus summarizes what the scheduler should do next.
type fetchStatus int

const (
	fetchNothing fetchStatus = iota
	fetchWouldRepeat
	fetchActive
)

// prefixStatus tracks one prefix's request lifecycle: not yet started,
// started and pending, or started and resolved (successfully or not).
type prefixStatus struct {
	lastRequested time.Time
	started       bool
	successful    bool
}

func (s *prefixStatus) startRequest(now time.Time) {
	s.lastRequested = now
	s.started = true
}

func (s *prefixStatus) deliverResponse(successful bool) {
	s.successful = successful
}

func (s *prefixStatus) needsRequest() bool {
	return !s.started
}

func (s *prefixStatus) shouldRepeat(repeatTimeout time.Duration, now time.Time) bool {
	if s.successful {
		return false
	}
	return now.Sub(s.lastRequested) > repeatTimeout
}

// Fetcher periodically dispatches ServerDeviceList commands per
// registered prefix and reports results to the matching Handlers.
type Fetcher struct {
	log        *zap.Logger
	dispatcher Dispatcher

	idleDuration  time.Duration
	waitTimeout   time.Duration
	repeatTimeout time.Duration

	mu          sync.Mutex
	handlers    map[model.DevicePrefix][]Handler
	statusByPfx map[model.DevicePrefix]*prefixStatus
	prefixByAns map[*answer.Answer]model.DevicePrefix

	queue *answer.AnswerQueue

	stop chan struct{}
	done chan struct{}
}

// Option configures a Fetcher at construction time.
type Option func(*Fetcher)

func WithIdleDuration(d time.Duration) Option   { return func(f *Fetcher) { f.idleDuration = d } }
func WithWaitTimeout(d time.Duration) Option    { return func(f *Fetcher) { f.waitTimeout = d } }
func WithRepeatTimeout(d time.Duration) Option  { return func(f *Fetcher) { f.repeatTimeout = d } }

// New builds a Fetcher dispatching commands via dispatcher.
func New(dispatcher Dispatcher, log *zap.Logger, opts ...Option) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Fetcher{
		log:           log,
		dispatcher:    dispatcher,
		idleDuration:  DefaultIdleDuration,
		waitTimeout:   DefaultWaitTimeout,
		repeatTimeout: DefaultRepeatTimeout,
		handlers:      make(map[model.DevicePrefix][]Handler),
		statusByPfx:   make(map[model.DevicePrefix]*prefixStatus),
		prefixByAns:   make(map[*answer.Answer]model.DevicePrefix),
		queue:         answer.NewAnswerQueue(),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterHandler adds h to the set of handlers for its prefix.
func (f *Fetcher) RegisterHandler(h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[h.Prefix()] = append(f.handlers[h.Prefix()], h)
}

// ClearHandlers drops every registered handler.
func (f *Fetcher) ClearHandlers() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = make(map[model.DevicePrefix][]Handler)
}

func (f *Fetcher) fetchUndone() fetchStatus {
	now := time.Now()

	f.mu.Lock()
	if len(f.statusByPfx) == 0 {
		for prefix := range f.handlers {
			f.statusByPfx[prefix] = &prefixStatus{}
		}
	}

	var toRequest []model.DevicePrefix
	wouldRepeat := false
	for prefix, st := range f.statusByPfx {
		if st.needsRequest() || st.shouldRepeat(f.repeatTimeout, now) {
			toRequest = append(toRequest, prefix)
			continue
		}
		if !st.successful {
			wouldRepeat = true
		}
	}
	f.mu.Unlock()

	started := false
	for _, prefix := range toRequest {
		f.log.Debug("fetching paired devices", zap.Stringer("prefix", prefix))

		cmd := model.ServerDeviceListCommand(prefix, nil)
		ans, err := f.queue.NewAnswer()
		if err != nil {
			f.log.Warn("cannot create answer, fetcher stopping", zap.Error(err))
			continue
		}

		f.mu.Lock()
		f.prefixByAns[ans] = prefix
		f.mu.Unlock()

		f.dispatcher.Dispatch(&cmd, ans)

		f.mu.Lock()
		f.statusByPfx[prefix].startRequest(now)
		f.mu.Unlock()

		started = true
	}

	if started {
		return fetchActive
	}
	if wouldRepeat {
		return fetchWouldRepeat
	}
	return fetchNothing
}

// Run drives the scheduler loop until Stop.
func (f *Fetcher) Run() {
	f.log.Info("starting device fetcher")
	defer close(f.done)

	for {
		select {
		case <-f.stop:
			f.log.Info("device fetcher stopped")
			return
		default:
		}

		switch f.fetchUndone() {
		case fetchNothing:
			if f.queue.Size() == 0 {
				if f.sleep(f.idleDuration) {
					return
				}
				continue
			}
		case fetchWouldRepeat:
			if f.queue.Size() == 0 {
				if f.sleep(f.repeatTimeout) {
					return
				}
				continue
			}
		case fetchActive:
		}

		var dirty []*answer.Answer
		f.queue.Wait(f.waitTimeout, &dirty)
		if len(dirty) == 0 {
			continue
		}

		for _, ans := range dirty {
			f.handleDirtyAnswer(ans)
		}
	}
}

func (f *Fetcher) sleep(d time.Duration) (stopped bool) {
	select {
	case <-f.stop:
		return true
	case <-time.After(d):
		return false
	}
}

func (f *Fetcher) handleDirtyAnswer(ans *answer.Answer) {
	if ans.IsPending() {
		return
	}

	f.queue.Remove(ans)

	if ans.HandlersCount() == 0 {
		f.log.Warn("answer has no handlers")
		return
	}

	f.mu.Lock()
	prefix, ok := f.prefixByAns[ans]
	delete(f.prefixByAns, ans)
	handlers := append([]Handler(nil), f.handlers[prefix]...)
	f.mu.Unlock()

	if !ok {
		f.log.Warn("received answer is not a prefix answer")
		return
	}
	if len(handlers) == 0 {
		f.log.Warn("no handlers for prefix", zap.Stringer("prefix", prefix))
		return
	}

	f.processAnswer(ans, prefix, handlers)
}

func (f *Fetcher) processAnswer(ans *answer.Answer, prefix model.DevicePrefix, handlers []Handler) {
	paired := make(map[model.DeviceID]struct{})
	success := false

	for i, r := range ans.Results() {
		if r.Status() != answer.StatusSuccess {
			f.log.Warn("result has failed", zap.Int("index", i))
			continue
		}
		success = true

		ids, ok := r.Payload().([]model.DeviceID)
		if !ok {
			f.log.Warn("result is not a device list")
			continue
		}

		for _, id := range ids {
			if id.Prefix() != prefix {
				f.log.Warn("id has unexpected prefix",
					zap.String("id", id.String()), zap.Stringer("prefix", prefix))
				continue
			}
			paired[id] = struct{}{}
		}
	}

	f.mu.Lock()
	if st, ok := f.statusByPfx[prefix]; ok {
		st.deliverResponse(success)
	}
	f.mu.Unlock()

	if !success {
		return
	}

	list := make([]model.DeviceID, 0, len(paired))
	for id := range paired {
		list = append(list, id)
	}

	for _, h := range handlers {
		h.HandleRemoteStatus(prefix, list)
	}
}

// Stop requests the scheduler loop to exit, disposes the answer queue
// to unblock in-flight waits, and waits for the loop to return.
func (f *Fetcher) Stop() {
	close(f.stop)
	f.queue.Dispose()
	<-f.done
}
