package connector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/beeeon/gateway/executor"
	"github.com/beeeon/gateway/model"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []model.GWMessage
	recv chan model.GWMessage
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{recv: make(chan model.GWMessage, 16)}
}

func (f *fakeTransport) Send(_ context.Context, msg model.GWMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Recv(ctx context.Context) (model.GWMessage, error) {
	select {
	case m := <-f.recv:
		return m, nil
	case <-ctx.Done():
		return model.GWMessage{}, ctx.Err()
	}
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type countingListener struct {
	NopListener
	mu        sync.Mutex
	connected int
	sent      int
	requests  int
}

func (l *countingListener) OnConnected() {
	l.mu.Lock()
	l.connected++
	l.mu.Unlock()
}

func (l *countingListener) OnSent(model.GWMessage) {
	l.mu.Lock()
	l.sent++
	l.mu.Unlock()
}

func (l *countingListener) OnRequest(model.GWMessage) {
	l.mu.Lock()
	l.requests++
	l.mu.Unlock()
}

func TestConnectorSendsAndNotifiesListener(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, executor.Inline(), nil)
	l := &countingListener{}
	c.RegisterListener(l)

	ctx, cancel := context.WithCancel(context.Background())
	go c.RunSend(ctx)
	defer func() {
		c.Stop()
		cancel()
	}()

	c.Send(model.GWMessage{Kind: model.MessageSensorDataExport})

	require.Eventually(t, func() bool { return tr.sentCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.sent == 1
	}, time.Second, 5*time.Millisecond)
}

func TestConnectorRecvDispatchesByKind(t *testing.T) {
	tr := newFakeTransport()
	c := New(tr, executor.Inline(), nil)
	l := &countingListener{}
	c.RegisterListener(l)

	ctx, cancel := context.WithCancel(context.Background())
	go c.RunRecv(ctx)
	defer func() {
		c.Stop()
		cancel()
	}()

	tr.recv <- model.GWMessage{Kind: model.MessageDeviceListRequest}

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.requests == 1 && l.connected == 1
	}, time.Second, 5*time.Millisecond)
}
