package exporter

import (
	"sync"
	"testing"
	"time"

	"github.com/beeeon/gateway/model"
	"github.com/beeeon/gateway/queue"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []model.GWMessage
}

func (s *recordingSender) Send(msg model.GWMessage) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
}

func (s *recordingSender) last() (model.GWMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return model.GWMessage{}, false
	}
	return s.sent[len(s.sent)-1], true
}

func val(f float64) *float64 { return &f }

func TestQueuingExporterAckRoundTrip(t *testing.T) {
	// spec.md §8 scenario 3: push one batch, the exporter ships it as a
	// SensorDataExport, and only advances the strategy once the matching
	// SensorDataConfirm arrives.
	strategy := queue.NewInMemory()
	require.NoError(t, strategy.Push([]model.SensorData{
		{DeviceID: model.NewDeviceID(model.PrefixVirtual, 1), Timestamp: 1, Values: []model.SensorValue{{ModuleID: 0, Value: val(1)}}},
	}))

	sender := &recordingSender{}
	q := New(strategy, sender, nil, WithAcquireTimeout(10*time.Millisecond), WithSendFailedDelay(10*time.Millisecond))

	go q.Run()
	defer q.Stop()

	var sentMsg model.GWMessage
	require.Eventually(t, func() bool {
		m, ok := sender.last()
		if ok {
			sentMsg = m
		}
		return ok
	}, time.Second, 5*time.Millisecond)

	require.False(t, strategy.Empty(), "strategy must not advance before confirm")

	q.OnOther(model.GWMessage{ID: sentMsg.ID, Kind: model.MessageSensorDataConfirm})

	require.Eventually(t, func() bool { return strategy.Empty() }, time.Second, 5*time.Millisecond)
}

func TestQueuingExporterIgnoresUnrelatedConfirm(t *testing.T) {
	strategy := queue.NewInMemory()
	sender := &recordingSender{}
	q := New(strategy, sender, nil)

	q.OnOther(model.GWMessage{Kind: model.MessageSensorDataConfirm})
}
