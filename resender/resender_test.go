package resender

import (
	"sync"
	"testing"
	"time"

	"github.com/beeeon/gateway/model"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
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

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestResenderResendsAfterTimeout(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	r := New(sender, nil, WithClock(mock), WithResendTimeout(10*time.Second))

	go r.Run()
	defer r.Stop()

	id := model.GlobalID(uuid.New())
	msg := model.GWMessage{ID: id, Kind: model.MessageSensorDataExport}

	r.OnTrySend(msg)
	r.OnSent(msg)
	require.Equal(t, 1, r.Pending())

	mock.Add(11 * time.Second)

	require.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestResenderDropsOnConfirmingResponse(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	r := New(sender, nil, WithClock(mock), WithResendTimeout(10*time.Second))

	id := model.GlobalID(uuid.New())
	req := model.GWMessage{ID: id, Kind: model.MessageDeviceListRequest}
	r.OnTrySend(req)
	r.OnSent(req)
	require.Equal(t, 1, r.Pending())

	resp := model.GWMessage{ID: id, Kind: model.MessageGenericResponse, Status: model.StatusSuccess}
	r.OnResponse(resp)
	require.Equal(t, 0, r.Pending())
}

func TestResenderIgnoresNonMatchingAck(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	r := New(sender, nil, WithClock(mock), WithResendTimeout(10*time.Second))

	id := model.GlobalID(uuid.New())
	resp := model.GWMessage{ID: id, Kind: model.MessageResponseWithAck, Status: model.StatusSuccess}
	r.OnTrySend(resp)
	r.OnSent(resp)
	require.Equal(t, 1, r.Pending())

	staleAck := model.GWMessage{ID: id, AckStatus: model.StatusAccepted}
	r.OnAck(staleAck)
	require.Equal(t, 1, r.Pending(), "ack for superseded ACCEPTED must be ignored")

	matchingAck := model.GWMessage{ID: id, AckStatus: model.StatusSuccess}
	r.OnAck(matchingAck)
	require.Equal(t, 0, r.Pending())
}

func TestResenderRejectsOverridingTerminalResponseWithDifferentStatus(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	r := New(sender, nil, WithClock(mock), WithResendTimeout(10*time.Second))

	id := model.GlobalID(uuid.New())
	failed := model.GWMessage{ID: id, Kind: model.MessageResponseWithAck, Status: model.StatusFailed}
	r.OnTrySend(failed)
	r.OnSent(failed)

	accepted := model.GWMessage{ID: id, Kind: model.MessageResponseWithAck, Status: model.StatusAccepted}
	r.OnTrySend(accepted)
	r.OnSent(accepted)

	entry := r.refs[id]
	require.Equal(t, model.StatusFailed, entry.message.Status)
}

func TestResenderDropsOnSensorDataConfirm(t *testing.T) {
	mock := clock.NewMock()
	sender := &recordingSender{}
	r := New(sender, nil, WithClock(mock), WithResendTimeout(10*time.Second))

	id := model.GlobalID(uuid.New())
	export := model.GWMessage{ID: id, Kind: model.MessageSensorDataExport}
	r.OnTrySend(export)
	r.OnSent(export)
	require.Equal(t, 1, r.Pending())

	r.OnOther(model.GWMessage{ID: id, Kind: model.MessageSensorDataConfirm})
	require.Equal(t, 0, r.Pending())
}
