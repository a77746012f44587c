package exporter

import (
	"testing"

	"github.com/beeeon/gateway/model"
	"github.com/stretchr/testify/require"
)

type fakeConnectedSender struct {
	recordingSender
	connected bool
}

func (f *fakeConnectedSender) Connected() bool { return f.connected }

func TestOptimisticRespectsInFlightCap(t *testing.T) {
	sender := &fakeConnectedSender{connected: true}
	o := NewOptimistic(sender, 1, nil)

	ok := o.Ship(model.SensorData{Timestamp: 1})
	require.True(t, ok)
	require.Equal(t, 1, o.InFlight())

	ok = o.Ship(model.SensorData{Timestamp: 2})
	require.False(t, ok, "must refuse beyond the in-flight cap")
}

func TestOptimisticRefusesWhenDisconnected(t *testing.T) {
	sender := &fakeConnectedSender{connected: false}
	o := NewOptimistic(sender, 5, nil)

	ok := o.Ship(model.SensorData{Timestamp: 1})
	require.False(t, ok)
}

func TestOptimisticFreesSlotOnConfirm(t *testing.T) {
	sender := &fakeConnectedSender{connected: true}
	o := NewOptimistic(sender, 1, nil)

	require.True(t, o.Ship(model.SensorData{Timestamp: 1}))
	sent, ok := sender.last()
	require.True(t, ok)

	o.OnOther(model.GWMessage{ID: sent.ID, Kind: model.MessageSensorDataConfirm})
	require.Equal(t, 0, o.InFlight())

	require.True(t, o.Ship(model.SensorData{Timestamp: 2}))
}
