package beewi

import (
	"testing"

	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/model"
	"github.com/stretchr/testify/require"
)

func TestParseAdvertisingDataDecodesTemperatureHumidityBattery(t *testing.T) {
	id := model.NewDeviceID(model.PrefixBluetooth, 1)
	c := New(id)

	data := []byte{0x05, 0x00, 0xC8, 0x00, 0x00, 0x3C, 0x00, 0x00, 0x00, 0x00, 0x64}
	sd, err := c.ParseAdvertisingData(data)
	require.NoError(t, err)
	require.Equal(t, id, sd.DeviceID)

	temp, ok := sd.Value(TemperatureModuleID)
	require.True(t, ok)
	require.Equal(t, 20.0, temp)

	hum, ok := sd.Value(HumidityModuleID)
	require.True(t, ok)
	require.Equal(t, 60.0, hum)

	bat, ok := sd.Value(BatteryModuleID)
	require.True(t, ok)
	require.Equal(t, 100.0, bat)
}

func TestParseAdvertisingDataHandlesNegativeTemperatureSentinel(t *testing.T) {
	c := New(model.NewDeviceID(model.PrefixBluetooth, 2))

	data := []byte{0x05, 0x00, 0xFB, 0xFF, 0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x50}
	sd, err := c.ParseAdvertisingData(data)
	require.NoError(t, err)

	temp, ok := sd.Value(TemperatureModuleID)
	require.True(t, ok)
	require.InDelta(t, -0.4, temp, 1e-9)
}

func TestParseAdvertisingDataRejectsWrongLength(t *testing.T) {
	c := New(model.NewDeviceID(model.PrefixBluetooth, 3))
	_, err := c.ParseAdvertisingData([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, model.ErrProtocol)
}

func TestMatchRecognizesModelName(t *testing.T) {
	require.True(t, Match("BeeWi BBW200 rev3"))
	require.False(t, Match("Fitbit Charge"))
}

func TestAcceptAndHandleReturnLastReading(t *testing.T) {
	id := model.NewDeviceID(model.PrefixBluetooth, 4)
	c := New(id)

	cmd := model.ServerLastValueCommand(id, TemperatureModuleID, nil)
	accepted, err := c.Accept(&cmd)
	require.NoError(t, err)
	require.True(t, accepted)

	other := model.ServerLastValueCommand(model.NewDeviceID(model.PrefixBluetooth, 5), TemperatureModuleID, nil)
	accepted, err = c.Accept(&other)
	require.NoError(t, err)
	require.False(t, accepted)

	q := answer.NewAnswerQueue()
	ans, err := q.NewAnswer()
	require.NoError(t, err)
	ans.SetHandlersCount(1)

	c.Handle(&cmd, ans)
	require.False(t, ans.IsPending(), "handling without any prior reading must still resolve the result")

	_, err = c.ParseAdvertisingData([]byte{0x05, 0x00, 0xC8, 0x00, 0x00, 0x3C, 0x00, 0x00, 0x00, 0x00, 0x64})
	require.NoError(t, err)

	ans2, err := q.NewAnswer()
	require.NoError(t, err)
	ans2.SetHandlersCount(1)
	c.Handle(&cmd, ans2)

	results := ans2.Results()
	require.Len(t, results, 1)
	require.Equal(t, answer.StatusSuccess, results[0].Status())

	sd, ok := results[0].Payload().(model.SensorData)
	require.True(t, ok)
	temp, ok := sd.Value(TemperatureModuleID)
	require.True(t, ok)
	require.Equal(t, 20.0, temp)
}
