// Package beewi decodes BeeWi Bluetooth LE advertising payloads into
// SensorData. SmartClim is the only worked decoder; the rest of the BeeWi
// family (and other technologies named in the gateway's scope) share the
// same Adapter contract but are not implemented here.
package beewi

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/model"
)

// Module layout of a SmartClim's SensorData, fixed by the device protocol.
const (
	TemperatureModuleID model.ModuleID = 0
	HumidityModuleID    model.ModuleID = 1
	BatteryModuleID     model.ModuleID = 2
)

// payloadSize is the fixed length of a SmartClim advertising payload:
// | id (1B) | 1B | temperature (2B) | 1B | humidity (1B) | 4B | battery (1B) |
const payloadSize = 11

// nameMarker is the substring a BLE advertised model name must contain to
// identify a SmartClim.
const nameMarker = "BeeWi BBW200"

// Match reports whether modelID names a BeeWi SmartClim.
func Match(modelID string) bool {
	return strings.Contains(modelID, nameMarker)
}

// SmartClim decodes one paired BeeWi SmartClim's advertising data and
// answers ServerLastValue commands for it with the most recent reading.
type SmartClim struct {
	deviceID model.DeviceID

	mu   sync.Mutex
	last model.SensorData
	have bool
}

// New builds a SmartClim adapter for the given paired device id.
func New(id model.DeviceID) *SmartClim {
	return &SmartClim{deviceID: id}
}

// DeviceID returns the paired device this adapter decodes for.
func (c *SmartClim) DeviceID() model.DeviceID { return c.deviceID }

// Prefix is always PrefixBluetooth for BeeWi devices.
func (c *SmartClim) Prefix() model.DevicePrefix { return model.PrefixBluetooth }

// ParseAdvertisingData decodes an 11-byte BLE advertising payload into
// SensorData, stamped with the current time, and caches it as the last
// known reading for subsequent ServerLastValue handling.
func (c *SmartClim) ParseAdvertisingData(data []byte) (model.SensorData, error) {
	if len(data) != payloadSize {
		return model.SensorData{}, fmt.Errorf("%w: expected %d B, received %d B",
			model.ErrProtocol, payloadSize, len(data))
	}

	var temperature float64
	if data[3] == 255 {
		temperature = float64(int(data[2]) - int(data[3])) / 10.0
	} else {
		temperature = float64(uint16(data[2])|uint16(data[3])<<8) / 10.0
	}
	humidity := float64(data[5])
	battery := float64(data[10])

	sd := model.SensorData{
		DeviceID:  c.deviceID,
		Timestamp: time.Now().UnixMicro(),
		Values: []model.SensorValue{
			{ModuleID: TemperatureModuleID, Value: &temperature},
			{ModuleID: HumidityModuleID, Value: &humidity},
			{ModuleID: BatteryModuleID, Value: &battery},
		},
	}

	c.mu.Lock()
	c.last = sd
	c.have = true
	c.mu.Unlock()

	return sd, nil
}

// Accept handles ServerLastValue for this adapter's own device.
func (c *SmartClim) Accept(cmd *model.Command) (bool, error) {
	return cmd.Kind == model.CommandServerLastValue && cmd.DeviceID == c.deviceID, nil
}

// Handle answers with the last decoded reading for the requested module, or
// fails the Result if nothing has been received yet or the module is
// missing from the last reading.
func (c *SmartClim) Handle(cmd *model.Command, ans *answer.Answer) {
	r := ans.AddResult()

	c.mu.Lock()
	last, have := c.last, c.have
	c.mu.Unlock()

	if !have {
		_ = r.SetStatus(answer.StatusFailed)
		return
	}
	if _, ok := last.Value(cmd.ModuleID); !ok {
		_ = r.SetStatus(answer.StatusFailed)
		return
	}

	r.SetPayload(last)
	_ = r.SetStatus(answer.StatusSuccess)
}
