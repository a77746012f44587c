package model

import (
	"encoding/json"
	"math"
)

// ModuleID is a non-negative index of a logical channel within a device.
type ModuleID uint32

// SensorValue is a single reading from one module. A nil Value means the
// reading is missing for this module.
type SensorValue struct {
	ModuleID ModuleID
	Value    *float64
}

// sensorValueJSON mirrors the wire shape of §6: {"module_id":N,"value":X|null}.
type sensorValueJSON struct {
	ModuleID ModuleID `json:"module_id"`
	Value    *float64 `json:"value"`
}

// MarshalJSON serializes the value, collapsing NaN/Inf and a missing
// reading to JSON null.
func (v SensorValue) MarshalJSON() ([]byte, error) {
	out := sensorValueJSON{ModuleID: v.ModuleID}
	if v.Value != nil && !math.IsNaN(*v.Value) && !math.IsInf(*v.Value, 0) {
		out.Value = v.Value
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the {"module_id":N,"value":X|null} shape.
func (v *SensorValue) UnmarshalJSON(b []byte) error {
	var in sensorValueJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	v.ModuleID = in.ModuleID
	v.Value = in.Value
	return nil
}

// SensorData is one device's reading of an ordered sequence of modules at a
// point in time. Immutable once shipped.
type SensorData struct {
	DeviceID  DeviceID
	Timestamp int64 // microseconds since Unix epoch
	Values    []SensorValue
}

type sensorDataJSON struct {
	DeviceID  DeviceID      `json:"device_id"`
	Timestamp int64         `json:"timestamp"`
	Data      []SensorValue `json:"data"`
}

// MarshalJSON serializes SensorData per §6's wire shape.
func (d SensorData) MarshalJSON() ([]byte, error) {
	return json.Marshal(sensorDataJSON{
		DeviceID:  d.DeviceID,
		Timestamp: d.Timestamp,
		Data:      d.Values,
	})
}

// UnmarshalJSON parses SensorData per §6's wire shape.
func (d *SensorData) UnmarshalJSON(b []byte) error {
	var in sensorDataJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	d.DeviceID = in.DeviceID
	d.Timestamp = in.Timestamp
	d.Values = in.Data
	return nil
}

// Value returns the value of the given module, and whether it is present.
func (d SensorData) Value(module ModuleID) (float64, bool) {
	for _, v := range d.Values {
		if v.ModuleID == module {
			if v.Value == nil {
				return 0, false
			}
			return *v.Value, true
		}
	}
	return 0, false
}
