package exporter

import (
	"sync"

	"github.com/beeeon/gateway/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectedSender is the Sender plus connection-state surface the
// Optimistic exporter needs to decide whether forwarding is currently
// possible.
type ConnectedSender interface {
	Sender
	Connected() bool
}

// Optimistic ships each SensorData individually and immediately,
// without batching, capping the number of unconfirmed in-flight
// exports at exportNonConfirmed. Ship returns false (not an error) when
// the cap is reached or the connector is disconnected — the caller is
// expected to fall back to a persistent Strategy in that case.
type Optimistic struct {
	log                *zap.Logger
	sender             ConnectedSender
	exportNonConfirmed int

	mu      sync.Mutex
	inFlight map[model.GlobalID]struct{}
}

// NewOptimistic builds an Optimistic exporter allowing up to
// exportNonConfirmed concurrent unconfirmed exports.
func NewOptimistic(sender ConnectedSender, exportNonConfirmed int, log *zap.Logger) *Optimistic {
	if log == nil {
		log = zap.NewNop()
	}
	return &Optimistic{
		log:                log,
		sender:             sender,
		exportNonConfirmed: exportNonConfirmed,
		inFlight:           make(map[model.GlobalID]struct{}),
	}
}

// Ship attempts to forward data immediately. It returns false without
// error when the in-flight cap is reached or the connector is
// disconnected.
func (o *Optimistic) Ship(data model.SensorData) bool {
	if !o.sender.Connected() {
		return false
	}

	o.mu.Lock()
	if len(o.inFlight) >= o.exportNonConfirmed {
		o.mu.Unlock()
		return false
	}

	id := model.GlobalID(uuid.New())
	o.inFlight[id] = struct{}{}
	o.mu.Unlock()

	o.sender.Send(model.GWMessage{ID: id, Kind: model.MessageSensorDataExport, Data: []model.SensorData{data}})
	return true
}

// OnOther clears the in-flight entry for a confirmed export.
func (o *Optimistic) OnOther(msg model.GWMessage) {
	if msg.Kind != model.MessageSensorDataConfirm {
		return
	}

	o.mu.Lock()
	delete(o.inFlight, msg.ID)
	o.mu.Unlock()
}

// InFlight returns the current count of unconfirmed exports, for tests.
func (o *Optimistic) InFlight() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.inFlight)
}
