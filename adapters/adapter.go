// Package adapters defines the boundary between the gateway core and
// device-specific decoders. A DeviceManager in the original system is a
// CommandHandler and CommandSender bundled around one DevicePrefix; here
// that's captured as the minimal Adapter contract the dispatcher needs.
package adapters

import (
	"github.com/beeeon/gateway/answer"
	"github.com/beeeon/gateway/model"
)

// Adapter owns one DevicePrefix's paired devices and decodes their raw
// payloads into SensorData. It satisfies dispatch.Handler.
type Adapter interface {
	Prefix() model.DevicePrefix
	Accept(cmd *model.Command) (bool, error)
	Handle(cmd *model.Command, ans *answer.Answer)
}
