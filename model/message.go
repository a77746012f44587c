package model

// MessageKind discriminates the GWMessage sum type.
type MessageKind int

const (
	MessageNewDeviceRequest MessageKind = iota
	MessageNewDeviceGroupRequest
	MessageDeviceListRequest
	MessageLastValueRequest
	MessageListenRequest
	MessageSetValueRequest
	MessageUnpairRequest
	MessageDeviceAcceptRequest

	MessageGenericResponse
	MessageUnpairResponse

	MessageGenericAck
	MessageResponseWithAck

	MessageSensorDataExport
	MessageSensorDataConfirm
)

// IsRequest reports whether k is one of the Request variants.
func (k MessageKind) IsRequest() bool {
	switch k {
	case MessageNewDeviceRequest, MessageNewDeviceGroupRequest, MessageDeviceListRequest,
		MessageLastValueRequest, MessageListenRequest, MessageSetValueRequest,
		MessageUnpairRequest, MessageDeviceAcceptRequest:
		return true
	default:
		return false
	}
}

// IsResponse reports whether k is one of the Response variants.
func (k MessageKind) IsResponse() bool {
	return k == MessageGenericResponse || k == MessageUnpairResponse
}

// IsAck reports whether k is one of the Ack variants.
func (k MessageKind) IsAck() bool {
	return k == MessageGenericAck || k == MessageResponseWithAck
}

// ResponseStatus is the status carried by a Response message.
type ResponseStatus int

const (
	StatusAccepted ResponseStatus = iota
	StatusSuccess
	StatusFailed
)

func (s ResponseStatus) String() string {
	switch s {
	case StatusAccepted:
		return "ACCEPTED"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// GWMessage is the polymorphic envelope exchanged with the server. Three
// subfamilies: Request (expects a response), Response (status-bearing),
// Ack (confirms a response). SensorDataExport/SensorDataConfirm sit outside
// the request/response tree.
type GWMessage struct {
	ID   GlobalID
	Kind MessageKind

	// Response-only.
	Status ResponseStatus

	// Ack-only: status of the response being confirmed.
	AckStatus ResponseStatus

	// SensorDataExport-only.
	Data []SensorData

	// Payload for request variants, opaque to the connector/resender.
	Command Command
}

// RespondsTo reports whether this message (a Response or Ack) correlates to
// the request/response identified by id — true when the ids match.
func (m GWMessage) RespondsTo(id GlobalID) bool {
	return m.ID == id
}
