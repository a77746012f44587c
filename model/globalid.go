package model

import "github.com/google/uuid"

// GlobalID is a 128-bit identifier of a message instance, used to correlate
// request/response/ack/confirm across the network.
type GlobalID = uuid.UUID

// NewGlobalID generates a fresh random GlobalID.
func NewGlobalID() GlobalID {
	return uuid.New()
}

// ZeroGlobalID is the nil GlobalID, never used for a real message.
var ZeroGlobalID GlobalID
