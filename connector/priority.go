// Package connector implements GWSConnector (C7): the priority
// multi-queue outbound sender and the inbound event fan-out of the
// gateway-to-server link.
package connector

import (
	"sync"

	"github.com/beeeon/gateway/model"
)

// QueueCount is N, the number of priority queues (0 = most urgent).
const QueueCount = 4

// AssignQueue maps an outgoing message to its priority queue index per
// the default GWSPriorityAssigner table.
func AssignQueue(kind model.MessageKind) int {
	switch kind {
	case model.MessageGenericResponse, model.MessageGenericAck,
		model.MessageResponseWithAck, model.MessageUnpairResponse:
		return 0
	case model.MessageDeviceAcceptRequest, model.MessageDeviceListRequest,
		model.MessageLastValueRequest, model.MessageListenRequest,
		model.MessageNewDeviceRequest, model.MessageNewDeviceGroupRequest,
		model.MessageSetValueRequest, model.MessageUnpairRequest:
		return 1
	case model.MessageSensorDataExport:
		return 3
	default:
		return 2
	}
}

// statusRolloverLimit is the per-queue status counter ceiling from
// §4.7: once any counter reaches it, every counter is divided by it,
// preserving relative ratios while bounding growth.
const statusRolloverLimit = 16

// priorityCounters tracks one send counter per queue, the "status
// counter" of the selection algorithm.
type priorityCounters struct {
	mu     sync.Mutex
	status [QueueCount]uint64
}

func (c *priorityCounters) recordSend(queue int) {
	c.mu.Lock()
	c.status[queue]++
	if c.status[queue] >= statusRolloverLimit {
		for i := range c.status {
			c.status[i] /= statusRolloverLimit
		}
	}
	c.mu.Unlock()
}

func (c *priorityCounters) snapshot() [QueueCount]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// selectQueue implements the §4.7 output selection algorithm: for each
// non-empty queue i, S_i = sum of status_j over non-empty j>i; queue i
// is eligible if status_i <= S_i, or every lower-priority queue is
// empty. The highest-priority eligible non-empty queue wins; the last
// (lowest-priority, highest index) non-empty queue is always eligible
// as a fallback.
//
// nonEmpty[i] reports whether queue i currently has anything to send.
func (c *priorityCounters) selectQueue(nonEmpty [QueueCount]bool) (int, bool) {
	status := c.snapshot()

	lastNonEmpty := -1
	for i := 0; i < QueueCount; i++ {
		if nonEmpty[i] {
			lastNonEmpty = i
		}
	}
	if lastNonEmpty == -1 {
		return 0, false
	}

	for i := 0; i < QueueCount; i++ {
		if !nonEmpty[i] {
			continue
		}

		if i == lastNonEmpty {
			return i, true
		}

		var sum uint64
		allLowerEmpty := true
		for j := i + 1; j < QueueCount; j++ {
			if nonEmpty[j] {
				allLowerEmpty = false
				sum += status[j]
			}
		}

		if allLowerEmpty || status[i] <= sum {
			return i, true
		}
	}

	return lastNonEmpty, true
}
