// Package queue implements the FIFO of SensorData batches that sits
// between the export pipeline and the server connector (C3): an
// in-memory variant for tests, a journal-backed persistent variant, and a
// recoverable wrapper that repairs the on-disk state at startup.
package queue

import "github.com/beeeon/gateway/model"

// Strategy is a persistent or in-memory FIFO of SensorData batches, with
// a stable peek and an explicit pop.
type Strategy interface {
	// Empty reports whether the strategy currently holds no data.
	Empty() bool

	// Push persists batch as a single unit.
	Push(batch []model.SensorData) error

	// Peek appends up to count items (oldest first) to out and returns
	// how many were appended. Calling Peek repeatedly without an
	// intervening Pop returns identical results.
	Peek(out *[]model.SensorData, count int) (int, error)

	// Pop drops the oldest count previously-peeked items.
	Pop(count int) error
}
