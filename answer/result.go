// Package answer implements the in-process future-like aggregates used to
// run a Command across multiple handlers: Result (C4, per-handler
// outcome), Answer (aggregates Results for one Command), and AnswerQueue
// (the event-driven collection an Answer is born into and dies with).
package answer

import (
	"fmt"

	"github.com/beeeon/gateway/model"
)

// Status is a Result's lifecycle stage. Monotonic: once it leaves
// PENDING, it cannot regress or change again.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Result is one handler's outcome of executing a Command, bound to the
// Answer that aggregates it. A Result shares its owning Answer's mutex:
// all status reads/writes are serialized through it.
//
// payload carries the handler's returned data, if any — the Go stand-in
// for the original's Result subtypes (e.g. ServerDeviceListResult):
// instead of a castable subclass, a handler that needs to return data
// sets payload and callers type-assert it back.
type Result struct {
	answer  *Answer
	status  Status
	payload any
}

// Status returns the current status.
func (r *Result) Status() Status {
	r.answer.mu.Lock()
	defer r.answer.mu.Unlock()
	return r.status
}

// Payload returns whatever the handler attached via SetPayload.
func (r *Result) Payload() any {
	r.answer.mu.Lock()
	defer r.answer.mu.Unlock()
	return r.payload
}

// SetPayload attaches handler-specific result data.
func (r *Result) SetPayload(v any) {
	r.answer.mu.Lock()
	r.payload = v
	r.answer.mu.Unlock()
}

// SetStatus transitions the result to s. Only PENDING -> SUCCESS|FAILED is
// a valid transition; setting the same status again is a no-op. Any other
// attempted change fails with ErrInvalidArgument and leaves the status
// untouched.
func (r *Result) SetStatus(s Status) error {
	r.answer.mu.Lock()
	defer r.answer.mu.Unlock()

	if r.status == s {
		return nil
	}
	if r.status != StatusPending {
		return fmt.Errorf("%w: invalid status change from %v to %v", model.ErrInvalidArgument, r.status, s)
	}

	r.status = s
	r.answer.notifyUpdatedLocked()
	return nil
}
