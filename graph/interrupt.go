//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// InterruptError signals that a node wants to suspend the whole run until
// external input arrives. It is not a failure: the executor converts it into
// a durable interrupt checkpoint and a suspended execution result.
type InterruptError struct {
	// Value is the prompt surfaced to the outside world.
	Value any
	// NodeID is the node where the interrupt occurred. Filled by the executor.
	NodeID string
	// Key identifies the interrupt point within the node.
	Key string
	// Step is the step number when the interrupt occurred. Filled by the
	// executor.
	Step int
	// Timestamp is when the interrupt occurred.
	Timestamp time.Time
}

// Error returns the error message for the interrupt.
func (e *InterruptError) Error() string {
	return fmt.Sprintf("graph interrupted at node %s (step %d)", e.NodeID, e.Step)
}

// NewInterruptError creates a new InterruptError with the given key and value.
func NewInterruptError(key string, value any) *InterruptError {
	return &InterruptError{
		Key:       key,
		Value:     value,
		Timestamp: time.Now().UTC(),
	}
}

// AsInterruptError extracts an InterruptError from an error chain.
func AsInterruptError(err error) (*InterruptError, bool) {
	var ie *InterruptError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// Interrupt suspends execution at the current node unless a resume value for
// key is available, in which case that value is returned. The suspension is
// an application-level pause backed by a checkpoint, not a blocked goroutine:
// the node's returned InterruptError unwinds to the executor, which persists
// state and hands control back to the caller. A later Resume call re-enters
// the node, and this function then yields the supplied value.
func Interrupt(ctx context.Context, state State, key string, prompt any) (any, error) {
	used, _ := state[StateKeyUsedInterrupts].(map[string]any)
	if used == nil {
		used = make(map[string]any)
		state[StateKeyUsedInterrupts] = used
	}
	// A re-executed node sees the same resume value it consumed before.
	if v, ok := used[key]; ok {
		return v, nil
	}
	if v, ok := state[StateKeyResume]; ok {
		used[key] = v
		delete(state, StateKeyResume)
		return v, nil
	}
	return nil, NewInterruptError(key, prompt)
}
