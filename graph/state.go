//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/researchaide/researchaide/message"
)

// Execution-status keys maintained by the executor. They are a projection for
// external pollers; control flow itself lives in node and edge logic.
const (
	// StateKeyCurrentStep is the label of the node currently (or last) executed.
	StateKeyCurrentStep = "current_step_name"
	// StateKeyAwaitingInput is set to true while the run is suspended at a
	// human-in-the-loop interrupt.
	StateKeyAwaitingInput = "is_waiting_for_input"
	// StateKeyWorkflowOutcome is the terminal outcome of the run.
	StateKeyWorkflowOutcome = "workflow_outcome"
)

// Internal state keys. Keys with the "__" prefix are never persisted into
// checkpoints.
const (
	// StateKeyResume carries the externally supplied resume value while a
	// suspended run is being re-entered.
	StateKeyResume = "__resume__"
	// StateKeyUsedInterrupts tracks interrupt keys already satisfied in this
	// invocation so a re-executed node sees the same resume value.
	StateKeyUsedInterrupts = "__used_interrupts__"

	internalKeyPrefix = "__"
)

// State is the shared data structure that flows through the graph. Nodes
// receive the current state and return partial updates; they must never
// mutate the input in place.
type State map[string]any

// Clone creates a shallow copy of the state.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// sanitized returns a copy of the state without internal keys, suitable for
// checkpointing.
func (s State) sanitized() State {
	out := make(State, len(s))
	for k, v := range s {
		if strings.HasPrefix(k, internalKeyPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}

// StateReducer determines how a state update is merged into the existing
// value for one field.
type StateReducer func(existing, update any) any

// StateField defines a field in the state schema with its type and reducer.
type StateField struct {
	Type     reflect.Type
	Reducer  StateReducer
	Default  func() any
	Required bool
}

// StateSchema defines the structure and merge behavior of graph state.
type StateSchema struct {
	mu     sync.RWMutex
	Fields map[string]StateField
}

// NewStateSchema creates a new state schema.
func NewStateSchema() *StateSchema {
	return &StateSchema{Fields: make(map[string]StateField)}
}

// AddField adds a field to the state schema.
func (s *StateSchema) AddField(name string, field StateField) *StateSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	if field.Reducer == nil {
		field.Reducer = DefaultReducer
	}
	s.Fields[name] = field
	return s
}

// ApplyUpdate merges a partial update into the current state using the
// defined reducers. Fields without a schema entry overwrite.
func (s *StateSchema) ApplyUpdate(current State, update State) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := current.Clone()
	for key, updateValue := range update {
		field, exists := s.Fields[key]
		if !exists {
			result[key] = updateValue
			continue
		}
		currentValue, hasCurrent := result[key]
		if !hasCurrent && field.Default != nil {
			currentValue = field.Default()
		}
		result[key] = field.Reducer(currentValue, updateValue)
	}
	return result
}

// Validate validates a state against the schema.
func (s *StateSchema) Validate(state State) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, field := range s.Fields {
		value, exists := state[name]
		if field.Required && !exists {
			return fmt.Errorf("required field %s is missing", name)
		}
		if exists && value != nil && field.Type != nil {
			valueType := reflect.TypeOf(value)
			if !valueType.AssignableTo(field.Type) {
				return fmt.Errorf("field %s has wrong type: expected %v, got %v",
					name, field.Type, valueType)
			}
		}
	}
	return nil
}

// Common reducer functions.

// DefaultReducer overwrites the existing value with the update.
func DefaultReducer(existing, update any) any {
	return update
}

// AppendReducer appends update to the existing slice.
func AppendReducer(existing, update any) any {
	if existing == nil {
		existing = []any{}
	}
	existingSlice, ok1 := existing.([]any)
	updateSlice, ok2 := update.([]any)
	if !ok1 || !ok2 {
		return update
	}
	return append(existingSlice, updateSlice...)
}

// MergeReducer merges an update map into the existing map.
func MergeReducer(existing, update any) any {
	if existing == nil {
		existing = make(map[string]any)
	}
	existingMap, ok1 := existing.(map[string]any)
	updateMap, ok2 := update.(map[string]any)
	if !ok1 || !ok2 {
		return update
	}
	result := make(map[string]any, len(existingMap)+len(updateMap))
	for k, v := range existingMap {
		result[k] = v
	}
	for k, v := range updateMap {
		result[k] = v
	}
	return result
}

// MessageReducer appends agent messages so the log's length never shrinks.
// Either side may hold generic JSON values after a checkpoint reload; both
// are normalized before concatenation.
func MessageReducer(existing, update any) any {
	existingMsgs := NormalizeMessages(existing)
	updateMsgs := NormalizeMessages(update)
	return append(existingMsgs, updateMsgs...)
}

// NormalizeMessages coerces a state value into []message.AgentMessage. Values
// loaded from a checkpoint arrive as []any of map[string]any and are decoded
// through JSON. Unrecognized values yield an empty slice.
func NormalizeMessages(v any) []message.AgentMessage {
	switch msgs := v.(type) {
	case nil:
		return []message.AgentMessage{}
	case []message.AgentMessage:
		return msgs
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return []message.AgentMessage{}
		}
		var out []message.AgentMessage
		if err := json.Unmarshal(raw, &out); err != nil {
			return []message.AgentMessage{}
		}
		return out
	}
}
