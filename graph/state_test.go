//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchaide/researchaide/message"
)

func TestStateClone(t *testing.T) {
	s := State{"a": 1, "b": "x"}
	c := s.Clone()
	c["a"] = 2
	assert.Equal(t, 1, s["a"])
	assert.Equal(t, 2, c["a"])
}

func TestApplyUpdateDefaultOverwrites(t *testing.T) {
	schema := NewStateSchema()
	schema.AddField("counter", StateField{Type: reflect.TypeOf(0)})

	s := State{"counter": 1}
	merged := schema.ApplyUpdate(s, State{"counter": 5})
	assert.Equal(t, 5, merged["counter"])
	// Input state is untouched.
	assert.Equal(t, 1, s["counter"])
}

func TestApplyUpdateUnknownFieldOverwrites(t *testing.T) {
	schema := NewStateSchema()
	merged := schema.ApplyUpdate(State{"x": "old"}, State{"x": "new", "y": 2})
	assert.Equal(t, "new", merged["x"])
	assert.Equal(t, 2, merged["y"])
}

func TestMessageReducerAppends(t *testing.T) {
	schema := NewStateSchema()
	schema.AddField("messages", StateField{
		Type:    reflect.TypeOf([]message.AgentMessage{}),
		Reducer: MessageReducer,
		Default: func() any { return []message.AgentMessage{} },
	})

	m1 := message.New("s", "a", message.PerformativeInformState, "one")
	m2 := message.New("s", "b", message.PerformativeInformResult, "two")

	s := schema.ApplyUpdate(State{}, State{"messages": []message.AgentMessage{m1}})
	s = schema.ApplyUpdate(s, State{"messages": []message.AgentMessage{m2}})

	msgs := s["messages"].([]message.AgentMessage)
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.MessageID, msgs[0].MessageID)
	assert.Equal(t, m2.MessageID, msgs[1].MessageID)
}

func TestMessageReducerAfterJSONRoundTrip(t *testing.T) {
	// After a checkpoint reload the existing value is generic JSON; the
	// reducer must still append rather than overwrite.
	m1 := message.New("s", "a", message.PerformativeInformState, "one")
	raw, err := json.Marshal([]message.AgentMessage{m1})
	require.NoError(t, err)
	var generic any
	require.NoError(t, json.Unmarshal(raw, &generic))

	m2 := message.New("s", "b", message.PerformativeInformResult, "two")
	merged := MessageReducer(generic, []message.AgentMessage{m2})

	msgs, ok := merged.([]message.AgentMessage)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, m1.MessageID, msgs[0].MessageID)
	assert.Equal(t, m2.MessageID, msgs[1].MessageID)
}

func TestNormalizeMessages(t *testing.T) {
	assert.Empty(t, NormalizeMessages(nil))
	assert.Empty(t, NormalizeMessages("garbage"))

	m := message.New("s", "a", message.PerformativeStatusUpdate, "hi")
	got := NormalizeMessages([]message.AgentMessage{m})
	require.Len(t, got, 1)
	assert.Equal(t, m.MessageID, got[0].MessageID)
}

func TestMergeReducer(t *testing.T) {
	got := MergeReducer(map[string]any{"a": 1, "b": 2}, map[string]any{"b": 3})
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, got)
	// Non-map values fall back to overwrite.
	assert.Equal(t, "x", MergeReducer(1, "x"))
}

func TestSanitizedStripsInternalKeys(t *testing.T) {
	s := State{
		"visible":            1,
		StateKeyResume:       "resume-value",
		StateKeyUsedInterrupts: map[string]any{},
	}
	out := s.sanitized()
	assert.Equal(t, 1, out["visible"])
	assert.NotContains(t, out, StateKeyResume)
	assert.NotContains(t, out, StateKeyUsedInterrupts)
}

func TestValidateRequiredField(t *testing.T) {
	schema := NewStateSchema()
	schema.AddField("research_query", StateField{
		Type:     reflect.TypeOf(""),
		Required: true,
	})
	assert.Error(t, schema.Validate(State{}))
	assert.NoError(t, schema.Validate(State{"research_query": "q"}))
	assert.Error(t, schema.Validate(State{"research_query": 3}))
}
