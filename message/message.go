//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package message provides the inter-agent communication record used by the
// research workflow. Messages are immutable once created and their insertion
// order in the workflow state is the causal order of events within a run.
package message

import (
	"time"

	"github.com/google/uuid"
)

// Performative classifies the communicative intent of an agent message.
type Performative string

// Closed set of performatives understood by the workflow.
const (
	PerformativeInformResult    Performative = "inform_result"
	PerformativeInformState     Performative = "inform_state"
	PerformativeRequestAction   Performative = "request_action"
	PerformativeRequestInfo     Performative = "request_info"
	PerformativeQueryData       Performative = "query_data"
	PerformativeProvideFeedback Performative = "provide_feedback"
	PerformativeConfirmAction   Performative = "confirm_action"
	PerformativeRejectAction    Performative = "reject_action"
	PerformativeErrorReport     Performative = "error_report"
	PerformativeStatusUpdate    Performative = "status_update"
	PerformativeSystemEvent     Performative = "system_event"
)

// Valid reports whether p is one of the known performatives.
func (p Performative) Valid() bool {
	switch p {
	case PerformativeInformResult, PerformativeInformState,
		PerformativeRequestAction, PerformativeRequestInfo,
		PerformativeQueryData, PerformativeProvideFeedback,
		PerformativeConfirmAction, PerformativeRejectAction,
		PerformativeErrorReport, PerformativeStatusUpdate,
		PerformativeSystemEvent:
		return true
	}
	return false
}

// AgentMessage is one record of inter-agent communication. Construct it with
// New and do not mutate it afterwards.
type AgentMessage struct {
	// MessageID uniquely identifies this message.
	MessageID string `json:"message_id"`
	// ConversationID ties the message to a workflow run. It is typically the
	// session id of the run that produced it.
	ConversationID string `json:"conversation_id"`
	// SenderAgentID names the node or agent that produced the message.
	SenderAgentID string `json:"sender_agent_id"`
	// ReceiverAgentID names the intended receiver. Empty means broadcast.
	ReceiverAgentID string `json:"receiver_agent_id,omitempty"`
	// Performative classifies the communicative intent.
	Performative Performative `json:"performative"`
	// Content carries the structured payload. It always contains a "type" key.
	Content map[string]any `json:"content"`
	// StructuredContent optionally mirrors a typed model output (an
	// assessment, an analysis) behind the free-form Content, so consumers
	// can pick up the parsed object without re-decoding Content.
	StructuredContent any `json:"structured_content,omitempty"`
	// Timestamp is the creation time in UTC.
	Timestamp time.Time `json:"timestamp"`
}

// Option configures an AgentMessage during construction.
type Option func(*AgentMessage)

// WithReceiver sets the intended receiver of the message.
func WithReceiver(receiver string) Option {
	return func(m *AgentMessage) {
		m.ReceiverAgentID = receiver
	}
}

// WithStructuredContent attaches the typed object mirrored by Content.
func WithStructuredContent(v any) Option {
	return func(m *AgentMessage) {
		m.StructuredContent = v
	}
}

// New creates an AgentMessage with a generated id and timestamp. The content
// argument may be a string or a map; it is normalized to a map with a "type"
// key so consumers never need to branch on the payload shape.
func New(conversationID, sender string, performative Performative, content any, opts ...Option) AgentMessage {
	m := AgentMessage{
		MessageID:      uuid.NewString(),
		ConversationID: conversationID,
		SenderAgentID:  sender,
		Performative:   performative,
		Content:        NormalizeContent(content),
		Timestamp:      time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// NormalizeContent converts free-form content into the canonical map form.
// Strings become {"type": "text", "text": s}; maps get a default "type" of
// "object" if missing; nil becomes an empty object.
func NormalizeContent(content any) map[string]any {
	switch c := content.(type) {
	case nil:
		return map[string]any{"type": "object"}
	case string:
		return map[string]any{"type": "text", "text": c}
	case map[string]any:
		out := make(map[string]any, len(c)+1)
		for k, v := range c {
			out[k] = v
		}
		if _, ok := out["type"]; !ok {
			out["type"] = "object"
		}
		return out
	default:
		return map[string]any{"type": "object", "value": c}
	}
}
