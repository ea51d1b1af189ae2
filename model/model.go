//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package model defines the interface between agents and large language
// models. Agents build a Request, the backend returns a single Response;
// structured outputs are requested through a JSON schema so agent payloads
// decode into typed structs without prompt-level format coaxing.
package model

import "context"

// Role identifies the author of a chat message.
type Role string

// Chat message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message in a model request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// JSONSchema asks the backend for native structured output conforming to
// Schema. Name is required by the OpenAI response_format contract.
type JSONSchema struct {
	Name        string
	Description string
	Schema      map[string]any
	Strict      bool
}

// Request is a chat completion request.
type Request struct {
	Messages []Message
	// JSONSchema, when set, constrains the response to the given schema.
	JSONSchema  *JSONSchema
	Temperature *float64
	MaxTokens   *int
}

// Usage reports token consumption of one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed chat response.
type Response struct {
	ID           string `json:"id,omitempty"`
	Model        string `json:"model,omitempty"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Info describes a model backend.
type Info struct {
	Name string
}

// Model is implemented by LLM backends.
type Model interface {
	// Info returns basic information about the model.
	Info() Info
	// GenerateContent performs one chat completion. The returned response is
	// complete; the call blocks until the backend answers or ctx is done.
	GenerateContent(ctx context.Context, request *Request) (*Response, error)
}

// Float returns a pointer to f, for optional request fields.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to i, for optional request fields.
func Int(i int) *int { return &i }
