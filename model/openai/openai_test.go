//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/researchaide/researchaide/model"
)

const chatCompletionBody = `{
	"id": "chatcmpl-1",
	"model": "gpt-4o-mini",
	"choices": [
		{
			"index": 0,
			"finish_reason": "stop",
			"message": {"role": "assistant", "content": "formulated"}
		}
	],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateContent(t *testing.T) {
	srv := newStubServer(t)
	m := New("gpt-4o-mini", WithAPIKey("test-key"), WithBaseURL(srv.URL))

	rsp, err := m.GenerateContent(context.Background(), &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("you are a research assistant"),
			model.NewUserMessage("formulate queries"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", rsp.ID)
	assert.Equal(t, "formulated", rsp.Content)
	assert.Equal(t, "stop", rsp.FinishReason)
	require.NotNil(t, rsp.Usage)
	assert.Equal(t, 15, rsp.Usage.TotalTokens)
}

func TestGenerateContentNilRequest(t *testing.T) {
	m := New("gpt-4o-mini", WithAPIKey("test-key"))
	_, err := m.GenerateContent(context.Background(), nil)
	require.Error(t, err)
}

func TestGenerateContentRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := newStubServer(t)
	m := New("gpt-4o-mini", WithAPIKey("test-key"), WithBaseURL(srv.URL))

	_, err := m.GenerateContent(context.Background(), &model.Request{
		Messages: []model.Message{model.NewUserMessage("formulate queries")},
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "generate_content", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(),
		attribute.String("researchaide.model", "gpt-4o-mini"))
}
