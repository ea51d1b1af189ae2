//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/orchestration"
)

type fakeService struct {
	runCh    chan orchestration.StartRequest
	resumeCh chan any
	statuses map[string]*orchestration.Status
}

func newFakeService() *fakeService {
	return &fakeService{
		runCh:    make(chan orchestration.StartRequest, 1),
		resumeCh: make(chan any, 1),
		statuses: map[string]*orchestration.Status{},
	}
}

func (f *fakeService) Run(ctx context.Context, req orchestration.StartRequest) (*graph.ExecutionResult, error) {
	f.runCh <- req
	return &graph.ExecutionResult{Outcome: graph.OutcomeSuccess}, nil
}

func (f *fakeService) Resume(ctx context.Context, sessionID string, payload any) (*graph.ExecutionResult, error) {
	f.resumeCh <- payload
	return &graph.ExecutionResult{Outcome: graph.OutcomeSuccess}, nil
}

func (f *fakeService) Status(ctx context.Context, sessionID string) (*orchestration.Status, error) {
	status, ok := f.statuses[sessionID]
	if !ok {
		return nil, orchestration.ErrRunNotFound
	}
	return status, nil
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getPath(handler http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for background call")
		panic("unreachable")
	}
}

func TestStartWorkflow(t *testing.T) {
	svc := newFakeService()
	handler := New(svc).Handler()

	rec := postJSON(t, handler, "/v1/workflows", map[string]string{
		"research_query": "automated literature review",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["session_id"])
	assert.Equal(t, orchestration.StatusRunning, resp["status"])

	started := waitFor(t, svc.runCh)
	assert.Equal(t, "automated literature review", started.ResearchQuery)
	assert.Equal(t, resp["session_id"], started.SessionID)
}

func TestStartWorkflowRequiresQuery(t *testing.T) {
	handler := New(newFakeService()).Handler()

	rec := postJSON(t, handler, "/v1/workflows", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "research_query is required")
}

func TestStartWorkflowRejectsBadBody(t *testing.T) {
	handler := New(newFakeService()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/workflows", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	svc := newFakeService()
	svc.statuses["sess-1"] = &orchestration.Status{
		SessionID:       "sess-1",
		Status:          orchestration.StatusRunning,
		CurrentStepName: "execute_search",
	}
	handler := New(svc).Handler()

	rec := getPath(handler, "/v1/workflows/sess-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var status orchestration.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "sess-1", status.SessionID)
	assert.Equal(t, "execute_search", status.CurrentStepName)
}

func TestStatusUnknownRun(t *testing.T) {
	handler := New(newFakeService()).Handler()

	rec := getPath(handler, "/v1/workflows/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewResumesAwaitingRun(t *testing.T) {
	svc := newFakeService()
	svc.statuses["sess-2"] = &orchestration.Status{
		SessionID:         "sess-2",
		Status:            orchestration.StatusAwaitingInput,
		IsWaitingForInput: true,
	}
	handler := New(svc).Handler()

	rec := postJSON(t, handler, "/v1/workflows/sess-2/review", map[string]any{
		"confirmed_papers": []map[string]string{{"id": "2401.00001"}},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	payload := waitFor(t, svc.resumeCh)
	m, ok := payload.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, m, "confirmed_papers")
}

func TestReviewConflictsWhenNotAwaiting(t *testing.T) {
	svc := newFakeService()
	svc.statuses["sess-3"] = &orchestration.Status{
		SessionID: "sess-3",
		Status:    orchestration.StatusRunning,
	}
	handler := New(svc).Handler()

	rec := postJSON(t, handler, "/v1/workflows/sess-3/review", map[string]any{"approved": true})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReviewUnknownRun(t *testing.T) {
	handler := New(newFakeService()).Handler()

	rec := postJSON(t, handler, "/v1/workflows/missing/review", map[string]any{"approved": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	svc := newFakeService()
	svc.statuses["sess-4"] = &orchestration.Status{
		SessionID: "sess-4",
		Status:    orchestration.StatusSuccess,
		Report: &orchestration.FinalReport{
			SessionID:     "sess-4",
			ResearchQuery: "automated literature review",
		},
	}
	handler := New(svc).Handler()

	rec := getPath(handler, "/v1/workflows/sess-4/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var report orchestration.FinalReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "automated literature review", report.ResearchQuery)
}

func TestReportNotReady(t *testing.T) {
	svc := newFakeService()
	svc.statuses["sess-5"] = &orchestration.Status{
		SessionID: "sess-5",
		Status:    orchestration.StatusRunning,
	}
	handler := New(svc).Handler()

	rec := getPath(handler, "/v1/workflows/sess-5/report")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	handler := New(newFakeService()).Handler()

	rec := getPath(handler, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	handler := New(newFakeService(), WithAllowedOrigins([]string{"http://localhost:3000"})).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/v1/workflows", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
