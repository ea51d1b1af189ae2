//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the research workflow over HTTP. Runs execute in the
// background; clients poll the status endpoint and answer review requests
// through the review endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/log"
	"github.com/researchaide/researchaide/orchestration"
)

// WorkflowService is the orchestration surface the server depends on.
// *orchestration.Orchestrator implements it.
type WorkflowService interface {
	Run(ctx context.Context, req orchestration.StartRequest) (*graph.ExecutionResult, error)
	Resume(ctx context.Context, sessionID string, payload any) (*graph.ExecutionResult, error)
	Status(ctx context.Context, sessionID string) (*orchestration.Status, error)
}

// Server is the HTTP front of the workflow service.
type Server struct {
	svc     WorkflowService
	handler http.Handler
}

// Options configure the server.
type Options struct {
	// AllowedOrigins is the CORS allow list. Empty allows all origins.
	AllowedOrigins []string
}

// Option overrides one server option.
type Option func(*Options)

// WithAllowedOrigins restricts CORS to the given origins.
func WithAllowedOrigins(origins []string) Option {
	return func(o *Options) { o.AllowedOrigins = origins }
}

// New creates a server around the given workflow service.
func New(svc WorkflowService, opts ...Option) *Server {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{svc: svc}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/workflows", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/v1/workflows/{id}", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/workflows/{id}/review", s.handleReview).Methods(http.MethodPost)
	r.HandleFunc("/v1/workflows/{id}/report", s.handleReport).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = c.Handler(r)
	return s
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve runs the server on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("server: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStart launches a workflow run in the background and returns its
// session id immediately.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req orchestration.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResearchQuery == "" {
		writeError(w, http.StatusBadRequest, "research_query is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	go func() {
		// The run outlives the HTTP request; progress is durable through
		// checkpoints either way.
		if _, err := s.svc.Run(context.Background(), req); err != nil {
			log.Errorf("server: workflow run %s failed: %v", req.SessionID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": req.SessionID,
		"status":     orchestration.StatusRunning,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	status, err := s.svc.Status(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, orchestration.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "workflow run not found")
			return
		}
		log.Errorf("server: status of %s failed: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to load workflow status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleReview answers a pending shortlist review and resumes the run in the
// background.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := s.svc.Status(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, orchestration.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "workflow run not found")
			return
		}
		log.Errorf("server: status of %s failed: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to load workflow status")
		return
	}
	if !status.IsWaitingForInput {
		writeError(w, http.StatusConflict, "workflow run is not awaiting review")
		return
	}

	go func() {
		if _, err := s.svc.Resume(context.Background(), sessionID, payload); err != nil {
			log.Errorf("server: resume of %s failed: %v", sessionID, err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": sessionID,
		"status":     orchestration.StatusRunning,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	status, err := s.svc.Status(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, orchestration.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "workflow run not found")
			return
		}
		log.Errorf("server: status of %s failed: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to load workflow status")
		return
	}
	if status.Report == nil {
		writeError(w, http.StatusConflict, "final report is not available yet")
		return
	}
	writeJSON(w, http.StatusOK, status.Report)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
