//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/researchaide/researchaide/agent"
	"github.com/researchaide/researchaide/document"
	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/ingest"
)

// Default tuning knobs.
const (
	DefaultMaxIterationsRefine = 3
	DefaultMinAcceptableScore  = 0.6
	DefaultMaxResultsPerQuery  = 5
	DefaultShortlistThreshold  = 7.0
	DefaultMaxRetries          = 2
	DefaultIngestWorkers       = 4
	DefaultAnalysisExcerpts    = 8
)

// Dependencies are the external capabilities the workflow consumes.
type Dependencies struct {
	PhD       agent.PhD
	PostDoc   agent.PostDoc
	Search    SearchClient
	Extractor document.Extractor
	Ingestor  ingest.Service
	// Saver persists checkpoints; required, since HITL suspension depends
	// on durable state.
	Saver graph.CheckpointSaver
}

func (d Dependencies) validate() error {
	switch {
	case d.PhD == nil:
		return errors.New("phd agent is required")
	case d.PostDoc == nil:
		return errors.New("postdoc agent is required")
	case d.Search == nil:
		return errors.New("search client is required")
	case d.Extractor == nil:
		return errors.New("document extractor is required")
	case d.Ingestor == nil:
		return errors.New("ingest service is required")
	case d.Saver == nil:
		return errors.New("checkpoint saver is required")
	}
	return nil
}

// Options tune the workflow.
type Options struct {
	MaxIterationsRefine int
	MinAcceptableScore  float64
	MaxResultsPerQuery  int
	ShortlistThreshold  float64
	ReviewEnabled       bool
	MaxRetries          int
	IngestWorkers       int
	AnalysisExcerpts    int
}

// Option overrides one tuning knob.
type Option func(*Options)

// WithMaxIterationsRefine caps the refinement loop.
func WithMaxIterationsRefine(n int) Option {
	return func(o *Options) { o.MaxIterationsRefine = n }
}

// WithMinAcceptableScore sets the score threshold that ends refinement.
func WithMinAcceptableScore(s float64) Option {
	return func(o *Options) { o.MinAcceptableScore = s }
}

// WithMaxResultsPerQuery bounds each search query.
func WithMaxResultsPerQuery(n int) Option {
	return func(o *Options) { o.MaxResultsPerQuery = n }
}

// WithShortlistThreshold sets the relevance score a paper needs to be
// shortlisted.
func WithShortlistThreshold(t float64) Option {
	return func(o *Options) { o.ShortlistThreshold = t }
}

// WithReviewEnabled toggles the human shortlist review pause.
func WithReviewEnabled(enabled bool) Option {
	return func(o *Options) { o.ReviewEnabled = enabled }
}

// WithMaxRetries bounds per-node error recovery retries.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithIngestWorkers sizes the document processing worker pool.
func WithIngestWorkers(n int) Option {
	return func(o *Options) { o.IngestWorkers = n }
}

// WithAnalysisExcerpts sets how many indexed excerpts ground the literature
// analysis.
func WithAnalysisExcerpts(n int) Option {
	return func(o *Options) { o.AnalysisExcerpts = n }
}

// workflow holds the dependencies and options shared by all node functions.
type workflow struct {
	phd       agent.PhD
	postdoc   agent.PostDoc
	search    SearchClient
	extractor document.Extractor
	ingestor  ingest.Service
	opts      Options
}

// Orchestrator drives research workflow runs through the graph executor.
// One Orchestrator serves many concurrent runs; each run is keyed by its
// session id.
type Orchestrator struct {
	wf       *workflow
	executor *graph.Executor
	saver    graph.CheckpointSaver
}

// New creates an orchestrator with the given dependencies.
func New(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("orchestrator dependencies: %w", err)
	}
	o := Options{
		MaxIterationsRefine: DefaultMaxIterationsRefine,
		MinAcceptableScore:  DefaultMinAcceptableScore,
		MaxResultsPerQuery:  DefaultMaxResultsPerQuery,
		ShortlistThreshold:  DefaultShortlistThreshold,
		ReviewEnabled:       true,
		MaxRetries:          DefaultMaxRetries,
		IngestWorkers:       DefaultIngestWorkers,
		AnalysisExcerpts:    DefaultAnalysisExcerpts,
	}
	for _, opt := range opts {
		opt(&o)
	}

	wf := &workflow{
		phd:       deps.PhD,
		postdoc:   deps.PostDoc,
		search:    deps.Search,
		extractor: deps.Extractor,
		ingestor:  deps.Ingestor,
		opts:      o,
	}
	g, err := wf.buildGraph()
	if err != nil {
		return nil, err
	}
	executor, err := graph.NewExecutor(g, graph.WithCheckpointSaver(deps.Saver))
	if err != nil {
		return nil, err
	}
	return &Orchestrator{wf: wf, executor: executor, saver: deps.Saver}, nil
}

// buildGraph wires the workflow nodes and edges.
func (w *workflow) buildGraph() (*graph.Graph, error) {
	errorPaths := func(next string) map[string]string {
		return map[string]string{
			RouteErrorFound: NodeHandleError,
			RouteNoError:    next,
		}
	}
	return graph.NewStateGraph(NewStateSchema()).
		AddNode(NodeInitializeWorkflow, w.initializeWorkflow).
		AddNode(NodeFormulateSearchQueries, w.formulateSearchQueries).
		AddNode(NodeExecuteSearch, w.executeSearch).
		AddNode(NodeAssessPaperRelevance, w.assessPaperRelevance).
		AddNode(NodeCreateShortlist, w.createShortlist).
		AddNode(NodeAwaitShortlistReview, w.awaitShortlistReview).
		AddNode(NodeProcessDocuments, w.processDocuments).
		AddNode(NodeAnalyzeLiterature, w.analyzeLiterature).
		AddNode(NodeResolveConflict, w.resolveConflict).
		AddNode(NodeIdentifyResearchGaps, w.identifyResearchGaps).
		AddNode(NodeGenerateDirections, w.generateResearchDirections).
		AddNode(NodeEvaluateDirections, w.evaluateDirections).
		AddNode(NodeRefineDirections, w.refineDirections).
		AddNode(NodeFinalizeOutput, w.finalizeOutput).
		AddNode(NodeHandleError, w.handleError).
		SetEntryPoint(NodeInitializeWorkflow).
		AddConditionalEdges(NodeInitializeWorkflow, CheckForErrors, errorPaths(NodeFormulateSearchQueries)).
		AddConditionalEdges(NodeFormulateSearchQueries, CheckForErrors, errorPaths(NodeExecuteSearch)).
		AddConditionalEdges(NodeExecuteSearch, CheckForErrors, errorPaths(NodeAssessPaperRelevance)).
		AddConditionalEdges(NodeAssessPaperRelevance, CheckForErrors, errorPaths(NodeCreateShortlist)).
		AddConditionalEdges(NodeCreateShortlist, CheckForErrors, errorPaths(NodeAwaitShortlistReview)).
		AddEdge(NodeAwaitShortlistReview, NodeProcessDocuments).
		AddConditionalEdges(NodeProcessDocuments, CheckForErrors, errorPaths(NodeAnalyzeLiterature)).
		AddConditionalEdges(NodeAnalyzeLiterature, routeAfterAnalysis, map[string]string{
			RouteErrorFound:    NodeHandleError,
			RouteConflictFound: NodeResolveConflict,
			RouteNoConflict:    NodeIdentifyResearchGaps,
		}).
		AddEdge(NodeResolveConflict, NodeIdentifyResearchGaps).
		AddConditionalEdges(NodeIdentifyResearchGaps, CheckForErrors, errorPaths(NodeGenerateDirections)).
		AddConditionalEdges(NodeGenerateDirections, CheckForErrors, errorPaths(NodeEvaluateDirections)).
		AddConditionalEdges(NodeEvaluateDirections, w.routeAfterEvaluation, map[string]string{
			RouteErrorFound: NodeHandleError,
			RouteFinalize:   NodeFinalizeOutput,
			RouteRefine:     NodeRefineDirections,
		}).
		AddConditionalEdges(NodeRefineDirections, CheckForErrors, errorPaths(NodeEvaluateDirections)).
		SetFinishPoint(NodeFinalizeOutput).
		Compile()
}

// StartRequest begins a new workflow run.
type StartRequest struct {
	// ResearchQuery is the topic under investigation. Required.
	ResearchQuery string `json:"research_query"`
	// GeneralArea optionally scopes the topic.
	GeneralArea string `json:"general_area,omitempty"`
	// SessionID pins the run's identity; generated when empty.
	SessionID string `json:"session_id,omitempty"`
}

// Run executes a workflow to completion or suspension. The returned result
// carries the terminal or suspended state; poll Status for progress from
// other goroutines.
func (o *Orchestrator) Run(ctx context.Context, req StartRequest) (*graph.ExecutionResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	initial := graph.State{
		KeySessionID:     sessionID,
		KeyResearchQuery: req.ResearchQuery,
		KeyGeneralArea:   req.GeneralArea,
	}
	return o.executor.Execute(ctx, initial, sessionID)
}

// Resume continues a suspended run, handing reviewPayload to the
// interrupted node.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string, reviewPayload any) (*graph.ExecutionResult, error) {
	return o.executor.Resume(ctx, sessionID, reviewPayload)
}

// Run statuses reported to pollers.
const (
	StatusRunning       = "running"
	StatusAwaitingInput = graph.OutcomeAwaitingInput
	StatusSuccess       = graph.OutcomeSuccess
	StatusError         = graph.OutcomeError
)

// ErrorInfo surfaces a failed run's diagnosis.
type ErrorInfo struct {
	Message    string `json:"message"`
	SourceNode string `json:"source_node,omitempty"`
}

// Status is the poller-visible projection of one run.
type Status struct {
	SessionID         string       `json:"session_id"`
	Status            string       `json:"status"`
	CurrentStepName   string       `json:"current_step_name,omitempty"`
	IsWaitingForInput bool         `json:"is_waiting_for_input"`
	// Payload is the interrupt prompt while the run awaits input.
	Payload any          `json:"payload,omitempty"`
	Report  *FinalReport `json:"report,omitempty"`
	Error   *ErrorInfo   `json:"error,omitempty"`
}

// ErrRunNotFound reports an unknown session id.
var ErrRunNotFound = errors.New("workflow run not found")

// Status derives the current status of a run from its latest checkpoint.
func (o *Orchestrator) Status(ctx context.Context, sessionID string) (*Status, error) {
	ckpt, err := o.saver.Latest(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if ckpt == nil {
		return nil, ErrRunNotFound
	}

	state := ckpt.State
	st := &Status{
		SessionID:       sessionID,
		Status:          StatusRunning,
		CurrentStepName: stringFromState(state, graph.StateKeyCurrentStep),
		Report:          Report(state),
	}
	switch {
	case ckpt.InterruptState != nil:
		st.Status = StatusAwaitingInput
		st.IsWaitingForInput = true
		st.Payload = ckpt.InterruptState.Prompt
	case stringFromState(state, graph.StateKeyWorkflowOutcome) != "":
		st.Status = stringFromState(state, graph.StateKeyWorkflowOutcome)
	}
	if msg := stringFromState(state, KeyErrorMessage); msg != "" {
		st.Error = &ErrorInfo{
			Message:    msg,
			SourceNode: stringFromState(state, KeyErrorSourceNode),
		}
	}
	return st, nil
}
