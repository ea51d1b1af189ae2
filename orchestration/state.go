//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package orchestration wires the research workflow: graph state keys and
// schema, node functions, routing predicates and the Orchestrator that
// drives runs through the graph executor.
package orchestration

import (
	"encoding/json"
	"time"

	"github.com/researchaide/researchaide/agent"
	"github.com/researchaide/researchaide/arxiv"
	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/message"
)

// Graph state keys. One key per GraphState field; nodes communicate only
// through these.
const (
	KeySessionID        = "session_id"
	KeyConversationID   = "conversation_id"
	KeyResearchQuery    = "research_query"
	KeyGeneralArea      = "general_area"
	KeyInitialPhDPrompt = "initial_phd_prompt"

	KeyConstructedQueries    = "constructed_queries"
	KeyRawArxivResults       = "raw_arxiv_results"
	KeySearchExecutionStatus = "search_execution_status"
	KeyAnalyzedPapers        = "analyzed_papers"
	KeyShortlistedPapers     = "shortlisted_papers"
	KeyProcessedDocuments    = "processed_documents"

	KeyLiteratureAnalysis = "literature_analysis"
	KeyResearchGaps       = "research_gaps"
	KeyResearchDirections = "research_directions"
	KeyRefinedDirections  = "refined_directions"

	KeyPostDocEvaluation      = "postdoc_evaluation_output"
	KeyCritiqueRequestDetails = "critique_request_details"
	KeyEvaluationResults      = "evaluation_results"
	KeyFinalReport            = "final_report"

	KeyIterationCount = "iteration_count"
	KeyRetryAttempts  = "retry_attempts"
	KeyMessages       = "messages"

	KeyErrorMessage    = "error_message"
	KeyErrorSourceNode = "error_source_node"
	KeyErrorDetails    = "error_details"

	KeyConflictDetected = "conflict_detected"
)

// AnalyzedPaper couples a search result with its relevance assessment.
type AnalyzedPaper struct {
	Paper          arxiv.Paper `json:"paper"`
	IsRelevant     bool        `json:"is_relevant"`
	RelevanceScore float64     `json:"relevance_score"`
}

// IngestionReport records the outcome of processing one shortlisted paper.
type IngestionReport struct {
	PaperID    string `json:"paper_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Ingestion report statuses.
const (
	IngestStatusIngested = "ingested"
	IngestStatusFailed   = "failed"
)

// FinalReport is the user-facing terminal artifact of a successful run.
type FinalReport struct {
	SessionID          string                    `json:"session_id"`
	ResearchQuery      string                    `json:"research_query"`
	LiteratureAnalysis *agent.LiteratureAnalysis `json:"literature_analysis,omitempty"`
	ResearchGaps       []agent.ResearchGap       `json:"research_gaps,omitempty"`
	Directions         []agent.ResearchDirection `json:"directions"`
	Evaluation         *agent.PostDocEvaluation  `json:"evaluation,omitempty"`
	ProcessedDocuments []IngestionReport         `json:"processed_documents,omitempty"`
	TotalIterations    int                       `json:"total_iterations"`
	GeneratedAt        time.Time                 `json:"generated_at"`
}

// NewStateSchema builds the workflow state schema: scalars and collections
// overwrite, the message log appends. Field types are left open because
// checkpoint reloads surface generic JSON values; the typed accessors below
// re-decode on read.
func NewStateSchema() *graph.StateSchema {
	schema := graph.NewStateSchema()
	schema.AddField(KeyMessages, graph.StateField{
		Reducer: graph.MessageReducer,
		Default: func() any { return []message.AgentMessage{} },
	})
	return schema
}

// decodeState reads state[key] as T, re-decoding generic JSON values loaded
// from a checkpoint.
func decodeState[T any](state graph.State, key string) (T, bool) {
	var out T
	v, ok := state[key]
	if !ok || v == nil {
		return out, false
	}
	if typed, ok := v.(T); ok {
		return typed, true
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

func stringFromState(state graph.State, key string) string {
	s, _ := decodeState[string](state, key)
	return s
}

func intFromState(state graph.State, key string) int {
	switch v := state[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func boolFromState(state graph.State, key string) bool {
	b, _ := decodeState[bool](state, key)
	return b
}

// Typed accessors used by nodes, predicates and the HTTP layer.

// ConstructedQueries returns the formulated search queries.
func ConstructedQueries(state graph.State) []agent.FormulatedQuery {
	qs, _ := decodeState[[]agent.FormulatedQuery](state, KeyConstructedQueries)
	return qs
}

// RawResults returns the aggregated search results.
func RawResults(state graph.State) []arxiv.Paper {
	ps, _ := decodeState[[]arxiv.Paper](state, KeyRawArxivResults)
	return ps
}

// AnalyzedPapers returns the relevance-assessed papers.
func AnalyzedPapers(state graph.State) []AnalyzedPaper {
	ps, _ := decodeState[[]AnalyzedPaper](state, KeyAnalyzedPapers)
	return ps
}

// ShortlistedPapers returns the current shortlist.
func ShortlistedPapers(state graph.State) []arxiv.Paper {
	ps, _ := decodeState[[]arxiv.Paper](state, KeyShortlistedPapers)
	return ps
}

// ProcessedDocuments returns the per-paper ingestion reports.
func ProcessedDocuments(state graph.State) []IngestionReport {
	rs, _ := decodeState[[]IngestionReport](state, KeyProcessedDocuments)
	return rs
}

// Analysis returns the literature analysis, or nil before it exists.
func Analysis(state graph.State) *agent.LiteratureAnalysis {
	a, ok := decodeState[agent.LiteratureAnalysis](state, KeyLiteratureAnalysis)
	if !ok {
		return nil
	}
	return &a
}

// Gaps returns the identified research gaps.
func Gaps(state graph.State) []agent.ResearchGap {
	gs, _ := decodeState[[]agent.ResearchGap](state, KeyResearchGaps)
	return gs
}

// Directions returns the current research directions.
func Directions(state graph.State) []agent.ResearchDirection {
	ds, _ := decodeState[[]agent.ResearchDirection](state, KeyResearchDirections)
	return ds
}

// Evaluation returns the latest PostDoc verdict, or nil before one exists.
func Evaluation(state graph.State) *agent.PostDocEvaluation {
	e, ok := decodeState[agent.PostDocEvaluation](state, KeyPostDocEvaluation)
	if !ok {
		return nil
	}
	return &e
}

// Report returns the final report, or nil before finalization.
func Report(state graph.State) *FinalReport {
	r, ok := decodeState[FinalReport](state, KeyFinalReport)
	if !ok {
		return nil
	}
	return &r
}

// RetryAttempts returns the per-node retry counters.
func RetryAttempts(state graph.State) map[string]int {
	m, ok := decodeState[map[string]int](state, KeyRetryAttempts)
	if !ok {
		return map[string]int{}
	}
	return m
}
