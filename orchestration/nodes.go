//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/researchaide/researchaide/agent"
	"github.com/researchaide/researchaide/arxiv"
	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/log"
	"github.com/researchaide/researchaide/message"
)

// Graph node IDs.
const (
	NodeInitializeWorkflow     = "initialize_workflow"
	NodeFormulateSearchQueries = "formulate_search_queries"
	NodeExecuteSearch          = "execute_search"
	NodeAssessPaperRelevance   = "assess_paper_relevance"
	NodeCreateShortlist        = "create_shortlist"
	NodeAwaitShortlistReview   = "await_shortlist_review"
	NodeProcessDocuments       = "process_documents"
	NodeAnalyzeLiterature      = "analyze_literature"
	NodeResolveConflict        = "resolve_conflict"
	NodeIdentifyResearchGaps   = "identify_research_gaps"
	NodeGenerateDirections     = "generate_research_directions"
	NodeEvaluateDirections     = "evaluate_directions"
	NodeRefineDirections       = "refine_directions"
	NodeFinalizeOutput         = "finalize_output"
	NodeHandleError            = "handle_error"
)

// Search execution statuses reported by the search node.
const (
	SearchStatusSkippedNoQueries = "skipped_no_valid_queries"
	SearchStatusFoundResults     = "success_found_results"
	SearchStatusNoResults        = "success_no_results_found"
	SearchStatusPartialResults   = "success_partial_results"
)

// interruptKeyShortlistReview identifies the HITL pause point.
const interruptKeyShortlistReview = "shortlist_review"

// SearchClient is the paper search dependency of the workflow.
type SearchClient interface {
	Search(ctx context.Context, query string, maxResults int) ([]arxiv.Paper, error)
}

// enter emits the structured node-entry marker every node starts with.
func enter(nodeID string, state graph.State) {
	log.Infof("orchestration: entering node %s (session %s)",
		nodeID, stringFromState(state, KeySessionID))
}

// failure folds an expected node failure into the error state fields and an
// error_report message; nodes return it instead of raising.
func failure(state graph.State, nodeID string, err error) graph.State {
	sessionID := stringFromState(state, KeySessionID)
	log.Errorf("orchestration: node %s failed (session %s): %v", nodeID, sessionID, err)
	return graph.State{
		KeyErrorMessage:    err.Error(),
		KeyErrorSourceNode: nodeID + "_node",
		KeyErrorDetails:    fmt.Sprintf("%+v", err),
		KeyMessages: []message.AgentMessage{
			message.New(sessionID, nodeID, message.PerformativeErrorReport, map[string]any{
				"error":       err.Error(),
				"failed_node": nodeID,
			}),
		},
	}
}

// statusMessage builds an inform_result message from a node.
func statusMessage(state graph.State, nodeID string, content map[string]any) message.AgentMessage {
	return message.New(stringFromState(state, KeySessionID), nodeID,
		message.PerformativeInformResult, content)
}

// initializeWorkflow seeds the run: identifiers, counters, empty collections
// and the announcement message. A missing research query is the one fatal
// precondition of the whole workflow.
func (w *workflow) initializeWorkflow(ctx context.Context, state graph.State) (any, error) {
	enter(NodeInitializeWorkflow, state)

	query := stringFromState(state, KeyResearchQuery)
	if query == "" {
		return failure(state, NodeInitializeWorkflow,
			fmt.Errorf("research_query is required")), nil
	}
	sessionID := stringFromState(state, KeySessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	generalArea := stringFromState(state, KeyGeneralArea)
	prompt := fmt.Sprintf("Conduct a literature review on: %s", query)
	if generalArea != "" {
		prompt += fmt.Sprintf(" (general area: %s)", generalArea)
	}

	return graph.State{
		KeySessionID:          sessionID,
		KeyConversationID:     sessionID,
		KeyInitialPhDPrompt:   prompt,
		KeyIterationCount:     0,
		KeyRetryAttempts:      map[string]int{},
		KeyConstructedQueries: []agent.FormulatedQuery{},
		KeyRawArxivResults:    []arxiv.Paper{},
		KeyAnalyzedPapers:     []AnalyzedPaper{},
		KeyShortlistedPapers:  []arxiv.Paper{},
		KeyProcessedDocuments: []IngestionReport{},
		KeyConflictDetected:   false,
		KeyMessages: []message.AgentMessage{
			message.New(sessionID, NodeInitializeWorkflow, message.PerformativeInformState, map[string]any{
				"status":         "workflow_initialized",
				"research_query": query,
			}),
		},
	}, nil
}

// formulateSearchQueries asks the PhD role for search queries. Zero queries
// is a warning, not a failure; the search node short-circuits on it.
func (w *workflow) formulateSearchQueries(ctx context.Context, state graph.State) (any, error) {
	enter(NodeFormulateSearchQueries, state)

	query := stringFromState(state, KeyResearchQuery)
	queries, err := w.phd.FormulateSearchQueries(ctx, query, stringFromState(state, KeyGeneralArea))
	if err != nil {
		return failure(state, NodeFormulateSearchQueries, err), nil
	}
	if len(queries) == 0 {
		log.Warnf("orchestration: no search queries formulated for %q", query)
	}
	return graph.State{
		KeyConstructedQueries: queries,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeFormulateSearchQueries, map[string]any{
				"status":      "queries_formulated",
				"query_count": len(queries),
			}),
		},
	}, nil
}

// executeSearch runs every constructed query against the search adapter.
// Per-query failures are isolated; the node only fails when the adapter is
// missing entirely.
func (w *workflow) executeSearch(ctx context.Context, state graph.State) (any, error) {
	enter(NodeExecuteSearch, state)

	queries := ConstructedQueries(state)
	if len(queries) == 0 {
		return graph.State{
			KeyRawArxivResults:       []arxiv.Paper{},
			KeySearchExecutionStatus: SearchStatusSkippedNoQueries,
			KeyMessages: []message.AgentMessage{
				statusMessage(state, NodeExecuteSearch, map[string]any{
					"status": SearchStatusSkippedNoQueries,
				}),
			},
		}, nil
	}

	var results []arxiv.Paper
	failed := 0
	for _, q := range queries {
		papers, err := w.search.Search(ctx, q.QueryString, w.opts.MaxResultsPerQuery)
		if err != nil {
			failed++
			log.Warnf("orchestration: search query %q failed: %v", q.QueryString, err)
			continue
		}
		// Aggregated flat, not deduplicated; downstream stages tolerate
		// repeats.
		results = append(results, papers...)
	}

	status := SearchStatusNoResults
	switch {
	case len(results) > 0 && failed > 0:
		status = SearchStatusPartialResults
	case len(results) > 0:
		status = SearchStatusFoundResults
	}
	if results == nil {
		results = []arxiv.Paper{}
	}
	return graph.State{
		KeyRawArxivResults:       results,
		KeySearchExecutionStatus: status,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeExecuteSearch, map[string]any{
				"status":         status,
				"result_count":   len(results),
				"failed_queries": failed,
			}),
		},
	}, nil
}

// assessPaperRelevance scores every raw result against the research topic.
// Per-paper assessment failures degrade to a not-relevant default instead of
// failing the node.
func (w *workflow) assessPaperRelevance(ctx context.Context, state graph.State) (any, error) {
	enter(NodeAssessPaperRelevance, state)

	papers := RawResults(state)
	query := stringFromState(state, KeyResearchQuery)
	analyzed := make([]AnalyzedPaper, 0, len(papers))
	for _, paper := range papers {
		assessment, err := w.phd.AssessPaperRelevance(ctx, agent.PaperSummary{
			PaperID:  paper.ID,
			Title:    paper.Title,
			Abstract: paper.Summary,
		}, query)
		if err != nil {
			log.Warnf("orchestration: relevance assessment of %s failed: %v", paper.ID, err)
			analyzed = append(analyzed, AnalyzedPaper{Paper: paper})
			continue
		}
		analyzed = append(analyzed, AnalyzedPaper{
			Paper:          paper,
			IsRelevant:     assessment.IsRelevant,
			RelevanceScore: assessment.RelevanceScore,
		})
	}
	return graph.State{
		KeyAnalyzedPapers: analyzed,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeAssessPaperRelevance, map[string]any{
				"status":         "papers_assessed",
				"assessed_count": len(analyzed),
			}),
		},
	}, nil
}

// createShortlist filters the assessed papers by the relevance threshold.
func (w *workflow) createShortlist(ctx context.Context, state graph.State) (any, error) {
	enter(NodeCreateShortlist, state)

	var shortlist []arxiv.Paper
	for _, ap := range AnalyzedPapers(state) {
		if ap.IsRelevant && ap.RelevanceScore >= w.opts.ShortlistThreshold {
			shortlist = append(shortlist, ap.Paper)
		}
	}
	if shortlist == nil {
		shortlist = []arxiv.Paper{}
	}
	return graph.State{
		KeyShortlistedPapers: shortlist,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeCreateShortlist, map[string]any{
				"status":          "shortlist_created",
				"shortlist_count": len(shortlist),
			}),
		},
	}, nil
}

// awaitShortlistReview pauses the run for human confirmation of the
// shortlist. With review disabled or an empty shortlist it auto-confirms.
// The resume payload replaces the shortlist.
func (w *workflow) awaitShortlistReview(ctx context.Context, state graph.State) (any, error) {
	enter(NodeAwaitShortlistReview, state)

	shortlist := ShortlistedPapers(state)
	if !w.opts.ReviewEnabled || len(shortlist) == 0 {
		return graph.State{
			KeyMessages: []message.AgentMessage{
				statusMessage(state, NodeAwaitShortlistReview, map[string]any{
					"status": "shortlist_auto_confirmed",
					"count":  len(shortlist),
				}),
			},
		}, nil
	}

	resumeValue, err := graph.Interrupt(ctx, state, interruptKeyShortlistReview, map[string]any{
		"prompt":             "Review the shortlisted papers and confirm which to process.",
		KeyShortlistedPapers: shortlist,
	})
	if err != nil {
		return nil, err
	}

	confirmed := decodeConfirmedPapers(resumeValue)
	if confirmed == nil {
		// An unusable review payload keeps the full shortlist rather than
		// silently dropping every paper.
		log.Warnf("orchestration: unusable shortlist review payload, keeping full shortlist")
		confirmed = shortlist
	}
	return graph.State{
		KeyShortlistedPapers: confirmed,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeAwaitShortlistReview, map[string]any{
				"status":          "shortlist_confirmed_by_reviewer",
				"confirmed_count": len(confirmed),
			}),
		},
	}, nil
}

// decodeConfirmedPapers extracts the confirmed paper list from a review
// payload: either the list itself or an object with a "confirmed_papers"
// field. Returns nil when neither shape matches.
func decodeConfirmedPapers(v any) []arxiv.Paper {
	if v == nil {
		return nil
	}
	holder := graph.State{"papers": v}
	if papers, ok := decodeState[[]arxiv.Paper](holder, "papers"); ok {
		return papers
	}
	if wrapper, ok := decodeState[map[string]any](holder, "papers"); ok {
		inner := graph.State{"papers": wrapper["confirmed_papers"]}
		if papers, ok := decodeState[[]arxiv.Paper](inner, "papers"); ok {
			return papers
		}
	}
	return nil
}

// processDocuments fetches, extracts and ingests every confirmed paper into
// the session index. Papers are processed in parallel on the worker pool;
// per-paper failures become failed ingestion reports.
func (w *workflow) processDocuments(ctx context.Context, state graph.State) (any, error) {
	enter(NodeProcessDocuments, state)

	papers := ShortlistedPapers(state)
	sessionID := stringFromState(state, KeySessionID)
	reports := make([]IngestionReport, len(papers))

	pool, err := ants.NewPool(w.opts.IngestWorkers)
	if err != nil {
		return failure(state, NodeProcessDocuments, fmt.Errorf("create worker pool: %w", err)), nil
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, paper := range papers {
		i, paper := i, paper
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			reports[i] = w.processOnePaper(ctx, sessionID, paper)
		})
		if submitErr != nil {
			reports[i] = IngestionReport{
				PaperID: paper.ID,
				Title:   paper.Title,
				Status:  IngestStatusFailed,
				Error:   submitErr.Error(),
			}
			wg.Done()
		}
	}
	wg.Wait()

	ingested := 0
	for _, r := range reports {
		if r.Status == IngestStatusIngested {
			ingested++
		}
	}
	return graph.State{
		KeyProcessedDocuments: reports,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeProcessDocuments, map[string]any{
				"status":         "documents_processed",
				"ingested_count": ingested,
				"failed_count":   len(reports) - ingested,
			}),
		},
	}, nil
}

func (w *workflow) processOnePaper(ctx context.Context, sessionID string, paper arxiv.Paper) IngestionReport {
	report := IngestionReport{PaperID: paper.ID, Title: paper.Title}

	text := paper.Summary
	if paper.PDFURL != "" {
		extracted, err := w.extractor.Text(ctx, paper.PDFURL)
		if err != nil {
			// Fall back to the abstract so one bad PDF does not drop the
			// paper from the analysis entirely.
			log.Warnf("orchestration: pdf extraction of %s failed, using abstract: %v", paper.ID, err)
		} else {
			text = extracted
		}
	}
	if text == "" {
		report.Status = IngestStatusFailed
		report.Error = "paper has no extractable text"
		return report
	}

	err := w.ingestor.Ingest(ctx, sessionID, paper.ID, text, map[string]string{
		"title": paper.Title,
	})
	if err != nil {
		report.Status = IngestStatusFailed
		report.Error = err.Error()
		return report
	}
	report.Status = IngestStatusIngested
	return report
}

// analyzeLiterature retrieves grounding excerpts from the session index and
// asks the PhD role for the synthesis. A synthesis inconsistent with
// available evidence raises the conflict flag for the resolution node.
func (w *workflow) analyzeLiterature(ctx context.Context, state graph.State) (any, error) {
	enter(NodeAnalyzeLiterature, state)

	sessionID := stringFromState(state, KeySessionID)
	query := stringFromState(state, KeyResearchQuery)

	var excerpts []string
	hits, err := w.ingestor.Search(ctx, sessionID, query, w.opts.AnalysisExcerpts)
	if err != nil {
		log.Warnf("orchestration: index search failed, falling back to abstracts: %v", err)
	}
	for _, hit := range hits {
		excerpts = append(excerpts, hit.Text)
	}
	if len(excerpts) == 0 {
		for _, paper := range ShortlistedPapers(state) {
			if paper.Summary != "" {
				excerpts = append(excerpts, paper.Summary)
			}
		}
	}

	analysis, err := w.phd.AnalyzeLiterature(ctx, query, excerpts)
	if err != nil {
		return failure(state, NodeAnalyzeLiterature, err), nil
	}

	// Evidence present but an empty synthesis means the analysis contradicts
	// its inputs; hand it to the conflict resolver.
	conflict := len(excerpts) > 0 &&
		analysis.OverallSummary == "" && len(analysis.KeyThemes) == 0
	return graph.State{
		KeyLiteratureAnalysis: analysis,
		KeyConflictDetected:   conflict,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeAnalyzeLiterature, map[string]any{
				"status":            "literature_analyzed",
				"excerpt_count":     len(excerpts),
				"conflict_detected": conflict,
			}),
		},
	}, nil
}

// resolveConflict applies the default resolution strategy: keep the existing
// analysis and clear the flag so the run proceeds.
func (w *workflow) resolveConflict(ctx context.Context, state graph.State) (any, error) {
	enter(NodeResolveConflict, state)

	return graph.State{
		KeyConflictDetected: false,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeResolveConflict, map[string]any{
				"status":              "conflict_resolved",
				"resolution_strategy": "keep_existing_analysis",
			}),
		},
	}, nil
}

// identifyResearchGaps derives gaps from the literature analysis.
func (w *workflow) identifyResearchGaps(ctx context.Context, state graph.State) (any, error) {
	enter(NodeIdentifyResearchGaps, state)

	analysis := Analysis(state)
	if analysis == nil {
		return failure(state, NodeIdentifyResearchGaps,
			fmt.Errorf("literature analysis is missing")), nil
	}
	gaps, err := w.phd.IdentifyResearchGaps(ctx, stringFromState(state, KeyResearchQuery), analysis)
	if err != nil {
		return failure(state, NodeIdentifyResearchGaps, err), nil
	}
	return graph.State{
		KeyResearchGaps: gaps,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeIdentifyResearchGaps, map[string]any{
				"status":    "gaps_identified",
				"gap_count": len(gaps),
			}),
		},
	}, nil
}

// generateResearchDirections proposes the first round of directions and
// resets the refinement counter.
func (w *workflow) generateResearchDirections(ctx context.Context, state graph.State) (any, error) {
	enter(NodeGenerateDirections, state)

	directions, err := w.phd.GenerateResearchDirections(ctx, Gaps(state), Analysis(state))
	if err != nil {
		return failure(state, NodeGenerateDirections, err), nil
	}
	if len(directions) == 0 {
		return failure(state, NodeGenerateDirections,
			fmt.Errorf("no research directions were generated")), nil
	}
	return graph.State{
		KeyResearchDirections: directions,
		KeyIterationCount:     0,
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeGenerateDirections, map[string]any{
				"status":          "directions_generated",
				"direction_count": len(directions),
			}),
		},
	}, nil
}

// evaluateDirections obtains the PostDoc verdict on the current directions.
func (w *workflow) evaluateDirections(ctx context.Context, state graph.State) (any, error) {
	enter(NodeEvaluateDirections, state)

	evaluation, err := w.postdoc.EvaluateDirections(ctx, Directions(state))
	if err != nil {
		return failure(state, NodeEvaluateDirections, err), nil
	}
	return graph.State{
		KeyPostDocEvaluation: evaluation,
		KeyEvaluationResults: evaluation.Assessments,
		KeyMessages: []message.AgentMessage{
			message.New(stringFromState(state, KeySessionID), NodeEvaluateDirections,
				message.PerformativeProvideFeedback, map[string]any{
					"status":       "directions_evaluated",
					"score":        evaluation.Score,
					"accept_as_is": evaluation.AcceptAsIs,
				}),
		},
	}, nil
}

// refineDirections reworks the directions against the critique. The refined
// set replaces research_directions for the next evaluation round, and this
// node owns the iteration counter increment.
func (w *workflow) refineDirections(ctx context.Context, state graph.State) (any, error) {
	enter(NodeRefineDirections, state)

	evaluation := Evaluation(state)
	if evaluation == nil {
		return failure(state, NodeRefineDirections,
			fmt.Errorf("no evaluation available to refine against")), nil
	}
	current := Directions(state)
	refined, err := w.phd.RefineDirections(ctx, current, evaluation.Critique)
	if err != nil {
		return failure(state, NodeRefineDirections, err), nil
	}
	iteration := intFromState(state, KeyIterationCount) + 1
	return graph.State{
		KeyResearchDirections: refined,
		KeyRefinedDirections:  refined,
		KeyIterationCount:     iteration,
		KeyCritiqueRequestDetails: map[string]any{
			"iteration": iteration,
			"critique":  evaluation.Critique,
		},
		KeyMessages: []message.AgentMessage{
			statusMessage(state, NodeRefineDirections, map[string]any{
				"status":    "directions_refined",
				"iteration": iteration,
			}),
		},
	}, nil
}

// finalizeOutput assembles the final report and closes the run with the
// success outcome.
func (w *workflow) finalizeOutput(ctx context.Context, state graph.State) (any, error) {
	enter(NodeFinalizeOutput, state)

	sessionID := stringFromState(state, KeySessionID)
	report := FinalReport{
		SessionID:          sessionID,
		ResearchQuery:      stringFromState(state, KeyResearchQuery),
		LiteratureAnalysis: Analysis(state),
		ResearchGaps:       Gaps(state),
		Directions:         Directions(state),
		Evaluation:         Evaluation(state),
		ProcessedDocuments: ProcessedDocuments(state),
		TotalIterations:    intFromState(state, KeyIterationCount),
		GeneratedAt:        time.Now().UTC(),
	}
	return graph.State{
		KeyFinalReport:                report,
		KeyErrorMessage:               nil,
		KeyErrorSourceNode:            nil,
		KeyErrorDetails:               nil,
		graph.StateKeyWorkflowOutcome: graph.OutcomeSuccess,
		KeyMessages: []message.AgentMessage{
			message.New(sessionID, NodeFinalizeOutput, message.PerformativeInformResult, map[string]any{
				"status":           "workflow_completed",
				"direction_count":  len(report.Directions),
				"total_iterations": report.TotalIterations,
			}),
		},
	}, nil
}

// handleError is the centralized error node: a failed node gets a bounded
// number of retries (clearing the error and routing back to it); past the
// budget the run terminates with the error outcome.
func (w *workflow) handleError(ctx context.Context, state graph.State) (any, error) {
	enter(NodeHandleError, state)

	sessionID := stringFromState(state, KeySessionID)
	errMsg := stringFromState(state, KeyErrorMessage)
	source := stringFromState(state, KeyErrorSourceNode)
	failedNode := nodeFromErrorSource(source)

	retries := RetryAttempts(state)
	attempts := retries[source]

	if failedNode != "" && attempts < w.opts.MaxRetries {
		retries[source] = attempts + 1
		log.Infof("orchestration: retrying node %s (attempt %d/%d, session %s)",
			failedNode, attempts+1, w.opts.MaxRetries, sessionID)
		return &graph.Command{
			Update: graph.State{
				KeyRetryAttempts:   retries,
				KeyErrorMessage:    nil,
				KeyErrorSourceNode: nil,
				KeyErrorDetails:    nil,
				KeyMessages: []message.AgentMessage{
					message.New(sessionID, NodeHandleError, message.PerformativeErrorReport, map[string]any{
						"failed_node":       failedNode,
						"error_message":     errMsg,
						"chosen_strategy":   "retry_node",
						"retries_attempted": attempts + 1,
					}),
				},
			},
			GoTo: failedNode,
		}, nil
	}

	log.Warnf("orchestration: terminating run %s after error in %s: %s", sessionID, source, errMsg)
	return &graph.Command{
		Update: graph.State{
			graph.StateKeyWorkflowOutcome: graph.OutcomeError,
			KeyMessages: []message.AgentMessage{
				message.New(sessionID, NodeHandleError, message.PerformativeErrorReport, map[string]any{
					"failed_node":       source,
					"error_message":     errMsg,
					"chosen_strategy":   "terminate_safely",
					"retries_attempted": attempts,
				}),
			},
		},
		GoTo: graph.End,
	}, nil
}
