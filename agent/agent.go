//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the capability interfaces and data contracts of the
// two agent roles driving the research workflow: the PhD role generates
// (queries, analyses, gaps, directions) and the PostDoc role evaluates
// (novelty, feasibility, overall recommendation). Implementations live in
// the phd and postdoc subpackages; the orchestration layer depends only on
// the interfaces here so tests can substitute fakes.
package agent

import "context"

// FormulatedQuery is one search query produced by the PhD role.
type FormulatedQuery struct {
	// QueryString is the search query, optimized for the paper source.
	QueryString string `json:"query_string"`
	// SourceTopic is the research topic fragment this query targets.
	SourceTopic string `json:"source_topic"`
}

// PaperRelevanceAssessment scores one paper against the research topic.
// Scores run from 0 (irrelevant) to 10 (highly relevant).
type PaperRelevanceAssessment struct {
	PaperID        string  `json:"paper_id"`
	IsRelevant     bool    `json:"is_relevant"`
	RelevanceScore float64 `json:"relevance_score"`
	Justification  string  `json:"justification,omitempty"`
}

// LiteratureAnalysis is the PhD role's synthesis of the ingested papers.
type LiteratureAnalysis struct {
	ResearchTopic         string   `json:"research_topic"`
	OverallSummary        string   `json:"overall_summary"`
	KeyThemes             []string `json:"key_themes"`
	CommonMethodologies   []string `json:"common_methodologies"`
	IdentifiedLimitations []string `json:"identified_limitations"`
	FutureWorkSuggestions []string `json:"future_work_suggestions"`
}

// ResearchGap describes something missing or underexplored in the surveyed
// literature.
type ResearchGap struct {
	GapID                       string   `json:"gap_id"`
	Title                       string   `json:"title"`
	Description                 string   `json:"description"`
	SupportingEvidenceSummary   string   `json:"supporting_evidence_summary"`
	Keywords                    []string `json:"keywords"`
	PotentialQuestionsToExplore []string `json:"potential_questions_to_explore"`
}

// ResearchDirection is a proposed line of research addressing one or more
// gaps.
type ResearchDirection struct {
	DirectionID         string   `json:"direction_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Rationale           string   `json:"rationale"`
	PotentialImpact     string   `json:"potential_impact,omitempty"`
	PotentialChallenges string   `json:"potential_challenges,omitempty"`
	RelatedGapIDs       []string `json:"related_gap_ids,omitempty"`
}

// NoveltyAssessment scores how novel a direction is, 0 to 10.
type NoveltyAssessment struct {
	DirectionID           string   `json:"direction_id"`
	NoveltyScore          float64  `json:"novelty_score"`
	NoveltyJustification  string   `json:"novelty_justification"`
	RelatedWorkReferences []string `json:"related_work_references,omitempty"`
}

// FeasibilityAssessment scores how feasible a direction is, 0 to 10.
type FeasibilityAssessment struct {
	DirectionID              string   `json:"direction_id"`
	FeasibilityScore         float64  `json:"feasibility_score"`
	FeasibilityJustification string   `json:"feasibility_justification"`
	IdentifiedChallenges     []string `json:"identified_challenges"`
	SuggestedMitigations     []string `json:"suggested_mitigations,omitempty"`
}

// OverallAssessment is the PostDoc role's combined verdict on one direction.
type OverallAssessment struct {
	DirectionID string `json:"direction_id"`
	// NoveltyAssessment and FeasibilityAssessment are the component verdicts
	// feeding the recommendation score.
	NoveltyAssessment     NoveltyAssessment     `json:"novelty_assessment"`
	FeasibilityAssessment FeasibilityAssessment `json:"feasibility_assessment"`
	// OverallRecommendationScore runs from 0 to 10.
	OverallRecommendationScore float64 `json:"overall_recommendation_score"`
	ConstructiveCritique       string  `json:"constructive_critique"`
}

// PostDocEvaluation aggregates the per-direction assessments into the single
// verdict the refinement loop decides on. Score is normalized to [0, 1].
type PostDocEvaluation struct {
	AcceptAsIs bool    `json:"accept_as_is"`
	Score      float64 `json:"score"`
	Critique   string  `json:"critique"`
	// Assessments holds the per-direction detail behind the aggregate.
	Assessments []OverallAssessment `json:"evaluated_directions"`
}

// PaperSummary is the slice of paper metadata handed to assessment
// capabilities.
type PaperSummary struct {
	PaperID  string `json:"paper_id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// PhD is the generator role: it formulates queries, assesses relevance,
// analyzes literature, and proposes gaps and directions.
type PhD interface {
	// FormulateSearchQueries turns the research topic into search queries.
	// An empty result is valid; the caller decides whether to proceed.
	FormulateSearchQueries(ctx context.Context, researchTopic, generalArea string) ([]FormulatedQuery, error)

	// AssessPaperRelevance scores one paper against the research topic.
	AssessPaperRelevance(ctx context.Context, paper PaperSummary, researchTopic string) (*PaperRelevanceAssessment, error)

	// AnalyzeLiterature synthesizes an analysis from excerpts of the
	// ingested papers.
	AnalyzeLiterature(ctx context.Context, researchTopic string, excerpts []string) (*LiteratureAnalysis, error)

	// IdentifyResearchGaps derives gaps from the literature analysis.
	IdentifyResearchGaps(ctx context.Context, researchTopic string, analysis *LiteratureAnalysis) ([]ResearchGap, error)

	// GenerateResearchDirections proposes directions addressing the gaps.
	GenerateResearchDirections(ctx context.Context, gaps []ResearchGap, analysis *LiteratureAnalysis) ([]ResearchDirection, error)

	// RefineDirections reworks the directions in response to a critique. The
	// result replaces the previous directions.
	RefineDirections(ctx context.Context, current []ResearchDirection, critique string) ([]ResearchDirection, error)
}

// PostDoc is the evaluator role.
type PostDoc interface {
	// AssessNovelty scores the novelty of one direction.
	AssessNovelty(ctx context.Context, direction ResearchDirection) (*NoveltyAssessment, error)

	// AssessFeasibility scores the feasibility of one direction.
	AssessFeasibility(ctx context.Context, direction ResearchDirection) (*FeasibilityAssessment, error)

	// EvaluateDirections assesses every direction and aggregates the result
	// into the loop-deciding verdict.
	EvaluateDirections(ctx context.Context, directions []ResearchDirection) (*PostDocEvaluation, error)
}
