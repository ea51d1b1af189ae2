//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package phd implements the PhD generator role on top of a model.Model.
// Every capability asks the backend for structured output via a JSON schema
// and decodes the answer into the agent data contracts.
package phd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/researchaide/researchaide/agent"
	"github.com/researchaide/researchaide/log"
	"github.com/researchaide/researchaide/model"
)

// Agent is the LLM-backed PhD role.
type Agent struct {
	model       model.Model
	temperature float64
}

var _ agent.PhD = (*Agent)(nil)

// Option configures the agent.
type Option func(*Agent)

// WithTemperature sets the sampling temperature for all capabilities.
func WithTemperature(t float64) Option {
	return func(a *Agent) {
		a.temperature = t
	}
}

// New creates a PhD agent backed by the given model.
func New(m model.Model, opts ...Option) *Agent {
	a := &Agent{model: m, temperature: 0.3}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const systemPrompt = "You are a meticulous PhD researcher assisting with a " +
	"literature review. Answer strictly in the requested JSON structure."

// generate performs one structured-output completion and decodes it into out.
func (a *Agent) generate(ctx context.Context, schemaName string, schema map[string]any, userPrompt string, out any) error {
	if a.model == nil {
		return errors.New("phd agent has no model configured")
	}
	resp, err := a.model.GenerateContent(ctx, &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage(systemPrompt),
			model.NewUserMessage(userPrompt),
		},
		JSONSchema: &model.JSONSchema{
			Name:   schemaName,
			Schema: schema,
			Strict: true,
		},
		Temperature: model.Float(a.temperature),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", schemaName, err)
	}
	if err := json.Unmarshal([]byte(resp.Content), out); err != nil {
		return fmt.Errorf("%s: decode model output: %w", schemaName, err)
	}
	return nil
}

// FormulateSearchQueries implements agent.PhD.
func (a *Agent) FormulateSearchQueries(ctx context.Context, researchTopic, generalArea string) ([]agent.FormulatedQuery, error) {
	prompt := fmt.Sprintf(
		"Formulate up to 5 arXiv search queries for the research topic: %s", researchTopic)
	if generalArea != "" {
		prompt += fmt.Sprintf(" (general area: %s)", generalArea)
	}
	var out struct {
		Queries []agent.FormulatedQuery `json:"queries"`
	}
	if err := a.generate(ctx, "formulated_queries", queriesSchema, prompt, &out); err != nil {
		return nil, err
	}
	return out.Queries, nil
}

// AssessPaperRelevance implements agent.PhD.
func (a *Agent) AssessPaperRelevance(ctx context.Context, paper agent.PaperSummary, researchTopic string) (*agent.PaperRelevanceAssessment, error) {
	prompt := fmt.Sprintf(
		"Assess the relevance of this paper to the research topic %q.\n\nPaper ID: %s\nTitle: %s\nAbstract: %s",
		researchTopic, paper.PaperID, paper.Title, paper.Abstract)
	var out agent.PaperRelevanceAssessment
	if err := a.generate(ctx, "paper_relevance_assessment", relevanceSchema, prompt, &out); err != nil {
		return nil, err
	}
	if out.PaperID == "" {
		out.PaperID = paper.PaperID
	}
	return &out, nil
}

// AnalyzeLiterature implements agent.PhD.
func (a *Agent) AnalyzeLiterature(ctx context.Context, researchTopic string, excerpts []string) (*agent.LiteratureAnalysis, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following literature excerpts for the research topic %q. "+
		"Synthesize themes, methodologies, limitations and future work.\n", researchTopic)
	for i, excerpt := range excerpts {
		fmt.Fprintf(&sb, "\n--- Excerpt %d ---\n%s\n", i+1, excerpt)
	}
	var out agent.LiteratureAnalysis
	if err := a.generate(ctx, "literature_analysis", analysisSchema, sb.String(), &out); err != nil {
		return nil, err
	}
	if out.ResearchTopic == "" {
		out.ResearchTopic = researchTopic
	}
	return &out, nil
}

// IdentifyResearchGaps implements agent.PhD.
func (a *Agent) IdentifyResearchGaps(ctx context.Context, researchTopic string, analysis *agent.LiteratureAnalysis) ([]agent.ResearchGap, error) {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode literature analysis: %w", err)
	}
	prompt := fmt.Sprintf(
		"Identify research gaps for the topic %q based on this literature analysis:\n%s",
		researchTopic, encoded)
	var out struct {
		Gaps []agent.ResearchGap `json:"gaps"`
	}
	if err := a.generate(ctx, "identified_gaps", gapsSchema, prompt, &out); err != nil {
		return nil, err
	}
	return out.Gaps, nil
}

// GenerateResearchDirections implements agent.PhD.
func (a *Agent) GenerateResearchDirections(ctx context.Context, gaps []agent.ResearchGap, analysis *agent.LiteratureAnalysis) ([]agent.ResearchDirection, error) {
	encodedGaps, err := json.Marshal(gaps)
	if err != nil {
		return nil, fmt.Errorf("encode gaps: %w", err)
	}
	encodedAnalysis, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode literature analysis: %w", err)
	}
	prompt := fmt.Sprintf(
		"Propose research directions addressing these gaps:\n%s\n\nLiterature analysis:\n%s",
		encodedGaps, encodedAnalysis)
	var out struct {
		Directions []agent.ResearchDirection `json:"directions"`
	}
	if err := a.generate(ctx, "generated_directions", directionsSchema, prompt, &out); err != nil {
		return nil, err
	}
	return out.Directions, nil
}

// RefineDirections implements agent.PhD.
func (a *Agent) RefineDirections(ctx context.Context, current []agent.ResearchDirection, critique string) ([]agent.ResearchDirection, error) {
	encoded, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode directions: %w", err)
	}
	prompt := fmt.Sprintf(
		"Refine the following research directions in response to the critique. "+
			"Keep direction IDs stable where a direction survives.\n\nDirections:\n%s\n\nCritique:\n%s",
		encoded, critique)
	var out struct {
		Directions []agent.ResearchDirection `json:"directions"`
	}
	if err := a.generate(ctx, "refined_directions", directionsSchema, prompt, &out); err != nil {
		return nil, err
	}
	if len(out.Directions) == 0 {
		// Malformed or empty refinement keeps the previous round rather than
		// losing all work.
		log.Warnf("phd: refinement returned no directions, keeping current set")
		return current, nil
	}
	return out.Directions, nil
}
