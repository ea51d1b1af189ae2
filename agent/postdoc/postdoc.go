//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package postdoc implements the PostDoc evaluator role on top of a
// model.Model. It scores each research direction for novelty and
// feasibility, produces an overall recommendation with a constructive
// critique, and aggregates the per-direction results into the verdict the
// refinement loop decides on.
package postdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/researchaide/researchaide/agent"
	"github.com/researchaide/researchaide/model"
)

// acceptScoreThreshold is the normalized aggregate score at or above which
// the evaluation recommends accepting the directions as-is.
const acceptScoreThreshold = 0.8

// Agent is the LLM-backed PostDoc role.
type Agent struct {
	model       model.Model
	temperature float64
}

var _ agent.PostDoc = (*Agent)(nil)

// Option configures the agent.
type Option func(*Agent)

// WithTemperature sets the sampling temperature for all capabilities.
func WithTemperature(t float64) Option {
	return func(a *Agent) {
		a.temperature = t
	}
}

// New creates a PostDoc agent backed by the given model.
func New(m model.Model, opts ...Option) *Agent {
	a := &Agent{model: m, temperature: 0.2}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const systemPrompt = "You are a rigorous postdoctoral reviewer evaluating " +
	"proposed research directions. Be specific and constructive. Answer " +
	"strictly in the requested JSON structure."

func (a *Agent) generate(ctx context.Context, schemaName string, schema map[string]any, userPrompt string, out any) error {
	if a.model == nil {
		return errors.New("postdoc agent has no model configured")
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

// AssessNovelty implements agent.PostDoc.
func (a *Agent) AssessNovelty(ctx context.Context, direction agent.ResearchDirection) (*agent.NoveltyAssessment, error) {
	encoded, err := json.Marshal(direction)
	if err != nil {
		return nil, fmt.Errorf("encode direction: %w", err)
	}
	prompt := fmt.Sprintf(
		"Assess the novelty of this research direction on a 0-10 scale:\n%s", encoded)
	var out agent.NoveltyAssessment
	if err := a.generate(ctx, "novelty_assessment", noveltySchema, prompt, &out); err != nil {
		return nil, err
	}
	if out.DirectionID == "" {
		out.DirectionID = direction.DirectionID
	}
	return &out, nil
}

// AssessFeasibility implements agent.PostDoc.
func (a *Agent) AssessFeasibility(ctx context.Context, direction agent.ResearchDirection) (*agent.FeasibilityAssessment, error) {
	encoded, err := json.Marshal(direction)
	if err != nil {
		return nil, fmt.Errorf("encode direction: %w", err)
	}
	prompt := fmt.Sprintf(
		"Assess the feasibility of this research direction on a 0-10 scale, "+
			"considering methodology, resources and time:\n%s", encoded)
	var out agent.FeasibilityAssessment
	if err := a.generate(ctx, "feasibility_assessment", feasibilitySchema, prompt, &out); err != nil {
		return nil, err
	}
	if out.DirectionID == "" {
		out.DirectionID = direction.DirectionID
	}
	return &out, nil
}

// evaluateDirection produces the overall verdict for one direction given its
// component assessments.
func (a *Agent) evaluateDirection(
	ctx context.Context,
	direction agent.ResearchDirection,
	novelty *agent.NoveltyAssessment,
	feasibility *agent.FeasibilityAssessment,
) (*agent.OverallAssessment, error) {
	encoded, err := json.Marshal(map[string]any{
		"direction":              direction,
		"novelty_assessment":     novelty,
		"feasibility_assessment": feasibility,
	})
	if err != nil {
		return nil, fmt.Errorf("encode evaluation input: %w", err)
	}
	prompt := fmt.Sprintf(
		"Combine the component assessments into an overall recommendation "+
			"score (0-10) and a constructive critique:\n%s", encoded)
	var out struct {
		OverallRecommendationScore float64 `json:"overall_recommendation_score"`
		ConstructiveCritique       string  `json:"constructive_critique"`
	}
	if err := a.generate(ctx, "overall_assessment", overallSchema, prompt, &out); err != nil {
		return nil, err
	}
	return &agent.OverallAssessment{
		DirectionID:                direction.DirectionID,
		NoveltyAssessment:          *novelty,
		FeasibilityAssessment:      *feasibility,
		OverallRecommendationScore: out.OverallRecommendationScore,
		ConstructiveCritique:       out.ConstructiveCritique,
	}, nil
}

// EvaluateDirections implements agent.PostDoc.
func (a *Agent) EvaluateDirections(ctx context.Context, directions []agent.ResearchDirection) (*agent.PostDocEvaluation, error) {
	if len(directions) == 0 {
		return nil, errors.New("no directions to evaluate")
	}
	assessments := make([]agent.OverallAssessment, 0, len(directions))
	for _, direction := range directions {
		novelty, err := a.AssessNovelty(ctx, direction)
		if err != nil {
			return nil, fmt.Errorf("direction %s: %w", direction.DirectionID, err)
		}
		feasibility, err := a.AssessFeasibility(ctx, direction)
		if err != nil {
			return nil, fmt.Errorf("direction %s: %w", direction.DirectionID, err)
		}
		overall, err := a.evaluateDirection(ctx, direction, novelty, feasibility)
		if err != nil {
			return nil, fmt.Errorf("direction %s: %w", direction.DirectionID, err)
		}
		assessments = append(assessments, *overall)
	}
	return Aggregate(assessments), nil
}

// Aggregate folds per-direction assessments into the loop-deciding verdict.
// The aggregate score is the mean recommendation score normalized to [0, 1].
func Aggregate(assessments []agent.OverallAssessment) *agent.PostDocEvaluation {
	if len(assessments) == 0 {
		return &agent.PostDocEvaluation{Critique: "no directions were evaluated"}
	}
	var sum float64
	var critique strings.Builder
	for i, a := range assessments {
		sum += a.OverallRecommendationScore
		if i > 0 {
			critique.WriteString("\n\n")
		}
		fmt.Fprintf(&critique, "[%s] %s", a.DirectionID, a.ConstructiveCritique)
	}
	score := sum / float64(len(assessments)) / 10.0
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return &agent.PostDocEvaluation{
		AcceptAsIs:  score >= acceptScoreThreshold,
		Score:       score,
		Critique:    critique.String(),
		Assessments: assessments,
	}
}
