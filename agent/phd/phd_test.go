//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package phd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchaide/researchaide/agent"
	"github.com/researchaide/researchaide/model"
)

// fakeModel answers each structured-output request with the canned content
// registered for its schema name.
type fakeModel struct {
	responses map[string]string
	err       error
	requests  []*model.Request
}

func (f *fakeModel) Info() model.Info { return model.Info{Name: "fake"} }

func (f *fakeModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	content := f.responses[req.JSONSchema.Name]
	return &model.Response{Content: content}, nil
}

func TestFormulateSearchQueries(t *testing.T) {
	fm := &fakeModel{responses: map[string]string{
		"formulated_queries": `{"queries":[
			{"query_string":"cat:cs.LG transformer interpretability","source_topic":"interpretability"},
			{"query_string":"mechanistic interpretability survey","source_topic":"interpretability"}
		]}`,
	}}
	a := New(fm)

	queries, err := a.FormulateSearchQueries(context.Background(), "transformer interpretability", "machine learning")
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "cat:cs.LG transformer interpretability", queries[0].QueryString)

	require.Len(t, fm.requests, 1)
	req := fm.requests[0]
	require.NotNil(t, req.JSONSchema)
	assert.True(t, req.JSONSchema.Strict)
	assert.Contains(t, req.Messages[1].Content, "machine learning")
}

func TestFormulateSearchQueriesEmptyIsValid(t *testing.T) {
	fm := &fakeModel{responses: map[string]string{
		"formulated_queries": `{"queries":[]}`,
	}}
	queries, err := New(fm).FormulateSearchQueries(context.Background(), "topic", "")
	require.NoError(t, err)
	assert.Empty(t, queries)
}

func TestAssessPaperRelevanceFillsPaperID(t *testing.T) {
	fm := &fakeModel{responses: map[string]string{
		"paper_relevance_assessment": `{"paper_id":"","is_relevant":true,"relevance_score":8.5,"justification":"on topic"}`,
	}}
	got, err := New(fm).AssessPaperRelevance(context.Background(),
		agent.PaperSummary{PaperID: "2401.00001", Title: "T", Abstract: "A"}, "topic")
	require.NoError(t, err)
	assert.Equal(t, "2401.00001", got.PaperID)
	assert.True(t, got.IsRelevant)
	assert.InDelta(t, 8.5, got.RelevanceScore, 0.001)
}

func TestAnalyzeLiteratureIncludesExcerpts(t *testing.T) {
	fm := &fakeModel{responses: map[string]string{
		"literature_analysis": `{"research_topic":"","overall_summary":"s","key_themes":["t1"],
			"common_methodologies":[],"identified_limitations":[],"future_work_suggestions":[]}`,
	}}
	got, err := New(fm).AnalyzeLiterature(context.Background(), "topic",
		[]string{"excerpt one", "excerpt two"})
	require.NoError(t, err)
	assert.Equal(t, "topic", got.ResearchTopic)
	assert.Contains(t, fm.requests[0].Messages[1].Content, "excerpt two")
}

func TestRefineDirectionsKeepsCurrentOnEmptyOutput(t *testing.T) {
	fm := &fakeModel{responses: map[string]string{
		"refined_directions": `{"directions":[]}`,
	}}
	current := []agent.ResearchDirection{{DirectionID: "d1", Title: "keep me"}}
	got, err := New(fm).RefineDirections(context.Background(), current, "do better")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].DirectionID)
}

func TestModelErrorPropagates(t *testing.T) {
	boom := errors.New("backend down")
	fm := &fakeModel{err: boom}
	_, err := New(fm).IdentifyResearchGaps(context.Background(), "topic", &agent.LiteratureAnalysis{})
	assert.ErrorIs(t, err, boom)
}

func TestMalformedOutputIsError(t *testing.T) {
	fm := &fakeModel{responses: map[string]string{
		"generated_directions": `not json`,
	}}
	_, err := New(fm).GenerateResearchDirections(context.Background(), nil, &agent.LiteratureAnalysis{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode model output")
}
