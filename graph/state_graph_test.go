//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopNode(ctx context.Context, s State) (any, error) {
	return nil, nil
}

func TestCompileValidGraph(t *testing.T) {
	g, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		AddNode("b", noopNode, WithName("node b"), WithDescription("second")).
		AddEdge("a", "b").
		SetEntryPoint("a").
		SetFinishPoint("b").
		Compile()
	require.NoError(t, err)

	node, ok := g.Node("b")
	require.True(t, ok)
	assert.Equal(t, "node b", node.Name)
	assert.Equal(t, "a", g.EntryPoint())
}

func TestCompileRejectsMissingEntryPoint(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		SetFinishPoint("a").
		Compile()
	assert.Error(t, err)
}

func TestCompileRejectsDuplicateNode(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		AddNode("a", noopNode).
		SetEntryPoint("a").
		SetFinishPoint("a").
		Compile()
	assert.Error(t, err)
}

func TestCompileRejectsEdgeToUnknownNode(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		AddEdge("a", "ghost").
		SetEntryPoint("a").
		Compile()
	assert.Error(t, err)
}

func TestCompileRejectsNilNodeFunction(t *testing.T) {
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", nil).
		SetEntryPoint("a").
		SetFinishPoint("a").
		Compile()
	assert.Error(t, err)
}

func TestMustCompilePanicsOnInvalidGraph(t *testing.T) {
	assert.Panics(t, func() {
		NewStateGraph(NewStateSchema()).MustCompile()
	})
}

func TestConditionalEdgeOnePerSource(t *testing.T) {
	cond := func(ctx context.Context, s State) (string, error) { return "x", nil }
	_, err := NewStateGraph(NewStateSchema()).
		AddNode("a", noopNode).
		AddNode("b", noopNode).
		AddConditionalEdges("a", cond, map[string]string{"x": "b"}).
		AddConditionalEdges("a", cond, map[string]string{"x": "b"}).
		SetEntryPoint("a").
		SetFinishPoint("b").
		Compile()
	assert.Error(t, err)
}
