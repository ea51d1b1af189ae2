//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/graph/checkpoint/inmemory"
)

func counterSchema() *graph.StateSchema {
	schema := graph.NewStateSchema()
	schema.AddField("counter", graph.StateField{Type: reflect.TypeOf(0)})
	return schema
}

func TestExecuteLinearGraph(t *testing.T) {
	schema := counterSchema()
	g, err := graph.NewStateGraph(schema).
		AddNode("one", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"counter": 1}, nil
		}).
		AddNode("two", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"visited_two": true}, nil
		}).
		AddEdge("one", "two").
		SetEntryPoint("one").
		SetFinishPoint("two").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), graph.State{}, "")
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 1, result.State["counter"])
	assert.Equal(t, true, result.State["visited_two"])
	assert.Equal(t, "two", result.State[graph.StateKeyCurrentStep])
}

func TestExecuteConditionalRouting(t *testing.T) {
	schema := counterSchema()
	g, err := graph.NewStateGraph(schema).
		AddNode("decide", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"counter": 7}, nil
		}).
		AddNode("high", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"branch": "high"}, nil
		}).
		AddNode("low", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"branch": "low"}, nil
		}).
		AddConditionalEdges("decide", func(ctx context.Context, s graph.State) (string, error) {
			if c, _ := s["counter"].(int); c > 5 {
				return "above", nil
			}
			return "below", nil
		}, map[string]string{"above": "high", "below": "low"}).
		SetEntryPoint("decide").
		SetFinishPoint("high").
		SetFinishPoint("low").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g)
	require.NoError(t, err)
	result, err := exec.Execute(context.Background(), graph.State{}, "")
	require.NoError(t, err)
	assert.Equal(t, "high", result.State["branch"])
}

func TestExecuteCommandGoTo(t *testing.T) {
	schema := counterSchema()
	g, err := graph.NewStateGraph(schema).
		AddNode("router", func(ctx context.Context, s graph.State) (any, error) {
			return &graph.Command{
				Update: graph.State{"counter": 9},
				GoTo:   "target",
			}, nil
		}).
		AddNode("skipped", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"skipped": true}, nil
		}).
		AddNode("target", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"reached": true}, nil
		}).
		AddEdge("router", "skipped").
		SetEntryPoint("router").
		SetFinishPoint("skipped").
		SetFinishPoint("target").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g)
	require.NoError(t, err)
	result, err := exec.Execute(context.Background(), graph.State{}, "")
	require.NoError(t, err)
	assert.Equal(t, 9, result.State["counter"])
	assert.Equal(t, true, result.State["reached"])
	assert.NotContains(t, result.State, "skipped")
}

func TestExecuteNodeErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	g, err := graph.NewStateGraph(counterSchema()).
		AddNode("fails", func(ctx context.Context, s graph.State) (any, error) {
			return nil, boom
		}).
		SetEntryPoint("fails").
		SetFinishPoint("fails").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g)
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), graph.State{}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestExecuteMaxStepsGuard(t *testing.T) {
	g, err := graph.NewStateGraph(counterSchema()).
		AddNode("loop", func(ctx context.Context, s graph.State) (any, error) {
			return nil, nil
		}).
		AddEdge("loop", "loop").
		SetEntryPoint("loop").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g, graph.WithMaxSteps(5))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), graph.State{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum execution steps")
}

func TestExecuteRequiresLineageWithSaver(t *testing.T) {
	g, err := graph.NewStateGraph(counterSchema()).
		AddNode("n", func(ctx context.Context, s graph.State) (any, error) {
			return nil, nil
		}).
		SetEntryPoint("n").
		SetFinishPoint("n").
		Compile()
	require.NoError(t, err)

	exec, err := graph.NewExecutor(g, graph.WithCheckpointSaver(inmemory.NewSaver()))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), graph.State{}, "")
	assert.ErrorIs(t, err, graph.ErrLineageIDRequired)
}

// interruptGraph pauses at "review" and records the resume value.
func interruptGraph(t *testing.T) *graph.Graph {
	t.Helper()
	schema := counterSchema()
	g, err := graph.NewStateGraph(schema).
		AddNode("prepare", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"counter": 1}, nil
		}).
		AddNode("review", func(ctx context.Context, s graph.State) (any, error) {
			answer, err := graph.Interrupt(ctx, s, "approval", "please review")
			if err != nil {
				return nil, err
			}
			return graph.State{"approved": answer}, nil
		}).
		AddNode("finish", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{"done": true}, nil
		}).
		AddEdge("prepare", "review").
		AddEdge("review", "finish").
		SetEntryPoint("prepare").
		SetFinishPoint("finish").
		Compile()
	require.NoError(t, err)
	return g
}

func TestInterruptAndResume(t *testing.T) {
	saver := inmemory.NewSaver()
	exec, err := graph.NewExecutor(interruptGraph(t), graph.WithCheckpointSaver(saver))
	require.NoError(t, err)

	ctx := context.Background()
	result, err := exec.Execute(ctx, graph.State{}, "lineage-1")
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeAwaitingInput, result.Outcome)
	require.NotNil(t, result.Interrupt)
	assert.Equal(t, "review", result.Interrupt.NodeID)
	assert.Equal(t, "approval", result.Interrupt.Key)
	assert.Equal(t, true, result.State[graph.StateKeyAwaitingInput])

	// The interrupt checkpoint is durable and points back at the node.
	ckpt, err := saver.Latest(ctx, "lineage-1")
	require.NoError(t, err)
	require.NotNil(t, ckpt)
	require.NotNil(t, ckpt.InterruptState)
	assert.Equal(t, "review", ckpt.InterruptState.NodeID)

	resumed, err := exec.Resume(ctx, "lineage-1", "approved-by-human")
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeSuccess, resumed.Outcome)
	assert.Equal(t, "approved-by-human", resumed.State["approved"])
	assert.Equal(t, true, resumed.State["done"])
	assert.Equal(t, false, resumed.State[graph.StateKeyAwaitingInput])
}

func TestResumeWithoutCheckpoint(t *testing.T) {
	exec, err := graph.NewExecutor(interruptGraph(t),
		graph.WithCheckpointSaver(inmemory.NewSaver()))
	require.NoError(t, err)
	_, err = exec.Resume(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
}

func TestCheckpointsSurviveStateRoundTrip(t *testing.T) {
	saver := inmemory.NewSaver()
	exec, err := graph.NewExecutor(interruptGraph(t), graph.WithCheckpointSaver(saver))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = exec.Execute(ctx, graph.State{"origin": "test"}, "lineage-2")
	require.NoError(t, err)

	// A fresh executor over the same saver resumes from storage alone, the
	// way a restarted process would.
	exec2, err := graph.NewExecutor(interruptGraph(t), graph.WithCheckpointSaver(saver))
	require.NoError(t, err)
	resumed, err := exec2.Resume(ctx, "lineage-2", "yes")
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeSuccess, resumed.Outcome)
	assert.Equal(t, "test", resumed.State["origin"])
	assert.Equal(t, "yes", resumed.State["approved"])

	ckpts, err := saver.List(ctx, "lineage-2", 0)
	require.NoError(t, err)
	require.NotEmpty(t, ckpts)
	// Internal keys never reach storage.
	for _, c := range ckpts {
		assert.NotContains(t, c.State, graph.StateKeyResume)
	}
	// Oldest first: the series starts with the input checkpoint.
	assert.Equal(t, graph.CheckpointSourceInput, ckpts[0].Source)
}

func TestResumeFinishedRunReportsOutcome(t *testing.T) {
	saver := inmemory.NewSaver()
	g, err := graph.NewStateGraph(counterSchema()).
		AddNode("only", func(ctx context.Context, s graph.State) (any, error) {
			return graph.State{graph.StateKeyWorkflowOutcome: graph.OutcomeError}, nil
		}).
		SetEntryPoint("only").
		SetFinishPoint("only").
		Compile()
	require.NoError(t, err)
	exec, err := graph.NewExecutor(g, graph.WithCheckpointSaver(saver))
	require.NoError(t, err)

	ctx := context.Background()
	result, err := exec.Execute(ctx, graph.State{}, "lineage-3")
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeError, result.Outcome)

	// Resuming a finished run does not re-run any node.
	again, err := exec.Resume(ctx, "lineage-3", nil)
	require.NoError(t, err)
	assert.Equal(t, graph.OutcomeError, again.Outcome)
}
