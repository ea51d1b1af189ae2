//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchaide/researchaide/graph"
)

func openTestSaver(t *testing.T) *Saver {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndLatest(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	latest, err := s.Latest(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 0; i < 3; i++ {
		c := graph.NewCheckpoint("l1", i, graph.CheckpointSourceLoop, graph.State{"step": i})
		require.NoError(t, s.Put(ctx, c))
	}

	latest, err = s.Latest(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.Step)
	// JSON numbers decode as float64; callers re-decode typed values.
	assert.EqualValues(t, 2, latest.State["step"])
}

func TestListOrderAndLimit(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		c := graph.NewCheckpoint("l1", i, graph.CheckpointSourceLoop, graph.State{})
		require.NoError(t, s.Put(ctx, c))
	}

	all, err := s.List(ctx, "l1", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 0, all[0].Step)
	assert.Equal(t, 3, all[3].Step)

	limited, err := s.List(ctx, "l1", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 0, limited[0].Step)
}

func TestInterruptStateSurvivesStorage(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()

	c := graph.NewCheckpoint("l1", 5, graph.CheckpointSourceInterrupt, graph.State{"shortlist": []any{"p1"}})
	c.NextNode = "await_shortlist_review"
	c.InterruptState = &graph.InterruptState{
		NodeID: "await_shortlist_review",
		Key:    "shortlist_review",
		Prompt: "please review the shortlist",
		Step:   5,
	}
	require.NoError(t, s.Put(ctx, c))

	latest, err := s.Latest(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, latest.InterruptState)
	assert.Equal(t, "await_shortlist_review", latest.InterruptState.NodeID)
	assert.Equal(t, "shortlist_review", latest.InterruptState.Key)
	assert.Equal(t, 5, latest.InterruptState.Step)
	assert.Equal(t, "await_shortlist_review", latest.NextNode)
}

func TestDeleteLineage(t *testing.T) {
	s := openTestSaver(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, graph.NewCheckpoint("a", 0, graph.CheckpointSourceInput, graph.State{})))
	require.NoError(t, s.Put(ctx, graph.NewCheckpoint("b", 0, graph.CheckpointSourceInput, graph.State{})))

	require.NoError(t, s.DeleteLineage(ctx, "a"))

	gone, err := s.Latest(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := s.Latest(ctx, "b")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
