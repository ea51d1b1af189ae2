//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package bleveindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := New(t.TempDir())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestAndSearch(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	err := s.Ingest(ctx, "session-1", "paper-1",
		"Transformers rely on attention mechanisms for sequence modeling.",
		map[string]string{"title": "Paper One"})
	require.NoError(t, err)
	err = s.Ingest(ctx, "session-1", "paper-2",
		"Convolutional networks excel at image classification tasks.",
		map[string]string{"title": "Paper Two"})
	require.NoError(t, err)

	results, err := s.Search(ctx, "session-1", "attention mechanisms", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "attention")
	assert.Equal(t, "Paper One", results[0].Metadata["title"])
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.Ingest(ctx, "session-a", "p1",
		"Quantum error correction with surface codes.", nil))

	results, err := s.Search(ctx, "session-b", "quantum", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIngestValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	assert.Error(t, s.Ingest(ctx, "", "doc", "text", nil))
	assert.Error(t, s.Ingest(ctx, "session", "", "text", nil))
	assert.Error(t, s.Ingest(ctx, "session", "doc", "   ", nil))
}

func TestLongDocumentIsChunked(t *testing.T) {
	s := New(t.TempDir(), WithChunking(120, 20))
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	long := ""
	for i := 0; i < 100; i++ {
		long += "retrieval augmented generation improves factual grounding. "
	}
	require.NoError(t, s.Ingest(ctx, "session-1", "paper-long", long, nil))

	results, err := s.Search(ctx, "session-1", "factual grounding", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	// Chunk IDs are namespaced by the document.
	assert.Contains(t, results[0].ID, "paper-long#")
	assert.LessOrEqual(t, len(results), 3)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "abc-123_x", sanitize("abc-123_x"))
	assert.Equal(t, "a_b_c", sanitize("a/b:c"))
}
