//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package ingest defines the document ingestion and retrieval service the
// workflow uses to ground literature analysis. Each workflow session owns an
// isolated collection keyed by its session id.
package ingest

import "context"

// Result is one retrieval hit.
type Result struct {
	// ID identifies the indexed chunk.
	ID string `json:"id"`
	// Text is the stored chunk text.
	Text string `json:"text"`
	// Metadata carries the document metadata stored at ingestion time.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Score is the backend's relevance score for the query.
	Score float64 `json:"score"`
}

// Service ingests documents and answers retrieval queries, isolated per
// session.
type Service interface {
	// Ingest stores a document's text under the session's collection. The
	// implementation may split the text into chunks; docID namespaces them.
	Ingest(ctx context.Context, sessionID, docID, text string, metadata map[string]string) error

	// Search returns up to n chunks of the session's collection relevant to
	// the query, best first.
	Search(ctx context.Context, sessionID, query string, n int) ([]Result, error)

	// Close releases all resources held by the service.
	Close() error
}
