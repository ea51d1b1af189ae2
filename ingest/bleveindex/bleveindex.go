//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package bleveindex implements ingest.Service with one bleve index per
// workflow session. Document text is chunked before indexing; search is
// BM25 over the chunk text.
package bleveindex

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/researchaide/researchaide/document"
	"github.com/researchaide/researchaide/ingest"
)

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 150
)

// Service is a bleve-backed ingest.Service.
type Service struct {
	rootDir      string
	chunkSize    int
	chunkOverlap int

	mu      sync.Mutex
	indexes map[string]bleve.Index
}

var _ ingest.Service = (*Service)(nil)

// Option configures the service.
type Option func(*Service)

// WithChunking overrides the chunk size and overlap used at ingestion.
func WithChunking(size, overlap int) Option {
	return func(s *Service) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

// New creates a service storing session indexes under rootDir.
func New(rootDir string, opts ...Option) *Service {
	s := &Service{
		rootDir:      rootDir,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		indexes:      make(map[string]bleve.Index),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest implements ingest.Service.
func (s *Service) Ingest(ctx context.Context, sessionID, docID, text string, metadata map[string]string) error {
	if sessionID == "" || docID == "" {
		return fmt.Errorf("session id and doc id are required")
	}
	index, err := s.sessionIndex(sessionID)
	if err != nil {
		return err
	}
	chunks := document.Chunk(text, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s has no text", docID)
	}
	batch := index.NewBatch()
	for i, chunk := range chunks {
		doc := map[string]any{
			"doc_id": docID,
			"text":   chunk,
		}
		for k, v := range metadata {
			doc["meta_"+k] = v
		}
		if err := batch.Index(fmt.Sprintf("%s#%d", docID, i), doc); err != nil {
			return fmt.Errorf("batch chunk %d of %s: %w", i, docID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return fmt.Errorf("index document %s: %w", docID, err)
	}
	return nil
}

// Search implements ingest.Service.
func (s *Service) Search(ctx context.Context, sessionID, query string, n int) ([]ingest.Result, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if n <= 0 {
		n = 5
	}
	index, err := s.sessionIndex(sessionID)
	if err != nil {
		return nil, err
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = n
	req.Fields = []string{"*"}
	res, err := index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search session %s: %w", sessionID, err)
	}

	out := make([]ingest.Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := ingest.Result{ID: hit.ID, Score: hit.Score}
		for field, value := range hit.Fields {
			text, ok := value.(string)
			if !ok {
				continue
			}
			switch {
			case field == "text":
				r.Text = text
			case strings.HasPrefix(field, "meta_"):
				if r.Metadata == nil {
					r.Metadata = make(map[string]string)
				}
				r.Metadata[strings.TrimPrefix(field, "meta_")] = text
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Close implements ingest.Service.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for id, index := range s.indexes {
		if err := index.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %s: %w", id, err)
		}
	}
	s.indexes = make(map[string]bleve.Index)
	return firstErr
}

// sessionIndex opens or creates the index backing one session.
func (s *Service) sessionIndex(sessionID string) (bleve.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index, ok := s.indexes[sessionID]; ok {
		return index, nil
	}
	path := filepath.Join(s.rootDir, sanitize(sessionID)+".bleve")
	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open session index %s: %w", sessionID, err)
	}
	s.indexes[sessionID] = index
	return index, nil
}

func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	docMapping.AddFieldMappingsAt("doc_id", idField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = true
	docMapping.AddFieldMappingsAt("text", textField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// sanitize keeps session-derived file names safe for the filesystem.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
