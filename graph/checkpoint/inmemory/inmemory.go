//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory checkpoint saver, suitable for
// tests and single-process development. Checkpoints are stored as JSON so
// loading one behaves exactly like loading from a durable backend.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/researchaide/researchaide/graph"
)

// Saver is an in-memory implementation of graph.CheckpointSaver. Lineages are
// independent: operations on one lineage never block another beyond the brief
// map access.
type Saver struct {
	mu       sync.RWMutex
	lineages map[string][]json.RawMessage
}

var _ graph.CheckpointSaver = (*Saver)(nil)

// NewSaver creates a new in-memory checkpoint saver.
func NewSaver() *Saver {
	return &Saver{lineages: make(map[string][]json.RawMessage)}
}

// Put stores a checkpoint.
func (s *Saver) Put(ctx context.Context, ckpt *graph.Checkpoint) error {
	if ckpt == nil {
		return fmt.Errorf("checkpoint is nil")
	}
	if ckpt.LineageID == "" {
		return graph.ErrLineageIDRequired
	}
	raw, err := json.Marshal(ckpt)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineages[ckpt.LineageID] = append(s.lineages[ckpt.LineageID], raw)
	return nil
}

// Latest returns the most recent checkpoint of a lineage, or nil when the
// lineage has none.
func (s *Saver) Latest(ctx context.Context, lineageID string) (*graph.Checkpoint, error) {
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.lineages[lineageID]
	if len(series) == 0 {
		return nil, nil
	}
	return decode(series[len(series)-1])
}

// List returns up to limit checkpoints of a lineage, oldest first.
func (s *Saver) List(ctx context.Context, lineageID string, limit int) ([]*graph.Checkpoint, error) {
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.lineages[lineageID]
	if limit > 0 && len(series) > limit {
		series = series[:limit]
	}
	out := make([]*graph.Checkpoint, 0, len(series))
	for _, raw := range series {
		ckpt, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ckpt)
	}
	return out, nil
}

// DeleteLineage removes all checkpoints of a lineage.
func (s *Saver) DeleteLineage(ctx context.Context, lineageID string) error {
	if lineageID == "" {
		return graph.ErrLineageIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lineages, lineageID)
	return nil
}

// Close releases resources held by the saver.
func (s *Saver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineages = make(map[string][]json.RawMessage)
	return nil
}

func decode(raw json.RawMessage) (*graph.Checkpoint, error) {
	var ckpt graph.Checkpoint
	if err := json.Unmarshal(raw, &ckpt); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &ckpt, nil
}
