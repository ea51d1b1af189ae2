//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides a SQLite-backed checkpoint saver for durable graph
// state persistence and recovery. Paired with a file-backed database it lets
// long human-in-the-loop suspensions survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/researchaide/researchaide/graph"
)

const (
	createCheckpoints = "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"lineage_id TEXT NOT NULL, " +
		"checkpoint_id TEXT NOT NULL, " +
		"step INTEGER NOT NULL, " +
		"ts INTEGER NOT NULL, " +
		"checkpoint_json BLOB NOT NULL, " +
		"PRIMARY KEY (lineage_id, checkpoint_id)" +
		")"

	createStepIndex = "CREATE INDEX IF NOT EXISTS idx_checkpoints_lineage_step " +
		"ON checkpoints (lineage_id, step)"

	insertCheckpoint = "INSERT OR REPLACE INTO checkpoints " +
		"(lineage_id, checkpoint_id, step, ts, checkpoint_json) VALUES (?, ?, ?, ?, ?)"

	selectLatest = "SELECT checkpoint_json FROM checkpoints " +
		"WHERE lineage_id = ? ORDER BY step DESC, ts DESC LIMIT 1"

	selectSeries = "SELECT checkpoint_json FROM checkpoints " +
		"WHERE lineage_id = ? ORDER BY step ASC, ts ASC"

	deleteLineage = "DELETE FROM checkpoints WHERE lineage_id = ?"
)

// Saver is a SQLite-backed implementation of graph.CheckpointSaver. It stores
// each checkpoint as a JSON blob keyed by lineage id and checkpoint id, with
// the step index for ordered retrieval.
type Saver struct {
	db *sql.DB
}

var _ graph.CheckpointSaver = (*Saver)(nil)

// NewSaver creates a saver using the provided DB. The DB must use a SQLite
// driver; the constructor creates the schema if needed.
func NewSaver(db *sql.DB) (*Saver, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(createCheckpoints); err != nil {
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	if _, err := db.Exec(createStepIndex); err != nil {
		return nil, fmt.Errorf("create step index: %w", err)
	}
	return &Saver{db: db}, nil
}

// Open opens (creating if absent) a SQLite database at path and returns a
// saver backed by it. The saver owns the connection; Close releases it.
func Open(path string) (*Saver, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	saver, err := NewSaver(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return saver, nil
}

// Put stores a checkpoint.
func (s *Saver) Put(ctx context.Context, ckpt *graph.Checkpoint) error {
	if ckpt == nil {
		return errors.New("checkpoint is nil")
	}
	if ckpt.LineageID == "" {
		return graph.ErrLineageIDRequired
	}
	raw, err := json.Marshal(ckpt)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	_, err = s.db.ExecContext(ctx, insertCheckpoint,
		ckpt.LineageID, ckpt.ID, ckpt.Step, ckpt.Timestamp.UnixNano(), raw)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Latest returns the most recent checkpoint of a lineage, or nil when the
// lineage has none.
func (s *Saver) Latest(ctx context.Context, lineageID string) (*graph.Checkpoint, error) {
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx, selectLatest, lineageID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select latest checkpoint: %w", err)
	}
	return decode(raw)
}

// List returns up to limit checkpoints of a lineage, oldest first.
func (s *Saver) List(ctx context.Context, lineageID string, limit int) ([]*graph.Checkpoint, error) {
	if lineageID == "" {
		return nil, graph.ErrLineageIDRequired
	}
	query := selectSeries
	args := []any{lineageID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*graph.Checkpoint
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		ckpt, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ckpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// DeleteLineage removes all checkpoints of a lineage.
func (s *Saver) DeleteLineage(ctx context.Context, lineageID string) error {
	if lineageID == "" {
		return graph.ErrLineageIDRequired
	}
	if _, err := s.db.ExecContext(ctx, deleteLineage, lineageID); err != nil {
		return fmt.Errorf("delete lineage: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Saver) Close() error {
	return s.db.Close()
}

func decode(raw []byte) (*graph.Checkpoint, error) {
	var ckpt graph.Checkpoint
	if err := json.Unmarshal(raw, &ckpt); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &ckpt, nil
}
