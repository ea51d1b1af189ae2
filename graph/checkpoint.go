//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	// CheckpointVersion is the current version of the checkpoint format.
	CheckpointVersion = 1

	// CheckpointSourceInput indicates the checkpoint was created from the
	// initial input, before any node ran.
	CheckpointSourceInput = "input"
	// CheckpointSourceLoop indicates the checkpoint was created after a node
	// completed inside the execution loop.
	CheckpointSourceLoop = "loop"
	// CheckpointSourceInterrupt indicates the checkpoint was created when the
	// run suspended at a human-in-the-loop interrupt.
	CheckpointSourceInterrupt = "interrupt"
)

// Checkpoint is a durable snapshot of graph state taken after a step. A run
// is resumed by loading the latest checkpoint of its lineage and continuing
// from NextNode (or from the interrupted node when InterruptState is set).
type Checkpoint struct {
	// Version is the version of the checkpoint format.
	Version int `json:"v"`
	// ID uniquely identifies this checkpoint.
	ID string `json:"id"`
	// LineageID is the thread key of the run, typically the session id.
	LineageID string `json:"lineage_id"`
	// Step is the zero-based index of the step that produced this snapshot.
	// It increases monotonically within a lineage; -1 for the input snapshot.
	Step int `json:"step"`
	// Source records how the checkpoint was created.
	Source string `json:"source"`
	// NextNode is the node that should execute next when resuming. End when
	// the run finished.
	NextNode string `json:"next_node,omitempty"`
	// State is the full state snapshot after the step.
	State State `json:"state"`
	// InterruptState is set only on interrupt checkpoints.
	InterruptState *InterruptState `json:"interrupt_state,omitempty"`
	// Timestamp is when the checkpoint was created.
	Timestamp time.Time `json:"ts"`
}

// InterruptState describes where and why a run was suspended.
type InterruptState struct {
	// NodeID is the node where execution was interrupted.
	NodeID string `json:"node_id"`
	// Key identifies the interrupt point within the node.
	Key string `json:"key"`
	// Prompt is the value the node surfaced to the outside world, e.g. the
	// payload a human reviewer should act on.
	Prompt any `json:"prompt"`
	// Step is the step number when the interrupt occurred.
	Step int `json:"step"`
}

// NewCheckpoint creates a checkpoint for the given lineage and step. Internal
// state keys are stripped from the snapshot.
func NewCheckpoint(lineageID string, step int, source string, state State) *Checkpoint {
	return &Checkpoint{
		Version:   CheckpointVersion,
		ID:        uuid.NewString(),
		LineageID: lineageID,
		Step:      step,
		Source:    source,
		State:     state.sanitized(),
		Timestamp: time.Now().UTC(),
	}
}

// CheckpointSaver is the storage interface for checkpoints. Implementations
// must support concurrent access keyed by lineage id without cross-lineage
// interference: a write for lineage A never blocks or corrupts lineage B.
type CheckpointSaver interface {
	// Put stores a checkpoint.
	Put(ctx context.Context, ckpt *Checkpoint) error
	// Latest returns the most recent checkpoint of a lineage, or nil when the
	// lineage has none.
	Latest(ctx context.Context, lineageID string) (*Checkpoint, error)
	// List returns up to limit checkpoints of a lineage in step order,
	// oldest first. limit <= 0 means no limit.
	List(ctx context.Context, lineageID string, limit int) ([]*Checkpoint, error)
	// DeleteLineage removes all checkpoints of a lineage.
	DeleteLineage(ctx context.Context, lineageID string) error
	// Close releases resources held by the saver.
	Close() error
}
