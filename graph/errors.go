//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import "errors"

// Errors.
var (
	// ErrLineageIDRequired is returned when an operation is missing the
	// lineage (thread) key.
	ErrLineageIDRequired = errors.New("lineage_id is required")
	// ErrCheckpointNotFound is returned by Resume when the lineage has no
	// checkpoint to continue from.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrNotInterrupted is returned by Resume when the latest checkpoint is
	// neither an interrupt nor a resumable in-flight snapshot.
	ErrNotInterrupted = errors.New("run is not awaiting input")
)
