//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package orchestration

import (
	"context"
	"strings"

	"github.com/researchaide/researchaide/graph"
	"github.com/researchaide/researchaide/log"
)

// Routing labels returned by the predicates.
const (
	RouteErrorFound    = "error_found"
	RouteNoError       = "no_error"
	RouteConflictFound = "conflict_found"
	RouteNoConflict    = "no_conflict"
	RouteFinalize      = "finalize_output"
	RouteRefine        = "refine_directions"
)

// CheckForErrors routes to the error handler whenever a node has recorded a
// failure. It is evaluated after every fallible node.
func CheckForErrors(ctx context.Context, state graph.State) (string, error) {
	if stringFromState(state, KeyErrorMessage) != "" {
		log.Debugf("orchestration: error detected from %s, routing to error handler",
			stringFromState(state, KeyErrorSourceNode))
		return RouteErrorFound, nil
	}
	return RouteNoError, nil
}

// CheckForConflict routes to the conflict resolver when the analysis raised
// the conflict flag.
func CheckForConflict(ctx context.Context, state graph.State) (string, error) {
	if boolFromState(state, KeyConflictDetected) {
		return RouteConflictFound, nil
	}
	return RouteNoConflict, nil
}

// routeAfterAnalysis combines the error check with the conflict check for
// the analysis node, which is the one node subject to both.
func routeAfterAnalysis(ctx context.Context, state graph.State) (string, error) {
	if label, _ := CheckForErrors(ctx, state); label == RouteErrorFound {
		return RouteErrorFound, nil
	}
	return CheckForConflict(ctx, state)
}

// ShouldRefineFurther is the refinement-loop termination policy: quality
// acceptance, hard iteration cap, then score threshold. Every branch is
// bounded, so the loop always terminates.
func ShouldRefineFurther(state graph.State, maxIterations int, minAcceptableScore float64) string {
	evaluation := Evaluation(state)
	if evaluation == nil {
		// No verdict to decide on; finalize rather than loop blindly.
		return RouteFinalize
	}
	if evaluation.AcceptAsIs {
		return RouteFinalize
	}
	if intFromState(state, KeyIterationCount) >= maxIterations {
		log.Infof("orchestration: refinement cap (%d) reached, finalizing", maxIterations)
		return RouteFinalize
	}
	if evaluation.Score >= minAcceptableScore {
		return RouteFinalize
	}
	return RouteRefine
}

// routeAfterEvaluation combines the error check with the refinement policy
// for the evaluation node.
func (w *workflow) routeAfterEvaluation(ctx context.Context, state graph.State) (string, error) {
	if label, _ := CheckForErrors(ctx, state); label == RouteErrorFound {
		return RouteErrorFound, nil
	}
	return ShouldRefineFurther(state, w.opts.MaxIterationsRefine, w.opts.MinAcceptableScore), nil
}

// nodeFromErrorSource maps an error_source_node value back to the graph node
// it names. Returns empty when the value is unrecognizable.
func nodeFromErrorSource(source string) string {
	return strings.TrimSuffix(source, "_node")
}
