//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/researchaide/researchaide/log"
	"github.com/researchaide/researchaide/telemetry/trace"
)

// Terminal outcomes of a graph run.
const (
	// OutcomeSuccess means the run reached End without a recorded error.
	OutcomeSuccess = "success"
	// OutcomeError means the run reached End with workflow_outcome = error.
	OutcomeError = "error"
	// OutcomeAwaitingInput means the run is suspended at an interrupt and can
	// be continued with Resume.
	OutcomeAwaitingInput = "awaiting_input"
)

// ExecutionResult is returned when a run completes or suspends.
type ExecutionResult struct {
	// LineageID is the thread key of the run.
	LineageID string
	// Outcome is one of OutcomeSuccess, OutcomeError, OutcomeAwaitingInput.
	Outcome string
	// State is the state at completion or suspension.
	State State
	// Interrupt describes the suspension point when Outcome is
	// OutcomeAwaitingInput.
	Interrupt *InterruptState
}

// Executor executes a compiled graph. Nodes run strictly sequentially within
// one run; distinct lineages may execute concurrently on separate Executor
// calls sharing one checkpoint saver.
type Executor struct {
	graph    *Graph
	saver    CheckpointSaver
	maxSteps int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorOptions)

type executorOptions struct {
	saver    CheckpointSaver
	maxSteps int
}

// WithCheckpointSaver sets the checkpoint storage backend. Without a saver
// the run is not durable and cannot be resumed after an interrupt or a
// process restart.
func WithCheckpointSaver(saver CheckpointSaver) ExecutorOption {
	return func(o *executorOptions) {
		o.saver = saver
	}
}

// WithMaxSteps sets the maximum number of steps for graph execution. The
// limit guards against accidental unbounded cycles.
func WithMaxSteps(maxSteps int) ExecutorOption {
	return func(o *executorOptions) {
		o.maxSteps = maxSteps
	}
}

// NewExecutor creates a new graph executor.
func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if err := graph.validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	o := executorOptions{maxSteps: 100}
	for _, opt := range opts {
		opt(&o)
	}
	return &Executor{
		graph:    graph,
		saver:    o.saver,
		maxSteps: o.maxSteps,
	}, nil
}

// Execute runs the graph from its entry point with the given initial state.
// lineageID keys the checkpoint series of this run; it must be non-empty when
// a saver is configured.
func (e *Executor) Execute(ctx context.Context, initialState State, lineageID string) (*ExecutionResult, error) {
	if e.saver != nil && lineageID == "" {
		return nil, ErrLineageIDRequired
	}
	ctx, span := trace.Tracer.Start(ctx, "execute_graph")
	defer span.End()
	span.SetAttributes(attribute.String("researchaide.lineage_id", lineageID))

	state := initialState.Clone()
	entry := e.graph.EntryPoint()
	input := NewCheckpoint(lineageID, -1, CheckpointSourceInput, state)
	input.NextNode = entry
	if err := e.persist(ctx, input); err != nil {
		return nil, err
	}
	return e.run(ctx, lineageID, state, entry, 0)
}

// Resume continues a suspended or restarted run from its latest checkpoint.
// When the checkpoint is an interrupt, resumeValue is handed to the
// interrupted node via graph.Interrupt; otherwise resumeValue is ignored and
// execution continues from the next scheduled node. Already-checkpointed
// nodes are never re-run.
func (e *Executor) Resume(ctx context.Context, lineageID string, resumeValue any) (*ExecutionResult, error) {
	if e.saver == nil {
		return nil, errors.New("resume requires a checkpoint saver")
	}
	if lineageID == "" {
		return nil, ErrLineageIDRequired
	}
	ckpt, err := e.saver.Latest(ctx, lineageID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if ckpt == nil {
		return nil, ErrCheckpointNotFound
	}

	ctx, span := trace.Tracer.Start(ctx, "resume_graph")
	defer span.End()
	span.SetAttributes(attribute.String("researchaide.lineage_id", lineageID))

	state := ckpt.State.Clone()
	current := ckpt.NextNode
	if ckpt.InterruptState != nil {
		current = ckpt.InterruptState.NodeID
		state[StateKeyResume] = resumeValue
		state[StateKeyAwaitingInput] = false
	}
	if current == "" || current == End {
		// The run already finished; report its recorded outcome.
		return e.finalResult(lineageID, state), nil
	}
	return e.run(ctx, lineageID, state, current, ckpt.Step+1)
}

// run is the sequential execution loop shared by Execute and Resume.
func (e *Executor) run(ctx context.Context, lineageID string, state State, current string, step int) (*ExecutionResult, error) {
	for count := 0; ; count++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if count >= e.maxSteps {
			return nil, fmt.Errorf("maximum execution steps (%d) exceeded", e.maxSteps)
		}
		if current == End {
			return e.finalResult(lineageID, state), nil
		}

		node, exists := e.graph.Node(current)
		if !exists {
			return nil, fmt.Errorf("node %s not found", current)
		}
		state[StateKeyCurrentStep] = node.ID
		log.Debugf("graph: executing node %s (lineage %s, step %d)", node.ID, lineageID, step)

		next, suspended, err := e.executeNode(ctx, lineageID, state, node, step)
		if err != nil {
			return nil, err
		}
		if suspended != nil {
			return suspended, nil
		}

		ckpt := NewCheckpoint(lineageID, step, CheckpointSourceLoop, state)
		ckpt.NextNode = next
		if err := e.persist(ctx, ckpt); err != nil {
			return nil, err
		}
		current = next
		step++
	}
}

// executeNode runs one node, applies its update and selects the next node.
// When the node interrupts, a suspended result is returned instead.
func (e *Executor) executeNode(
	ctx context.Context,
	lineageID string,
	state State,
	node *Node,
	step int,
) (next string, suspended *ExecutionResult, err error) {
	ctx, span := trace.Tracer.Start(ctx, fmt.Sprintf("execute_node %s", node.ID))
	defer span.End()
	span.SetAttributes(
		attribute.String("researchaide.node_id", node.ID),
		attribute.Int("researchaide.step", step),
	)

	result, err := node.Function(ctx, state)
	if err != nil {
		ie, ok := AsInterruptError(err)
		if !ok {
			span.SetAttributes(attribute.String("researchaide.error", err.Error()))
			return "", nil, fmt.Errorf("node %s execution failed: %w", node.ID, err)
		}
		suspended, err = e.suspend(ctx, lineageID, state, node, step, ie)
		return "", suspended, err
	}

	goTo := ""
	switch update := result.(type) {
	case nil:
	case *Command:
		if update.Update != nil {
			e.applyUpdate(state, update.Update)
		}
		goTo = update.GoTo
	case State:
		e.applyUpdate(state, update)
	default:
		return "", nil, fmt.Errorf("node %s returned invalid result type %T", node.ID, result)
	}
	if goTo != "" {
		return goTo, nil, nil
	}
	next, err = e.selectNextNode(ctx, state, node.ID)
	return next, nil, err
}

// suspend persists an interrupt checkpoint and builds the suspended result.
// Failure to persist is fatal: a lost interrupt cannot be resumed.
func (e *Executor) suspend(
	ctx context.Context,
	lineageID string,
	state State,
	node *Node,
	step int,
	ie *InterruptError,
) (*ExecutionResult, error) {
	ie.NodeID = node.ID
	ie.Step = step
	state[StateKeyAwaitingInput] = true

	is := &InterruptState{
		NodeID: node.ID,
		Key:    ie.Key,
		Prompt: ie.Value,
		Step:   step,
	}
	ckpt := NewCheckpoint(lineageID, step, CheckpointSourceInterrupt, state)
	ckpt.NextNode = node.ID
	ckpt.InterruptState = is
	if err := e.persist(ctx, ckpt); err != nil {
		// A suspension that cannot be persisted cannot be resumed; fail the
		// run instead of lying to the caller.
		return nil, err
	}
	log.Infof("graph: run %s suspended at node %s awaiting input", lineageID, node.ID)
	return &ExecutionResult{
		LineageID: lineageID,
		Outcome:   OutcomeAwaitingInput,
		State:     state.Clone(),
		Interrupt: is,
	}, nil
}

// applyUpdate merges a partial update through the schema reducers. The loop
// owns the state map exclusively, so the merge result replaces it in place.
func (e *Executor) applyUpdate(state State, update State) {
	merged := e.graph.Schema().ApplyUpdate(state, update)
	for k := range state {
		delete(state, k)
	}
	for k, v := range merged {
		state[k] = v
	}
}

// selectNextNode selects the next node using conditional, then plain edges.
func (e *Executor) selectNextNode(ctx context.Context, state State, currentNodeID string) (string, error) {
	if condEdge, exists := e.graph.ConditionalEdge(currentNodeID); exists {
		label, err := condEdge.Condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("conditional edge evaluation failed: %w", err)
		}
		if next, ok := condEdge.PathMap[label]; ok {
			return next, nil
		}
		return "", fmt.Errorf("condition result %s not found in path map of %s", label, currentNodeID)
	}
	edges := e.graph.Edges(currentNodeID)
	if len(edges) == 0 {
		return End, nil
	}
	return edges[0].To, nil
}

// persist writes a checkpoint; a write failure is an engine-level error that
// aborts the run, because silent loss of state breaks resumability.
func (e *Executor) persist(ctx context.Context, ckpt *Checkpoint) error {
	if e.saver == nil {
		return nil
	}
	if err := e.saver.Put(ctx, ckpt); err != nil {
		return fmt.Errorf("persist checkpoint (lineage %s, step %d): %w", ckpt.LineageID, ckpt.Step, err)
	}
	return nil
}

func (e *Executor) finalResult(lineageID string, state State) *ExecutionResult {
	outcome := OutcomeSuccess
	if v, ok := state[StateKeyWorkflowOutcome].(string); ok && v != "" {
		outcome = v
	}
	return &ExecutionResult{
		LineageID: lineageID,
		Outcome:   outcome,
		State:     state.Clone(),
	}
}
