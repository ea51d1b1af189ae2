//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package trace provides the shared tracer used throughout researchaide.
// Without a configured SDK exporter the spans are no-ops, so instrumented
// code never needs to branch on whether tracing is enabled.
package trace

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope reported on spans.
const ScopeName = "github.com/researchaide/researchaide"

// Tracer is the tracer used by the graph executor and the model clients.
var Tracer trace.Tracer = otel.Tracer(ScopeName)
