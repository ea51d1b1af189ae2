//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Command researchaide runs the research workflow service: an HTTP API over
// the durable PhD/PostDoc literature review state machine.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/researchaide/researchaide/agent/phd"
	"github.com/researchaide/researchaide/agent/postdoc"
	"github.com/researchaide/researchaide/arxiv"
	"github.com/researchaide/researchaide/config"
	"github.com/researchaide/researchaide/document"
	"github.com/researchaide/researchaide/graph/checkpoint/sqlite"
	"github.com/researchaide/researchaide/ingest/bleveindex"
	"github.com/researchaide/researchaide/log"
	"github.com/researchaide/researchaide/model/openai"
	"github.com/researchaide/researchaide/orchestration"
	"github.com/researchaide/researchaide/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("researchaide: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	saver, err := sqlite.Open(cfg.CheckpointDB)
	if err != nil {
		return err
	}
	defer saver.Close()

	indexer := bleveindex.New(cfg.IndexDir)
	defer indexer.Close()

	modelOpts := []openai.Option{openai.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		modelOpts = append(modelOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	chat := openai.New(cfg.OpenAIModel, modelOpts...)

	orch, err := orchestration.New(orchestration.Dependencies{
		PhD:       phd.New(chat),
		PostDoc:   postdoc.New(chat),
		Search:    arxiv.NewClient(),
		Extractor: document.NewPDFExtractor(),
		Ingestor:  indexer,
		Saver:     saver,
	},
		orchestration.WithMaxIterationsRefine(cfg.MaxIterationsRefine),
		orchestration.WithMinAcceptableScore(cfg.MinAcceptableScore),
		orchestration.WithMaxResultsPerQuery(cfg.MaxResultsPerQuery),
		orchestration.WithShortlistThreshold(cfg.ShortlistThreshold),
		orchestration.WithReviewEnabled(cfg.ReviewEnabled),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(orch)
	return srv.Serve(ctx, cfg.Addr)
}
