//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package config loads runtime configuration from the environment. A .env
// file in the working directory is loaded first when present; explicit
// environment variables win over it.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults for the workflow tuning knobs.
const (
	DefaultAddr                = ":8080"
	DefaultCheckpointDB        = "researchaide-checkpoints.db"
	DefaultIndexDir            = "researchaide-index"
	DefaultOpenAIModel         = "gpt-4o-mini"
	DefaultMaxIterationsRefine = 3
	DefaultMinAcceptableScore  = 0.6
	DefaultMaxResultsPerQuery  = 5
	DefaultShortlistThreshold  = 7.0
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// OpenAIAPIKey authenticates against the LLM backend.
	OpenAIAPIKey string
	// OpenAIBaseURL points at an OpenAI-compatible endpoint; empty uses the
	// official API.
	OpenAIBaseURL string
	// OpenAIModel is the chat model name.
	OpenAIModel string
	// CheckpointDB is the SQLite file holding workflow checkpoints.
	CheckpointDB string
	// IndexDir is the directory holding per-session search indexes.
	IndexDir string
	// MaxIterationsRefine caps the refinement loop.
	MaxIterationsRefine int
	// MinAcceptableScore terminates refinement once the evaluation score
	// reaches it, in [0, 1].
	MinAcceptableScore float64
	// MaxResultsPerQuery bounds each arXiv query.
	MaxResultsPerQuery int
	// ShortlistThreshold is the minimum relevance score (0-10) for a paper
	// to reach the shortlist.
	ShortlistThreshold float64
	// ReviewEnabled pauses the workflow for human shortlist review.
	ReviewEnabled bool
}

// Load resolves the configuration from a .env file (if present) and the
// process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:                envOr("RESEARCHAIDE_ADDR", DefaultAddr),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:         envOr("OPENAI_MODEL", DefaultOpenAIModel),
		CheckpointDB:        envOr("RESEARCHAIDE_CHECKPOINT_DB", DefaultCheckpointDB),
		IndexDir:            envOr("RESEARCHAIDE_INDEX_DIR", DefaultIndexDir),
		MaxIterationsRefine: DefaultMaxIterationsRefine,
		MinAcceptableScore:  DefaultMinAcceptableScore,
		MaxResultsPerQuery:  DefaultMaxResultsPerQuery,
		ShortlistThreshold:  DefaultShortlistThreshold,
		ReviewEnabled:       true,
	}

	var err error
	if cfg.MaxIterationsRefine, err = envInt("RESEARCHAIDE_MAX_ITERATIONS_REFINE", cfg.MaxIterationsRefine); err != nil {
		return nil, err
	}
	if cfg.MinAcceptableScore, err = envFloat("RESEARCHAIDE_MIN_ACCEPTABLE_SCORE", cfg.MinAcceptableScore); err != nil {
		return nil, err
	}
	if cfg.MaxResultsPerQuery, err = envInt("RESEARCHAIDE_MAX_RESULTS_PER_QUERY", cfg.MaxResultsPerQuery); err != nil {
		return nil, err
	}
	if cfg.ShortlistThreshold, err = envFloat("RESEARCHAIDE_SHORTLIST_THRESHOLD", cfg.ShortlistThreshold); err != nil {
		return nil, err
	}
	if cfg.ReviewEnabled, err = envBool("RESEARCHAIDE_REVIEW_ENABLED", cfg.ReviewEnabled); err != nil {
		return nil, err
	}

	if cfg.MaxIterationsRefine < 0 {
		return nil, fmt.Errorf("RESEARCHAIDE_MAX_ITERATIONS_REFINE must not be negative")
	}
	if cfg.MinAcceptableScore < 0 || cfg.MinAcceptableScore > 1 {
		return nil, fmt.Errorf("RESEARCHAIDE_MIN_ACCEPTABLE_SCORE must be in [0, 1]")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
