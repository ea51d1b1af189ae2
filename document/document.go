//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package document fetches paper PDFs and turns them into plain text chunks
// ready for ingestion. Extraction sits behind a small interface so the
// processing node can be tested without real PDFs.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// maxPDFBytes bounds the download size of a single paper.
const maxPDFBytes = 50 << 20

// Extractor produces plain text from a document location.
type Extractor interface {
	// Text downloads the document at url and extracts its plain text.
	Text(ctx context.Context, url string) (string, error)
}

// PDFExtractor is the default Extractor: it downloads a PDF over HTTP and
// extracts text with the pdf reader.
type PDFExtractor struct {
	httpClient *http.Client
}

var _ Extractor = (*PDFExtractor)(nil)

// Option configures a PDFExtractor.
type Option func(*PDFExtractor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(e *PDFExtractor) {
		e.httpClient = hc
	}
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor(opts ...Option) *PDFExtractor {
	e := &PDFExtractor{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Text implements Extractor.
func (e *PDFExtractor) Text(ctx context.Context, url string) (string, error) {
	raw, err := e.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return ExtractText(raw)
}

func (e *PDFExtractor) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch pdf: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if len(raw) > maxPDFBytes {
		return nil, fmt.Errorf("pdf exceeds %d byte limit", maxPDFBytes)
	}
	return raw, nil
}

// ExtractText extracts plain text from raw PDF bytes.
func ExtractText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// Chunk splits text into word-boundary chunks of roughly size runes with the
// given overlap. Chunking is deterministic: the same text always produces
// the same chunks, so re-ingesting a paper is idempotent at the chunk level.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, word := range words {
		wordLen := len([]rune(word)) + 1
		if currentLen+wordLen > size && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = tailByRunes(current, overlap)
			currentLen = joinedLen(current)
		}
		current = append(current, word)
		currentLen += wordLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// tailByRunes returns the suffix of words whose joined length is at most
// budget runes.
func tailByRunes(words []string, budget int) []string {
	if budget <= 0 {
		return nil
	}
	total := 0
	for i := len(words) - 1; i >= 0; i-- {
		total += len([]rune(words[i])) + 1
		if total > budget {
			return words[i+1:]
		}
	}
	return words
}

func joinedLen(words []string) int {
	total := 0
	for _, w := range words {
		total += len([]rune(w)) + 1
	}
	return total
}
