//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

// Package arxiv is a client for the arXiv Atom search API. Calls carry a
// per-request timeout and a small fixed retry budget; the workflow treats a
// failed query as a partial result, so the client reports errors instead of
// retrying forever.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/researchaide/researchaide/log"
)

const defaultBaseURL = "http://export.arxiv.org/api/query"

// Paper is the metadata of one arXiv entry.
type Paper struct {
	// ID is the bare arXiv identifier, e.g. "2401.00001v1".
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	Summary   string    `json:"summary"`
	PDFURL    string    `json:"pdf_url"`
	Published time.Time `json:"published"`
}

// Client queries the arXiv API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryWait  time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryWait sets the pause between retry attempts.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) {
		c.retryWait = d
	}
}

// NewClient creates an arXiv client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
		retryWait:  3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns up to maxResults papers matching the query, sorted by
// relevance.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "relevance")
	return c.fetch(ctx, params)
}

// PaperByID fetches the metadata of a single paper by its arXiv id.
func (c *Client) PaperByID(ctx context.Context, id string) (*Paper, error) {
	if id == "" {
		return nil, fmt.Errorf("id is empty")
	}
	params := url.Values{}
	params.Set("id_list", id)
	params.Set("max_results", "1")
	papers, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("paper %s not found", id)
	}
	return &papers[0], nil
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]Paper, error) {
	endpoint := c.baseURL + "?" + params.Encode()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warnf("arxiv: retrying request (attempt %d): %v", attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryWait):
			}
		}
		papers, err := c.doFetch(ctx, endpoint)
		if err == nil {
			return papers, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("arxiv request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) doFetch(ctx context.Context, endpoint string) ([]Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return ParseFeed(body)
}

// Atom feed wire format.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Summary   string   `xml:"summary"`
	Published string   `xml:"published"`
	Authors   []author `xml:"author"`
	Links     []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// ParseFeed decodes an Atom response body into papers.
func ParseFeed(body []byte) ([]Paper, error) {
	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode atom feed: %w", err)
	}
	papers := make([]Paper, 0, len(f.Entries))
	for _, e := range f.Entries {
		p := Paper{
			ID:      idFromEntryURL(e.ID),
			Title:   collapseWhitespace(e.Title),
			Summary: strings.TrimSpace(e.Summary),
		}
		for _, a := range e.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		for _, l := range e.Links {
			if l.Title == "pdf" || l.Type == "application/pdf" {
				p.PDFURL = l.Href
				break
			}
		}
		if e.Published != "" {
			if ts, err := time.Parse(time.RFC3339, e.Published); err == nil {
				p.Published = ts
			}
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// idFromEntryURL extracts the bare arXiv id from the entry URL, e.g.
// "http://arxiv.org/abs/2401.00001v1" -> "2401.00001v1".
func idFromEntryURL(entryURL string) string {
	if i := strings.LastIndex(entryURL, "/"); i >= 0 {
		return entryURL[i+1:]
	}
	return entryURL
}

// collapseWhitespace normalizes the newline-wrapped titles arXiv returns.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
