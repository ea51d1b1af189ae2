//
// Copyright (C) 2025 The researchaide authors.  All rights reserved.
//
// researchaide is licensed under the Apache License Version 2.0.
//
//

package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Attention Is
  Not All You Need</title>
    <summary>
      We revisit attention.
    </summary>
    <published>2024-01-01T12:00:00Z</published>
    <author><name>A. Author</name></author>
    <author><name>B. Author</name></author>
    <link href="http://arxiv.org/abs/2401.00001v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2401.00001v1" rel="related" type="application/pdf"/>
  </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	papers, err := ParseFeed([]byte(sampleFeed))
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "2401.00001v1", p.ID)
	assert.Equal(t, "Attention Is Not All You Need", p.Title)
	assert.Equal(t, "We revisit attention.", p.Summary)
	assert.Equal(t, []string{"A. Author", "B. Author"}, p.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00001v1", p.PDFURL)
	assert.Equal(t, 2024, p.Published.Year())
}

func TestParseFeedEmpty(t *testing.T) {
	papers, err := ParseFeed([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestParseFeedMalformed(t *testing.T) {
	_, err := ParseFeed([]byte("not xml"))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:quantum error correction", r.URL.Query().Get("search_query"))
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	papers, err := c.Search(context.Background(), "quantum error correction", 3)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
}

func TestSearchRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRetryWait(time.Millisecond))
	papers, err := c.Search(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Len(t, papers, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithMaxRetries(1), WithRetryWait(time.Millisecond))
	_, err := c.Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	_, err := NewClient().Search(context.Background(), "", 5)
	assert.Error(t, err)
}

func TestPaperByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2401.00001v1", r.URL.Query().Get("id_list"))
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	p, err := NewClient(WithBaseURL(srv.URL)).PaperByID(context.Background(), "2401.00001v1")
	require.NoError(t, err)
	assert.Equal(t, "2401.00001v1", p.ID)
}
