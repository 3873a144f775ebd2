// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package summarize

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/models"
)

func chatServer(t *testing.T, status int, content string, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}
		if len(req.Messages) != 2 || !strings.HasPrefix(req.Messages[1].Content, "1. ") {
			t.Errorf("messages = %+v", req.Messages)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != http.StatusOK {
			http.Error(w, strings.Repeat("x", 4096), status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, timeout time.Duration) *Client {
	return NewClientWithHTTP(config.SummarizerConfig{URL: srv.URL, Model: "test-model", Timeout: timeout}, srv.Client())
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, http.StatusOK, `{"title":"Transit levy","prevailing_position":"Most favor it.","leading_critique":"Costs fall on renters."}`, 0)
	c := newTestClient(srv, time.Second)

	syn, err := c.Synthesize(context.Background(), []string{"the levy is good", "renters pay more"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if syn.Title != "Transit levy" || syn.LeadingCritique != "Costs fall on renters." {
		t.Errorf("Synthesize() = %+v", syn)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		content string
		delay   time.Duration
	}{
		{"server error", http.StatusInternalServerError, "", 0},
		{"empty field", http.StatusOK, `{"title":"T","prevailing_position":"","leading_critique":"c"}`, 0},
		{"not json", http.StatusOK, "I cannot help with that", 0},
		{"timeout", http.StatusOK, `{}`, 500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := chatServer(t, tt.status, tt.content, tt.delay)
			c := newTestClient(srv, 50*time.Millisecond)

			_, err := c.Synthesize(context.Background(), []string{"a"})
			if !errors.Is(err, models.ErrTransientUpstream) {
				t.Errorf("error = %v, want ErrTransientUpstream", err)
			}
		})
	}
}

func TestParseSynthesisFenced(t *testing.T) {
	t.Parallel()

	syn, err := parseSynthesis("```json\n{\"title\":\" A \",\"prevailing_position\":\"B\",\"leading_critique\":\"C\"}\n```")
	if err != nil {
		t.Fatalf("parseSynthesis() error = %v", err)
	}
	if syn.Title != "A" {
		t.Errorf("Title = %q, want trimmed", syn.Title)
	}
}

func TestSynthesizeRequiresTexts(t *testing.T) {
	t.Parallel()

	c := NewClient(config.SummarizerConfig{URL: "http://127.0.0.1:1"})
	if _, err := c.Synthesize(context.Background(), nil); err == nil {
		t.Error("expected error for empty input")
	}
}
