// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package summarize synthesizes a topic title and the two sides of a
// discussion from a cluster's representative posts, using an
// OpenAI-compatible chat completions endpoint.
package summarize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/resilience"
)

const systemPrompt = `You summarize public discussions. You receive numbered posts that belong to one conversation.
Reply with a single JSON object with exactly these string fields:
"title": a neutral headline of at most 12 words,
"prevailing_position": one or two sentences stating the view most posts share,
"leading_critique": one or two sentences stating the strongest opposing view.
Do not include any other text.`

var errEmptyField = errors.New("summarize: response is missing a required field")

// Client calls the summarization service.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	timeout  time.Duration

	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient builds a client from configuration.
func NewClient(cfg config.SummarizerConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{})
}

// NewClientWithHTTP lets tests supply an httptest client.
func NewClientWithHTTP(cfg config.SummarizerConfig, httpClient *http.Client) *Client {
	return &Client{
		endpoint:   strings.TrimRight(cfg.URL, "/") + "/chat/completions",
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
		breaker:    resilience.NewBreaker("summarizer"),
	}
}

// Timeout is the upper bound of one Synthesize call.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Synthesize asks the model for a Synthesis of texts. Any transport failure,
// timeout or incomplete answer wraps models.ErrTransientUpstream.
func (c *Client) Synthesize(ctx context.Context, texts []string) (models.Synthesis, error) {
	if len(texts) == 0 {
		return models.Synthesis{}, fmt.Errorf("summarize: no texts")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	syn, err := resilience.Execute(c.breaker, func() (models.Synthesis, error) {
		return c.complete(ctx, texts)
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
		metrics.SummarizeRequests.WithLabelValues(result).Inc()
		return models.Synthesis{}, fmt.Errorf("%w: %w", models.ErrTransientUpstream, err)
	}
	metrics.SummarizeRequests.WithLabelValues("success").Inc()
	return syn, nil
}

func (c *Client) complete(ctx context.Context, texts []string) (models.Synthesis, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(texts)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.2,
	})
	if err != nil {
		return models.Synthesis{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.Synthesis{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Synthesis{}, fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return models.Synthesis{}, fmt.Errorf("summarizer error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Synthesis{}, fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return models.Synthesis{}, fmt.Errorf("summarizer returned no choices")
	}
	return parseSynthesis(out.Choices[0].Message.Content)
}

// parseSynthesis decodes the model's JSON answer. Models sometimes wrap the
// object in a markdown fence.
func parseSynthesis(content string) (models.Synthesis, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var syn models.Synthesis
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &syn); err != nil {
		return models.Synthesis{}, fmt.Errorf("decode synthesis: %w", err)
	}
	syn.Title = strings.TrimSpace(syn.Title)
	syn.PrevailingPosition = strings.TrimSpace(syn.PrevailingPosition)
	syn.LeadingCritique = strings.TrimSpace(syn.LeadingCritique)
	if syn.Title == "" || syn.PrevailingPosition == "" || syn.LeadingCritique == "" {
		return models.Synthesis{}, errEmptyField
	}
	return syn, nil
}

func userPrompt(texts []string) string {
	var b strings.Builder
	for i, t := range texts {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(strings.ReplaceAll(t, "\n", " "))
		b.WriteByte('\n')
	}
	return b.String()
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
