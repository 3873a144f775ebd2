// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package embedding

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/models"
)

// Local calls an Ollama-compatible /api/embed endpoint. Vectors of any native
// size are reprojected to the configured dimensionality.
type Local struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// NewLocal builds the local tier.
func NewLocal(cfg config.ProviderConfig, dims int, client *http.Client) *Local {
	if client == nil {
		client = &http.Client{}
	}
	return &Local{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		dims:    dims,
		client:  client,
	}
}

func (l *Local) Name() string               { return "local:" + l.model }
func (l *Local) Tier() models.EmbeddingTier { return models.TierLocal }

func (l *Local) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(localRequest{Model: l.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: %w", upstreamError(l.Name(), resp))
	}

	var result localResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding: %s returned no embeddings", l.Name())
	}
	return Reproject(result.Embeddings[0], l.dims), nil
}

type localRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type localResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}
