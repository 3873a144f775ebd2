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
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/models"
)

// Remote calls an OpenAI-compatible /embeddings endpoint.
type Remote struct {
	baseURL string
	model   string
	apiKey  string
	dims    int
	client  *http.Client
}

// NewRemote builds the remote tier. Deadlines come from the caller's context.
func NewRemote(cfg config.ProviderConfig, dims int, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{}
	}
	return &Remote{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		dims:    dims,
		client:  client,
	}
}

func (r *Remote) Name() string               { return "remote:" + r.model }
func (r *Remote) Tier() models.EmbeddingTier { return models.TierRemote }

// Embed requests a single vector of the configured dimensionality.
func (r *Remote) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(remoteRequest{
		Model:      r.model,
		Input:      []string{text},
		Dimensions: r.dims,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: %w", upstreamError(r.Name(), resp))
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(result.Data) == 0 {
		return nil, fmt.Errorf("embedding: %s returned no data", r.Name())
	}

	sort.Slice(result.Data, func(i, j int) bool {
		return result.Data[i].Index < result.Data[j].Index
	})
	vec := result.Data[0].Embedding
	if len(vec) != r.dims {
		return nil, fmt.Errorf("embedding: %s returned %d dimensions, want %d", r.Name(), len(vec), r.dims)
	}
	return vec, nil
}

type remoteRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type remoteResponse struct {
	Data []remoteEmbedding `json:"data"`
}

type remoteEmbedding struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}
