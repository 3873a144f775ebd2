// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package embedding

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tomtom215/civitas/internal/models"
)

// maxErrorBody bounds how much of an upstream error response is read.
const maxErrorBody = 1024

// Provider turns text into a vector for one tier.
type Provider interface {
	// Name identifies the provider and model, e.g. "remote:text-embedding-3-small".
	Name() string
	Tier() models.EmbeddingTier
	Embed(ctx context.Context, text string) ([]float32, error)
}

// upstreamError reads a bounded slice of a non-200 body into an error.
func upstreamError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%s returned %d: %s", provider, resp.StatusCode, body)
}
