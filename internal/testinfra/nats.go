// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

//go:build integration

package testinfra

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/wait"
)

// DefaultNATSImage backs events.transport=nats tests against an external
// server.
const DefaultNATSImage = "nats:2.10-alpine"

// NATSContainer is a core NATS server.
type NATSContainer struct {
	*endpoint
	// URL is the client URL for config.EventsConfig.NATSURL.
	URL string
}

// NewNATSContainer starts NATS and waits for the client port.
func NewNATSContainer(ctx context.Context, opts ...Option) (*NATSContainer, error) {
	ep, err := start(ctx, DefaultNATSImage, "4222", wait.ForListeningPort("4222/tcp"), nil, opts)
	if err != nil {
		return nil, err
	}
	return &NATSContainer{endpoint: ep, URL: "nats://" + ep.HostPort}, nil
}

// StartNATS starts NATS for t, skipping without Docker.
func StartNATS(t *testing.T) *NATSContainer {
	t.Helper()
	SkipIfNoDocker(t)
	c, err := NewNATSContainer(context.Background())
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	CleanupContainer(t, c)
	return c
}
