// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// ContextRunner blocks until its context is done.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// WebSocketHubService runs the trending push hub.
type WebSocketHubService struct {
	hub ContextRunner
}

// NewWebSocketHubService wraps hub.
func NewWebSocketHubService(hub ContextRunner) *WebSocketHubService {
	return &WebSocketHubService{hub: hub}
}

// Serve implements suture.Service. A stopped hub cannot restart, so it is
// not restarted; clients reconnect to a fresh process.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	err := w.hub.RunWithContext(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("websocket hub stopped: %w: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

func (w *WebSocketHubService) String() string {
	return "websocket-hub"
}

// Bus is the event bus router.
type Bus interface {
	Run(ctx context.Context) error
}

// EventBusService runs the watermill router that delivers content events
// to the embedding worker and the topic eviction listener.
type EventBusService struct {
	bus Bus
}

// NewEventBusService wraps bus.
func NewEventBusService(bus Bus) *EventBusService {
	return &EventBusService{bus: bus}
}

// Serve implements suture.Service. Watermill routers run once; when the
// router fails outside shutdown the tree is stopped so the process exits
// and its orchestrator restarts it with a fresh transport.
func (s *EventBusService) Serve(ctx context.Context) error {
	err := s.bus.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("router returned")
	}
	return fmt.Errorf("event bus stopped: %w: %w", suture.ErrTerminateSupervisorTree, err)
}

func (s *EventBusService) String() string {
	return "event-bus"
}
