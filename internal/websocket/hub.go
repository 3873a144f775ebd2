// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
)

// ShutdownReason describes why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to or read from clients.
const (
	MessageTypeTrending = "trending_topics"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is the frame format in both directions.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// TrendingData is the payload of a trending_topics message.
type TrendingData struct {
	Region      string                `json:"region,omitempty"`
	Topics      []models.TopicSummary `json:"topics"`
	PublishedAt time.Time             `json:"published_at"`
}

// ErrHubStopped is returned by Join after the hub shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

// TrendingFunc returns the trending list a client in region should see.
type TrendingFunc func(region string) []*models.Topic

// Hub fans trending updates out to connected clients. Each client sees the
// list for its own region, computed once per region per publish.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	published  chan struct{}
	done       chan struct{}
	doneOnce   sync.Once
	trending   TrendingFunc
	now        func() time.Time
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewHub creates a hub reading lists from trending.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHub(trending TrendingFunc, logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		published:  make(chan struct{}, 1),
		done:       make(chan struct{}),
		trending:   trending,
		now:        time.Now,
		logger:     logger.With().Str("component", "websocket-hub").Logger(),
	}
}

// TopicsPublished implements discovery.Observer. Bursts of publishes
// coalesce into one push; it never blocks.
func (h *Hub) TopicsPublished(_ []*models.Topic) {
	select {
	case h.published <- struct{}{}:
	default:
	}
}

// RunWithContext serves registrations and pushes until ctx is done, then
// closes every client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.add(client)
			h.sendTo(client, h.trendingMessage(client.region))

		case client := <-h.Unregister:
			h.remove(client)

		case <-h.published:
			h.broadcastTrending()
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	h.logger.Debug().Uint64("client_id", client.id).Str("region", client.region).Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	h.logger.Debug().Uint64("client_id", client.id).Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) trendingMessage(region string) Message {
	return Message{
		Type: MessageTypeTrending,
		Data: TrendingData{
			Region:      region,
			Topics:      models.NewTopicSummaries(h.trending(region)),
			PublishedAt: h.now().UTC(),
		},
	}
}

// sendTo drops a client whose buffer is full rather than stalling the hub.
func (h *Hub) sendTo(client *Client, msg Message) {
	select {
	case client.send <- msg:
	default:
		h.logger.Warn().Uint64("client_id", client.id).Msg("websocket client too slow, disconnecting")
		h.remove(client)
	}
}

func (h *Hub) broadcastTrending() {
	byRegion := make(map[string][]*Client)
	for _, client := range h.sortedClients() {
		byRegion[client.region] = append(byRegion[client.region], client)
	}
	for region, clients := range byRegion {
		msg := h.trendingMessage(region)
		for _, client := range clients {
			h.sendTo(client, msg)
		}
	}
	h.logger.Debug().Int("regions", len(byRegion)).Msg("pushed trending topics")
}

func (h *Hub) sortedClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

func (h *Hub) shutdown(ctx context.Context) {
	h.doneOnce.Do(func() { close(h.done) })
	h.mu.Lock()
	n := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()
	metrics.WebSocketClients.Set(0)

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	h.logger.Info().Str("reason", string(reason)).Int("clients_closed", n).Msg("websocket hub stopped")
}

// Join registers client, giving up when ctx ends or the hub has stopped.
func (h *Hub) Join(ctx context.Context, client *Client) error {
	select {
	case h.Register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
