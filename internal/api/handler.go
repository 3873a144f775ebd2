// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/civitas/internal/auth"
	"github.com/tomtom215/civitas/internal/authz"
	"github.com/tomtom215/civitas/internal/cache"
	"github.com/tomtom215/civitas/internal/discovery"
	"github.com/tomtom215/civitas/internal/ingest"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/navigation"
	"github.com/tomtom215/civitas/internal/websocket"
)

// Discovery is the slice of discovery.Engine the handlers read.
type Discovery interface {
	Trending(region string) []*models.Topic
	Trigger(ctx context.Context, callerID string) (*discovery.RunReport, error)
	// TrendingVersion changes whenever Trending's output may change.
	TrendingVersion() string
}

// Navigator is the feed state machine.
type Navigator interface {
	Enter(ctx context.Context, userID, topicID string) (string, error)
	Exit(ctx context.Context, userID string) error
	GetPage(ctx context.Context, userID string, req navigation.PageRequest) (*navigation.Page, error)
	State(ctx context.Context, userID string) (models.UserFeedState, error)
}

// Content accepts content writes.
type Content interface {
	Submit(ctx context.Context, sub ingest.Submission) (*models.ContentItem, error)
	Edit(ctx context.Context, userID, id, text string) (*models.ContentItem, error)
	Engage(ctx context.Context, userID, id string, kind models.EngagementKind) error
	Tombstone(ctx context.Context, userID, id string, moderator bool) error
}

// Permissions answers permission questions for the request's subject.
type Permissions interface {
	Allowed(ctx context.Context, perm authz.Permission) bool
}

// HealthCheck is one readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HandlerConfig carries handler tunables.
type HandlerConfig struct {
	// TrendingCacheTTL bounds reuse of a rendered trending list. Zero
	// disables the response cache.
	TrendingCacheTTL time.Duration

	// AllowedOrigins gates websocket upgrades. "*" allows any origin.
	AllowedOrigins []string

	// ReadyTimeout bounds all readiness checks together.
	// Default: 2s
	ReadyTimeout time.Duration
}

// trendingBody is a rendered trending list and its ETag.
type trendingBody struct {
	data []byte
	etag string
}

// Handler serves the /api/v1 endpoints.
type Handler struct {
	discovery   Discovery
	navigator   Navigator
	content     Content
	permissions Permissions
	hub         *websocket.Hub
	checks      []HealthCheck
	cfg         HandlerConfig
	trending    *cache.Cache[trendingBody]
	upgrader    gorillaws.Upgrader
	startedAt   time.Time
}

// NewHandler wires the handler. hub may be nil, in which case the stream
// endpoint reports 503.
func NewHandler(d Discovery, nav Navigator, content Content, perms Permissions, hub *websocket.Hub, cfg HandlerConfig, checks ...HealthCheck) *Handler {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}
	h := &Handler{
		discovery:   d,
		navigator:   nav,
		content:     content,
		permissions: perms,
		hub:         hub,
		checks:      checks,
		cfg:         cfg,
		startedAt:   time.Now(),
	}
	if cfg.TrendingCacheTTL > 0 {
		h.trending = cache.New[trendingBody](cache.Options{
			TTL:             cfg.TrendingCacheTTL,
			MaxEntries:      1024,
			CleanupInterval: cfg.TrendingCacheTTL * 4,
		})
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Close stops the response cache janitor.
func (h *Handler) Close() {
	if h.trending != nil {
		h.trending.Close()
	}
}

// checkOrigin admits requests with no Origin header (non-browser clients)
// and origins on the allow list.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// callerID is the authenticated subject's ID, empty outside the
// authenticated group.
func callerID(r *http.Request) string {
	if s := auth.GetAuthSubject(r.Context()); s != nil {
		return s.ID
	}
	return ""
}
