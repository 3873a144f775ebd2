// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/websocket"
)

type enterTopicResponse struct {
	TopicID string `json:"topic_id"`
	Cursor  string `json:"pagination_cursor"`
}

// TrendingTopics handles GET /trending-topics. Rendered lists are cached per
// region and trending version, and revalidated with an ETag over the data.
func (h *Handler) TrendingTopics(w http.ResponseWriter, r *http.Request) {
	q, err := parseRegionQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	body, err := h.trendingBody(q.Region)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("ETag", body.etag)
	if etagMatches(r.Header.Get("If-None-Match"), body.etag) {
		w.Header().Set("Cache-Control", cacheTrending)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	respondData(w, r, http.StatusOK, cacheTrending, json.RawMessage(body.data))
}

func (h *Handler) trendingBody(region string) (trendingBody, error) {
	key := region + "@" + h.discovery.TrendingVersion()
	if h.trending != nil {
		if body, ok := h.trending.Get(key); ok {
			return body, nil
		}
	}
	data, err := json.Marshal(models.NewTopicSummaries(h.discovery.Trending(region)))
	if err != nil {
		return trendingBody{}, err
	}
	body := trendingBody{data: data, etag: generateETag(data)}
	if h.trending != nil {
		h.trending.Set(key, body)
	}
	return body, nil
}

// EnterTopic handles POST /topics/{id}/enter.
func (h *Handler) EnterTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")
	cursor, err := h.navigator.Enter(r.Context(), callerID(r), topicID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheNoStore, enterTopicResponse{TopicID: topicID, Cursor: cursor})
}

// ExitTopic handles POST /topics/exit. Exiting while in DEFAULT succeeds.
func (h *Handler) ExitTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.navigator.Exit(r.Context(), callerID(r)); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheNoStore, struct{}{})
}

// TopicStream handles GET /topics/stream. The connection receives the
// caller region's trending list on join and after every publish.
func (h *Handler) TopicStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondCode(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "live updates are disabled")
		return
	}
	q, err := parseRegionQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := websocket.NewClient(h.hub, conn, q.Region)
	if err := h.hub.Join(r.Context(), client); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket join refused")
		_ = conn.Close()
		return
	}
	client.Start()
}
