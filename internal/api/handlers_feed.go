// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"net/http"

	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/navigation"
)

// feedPageResponse is the wire form of navigation.Page. Items drop their
// vectors.
type feedPageResponse struct {
	Mode         models.FeedMode      `json:"mode"`
	TopicID      string               `json:"topic_id,omitempty"`
	Items        []models.ContentView `json:"items"`
	Cursor       string               `json:"cursor,omitempty"`
	HasMore      bool                 `json:"has_more"`
	Exhausted    bool                 `json:"exhausted,omitempty"`
	TopicEnded   bool                 `json:"topic_ended"`
	EndedTopicID string               `json:"ended_topic_id,omitempty"`
	Degraded     bool                 `json:"degraded"`
}

func newFeedPageResponse(p *navigation.Page) feedPageResponse {
	return feedPageResponse{
		Mode:         p.Mode,
		TopicID:      p.TopicID,
		Items:        models.NewContentViews(p.Items),
		Cursor:       p.Cursor,
		HasMore:      p.HasMore,
		Exhausted:    p.Exhausted,
		TopicEnded:   p.TopicEnded,
		EndedTopicID: p.EndedTopicID,
		Degraded:     p.Degraded,
	}
}

// FeedPage handles GET /feed/page.
func (h *Handler) FeedPage(w http.ResponseWriter, r *http.Request) {
	q, err := parseFeedPageQuery(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	page, err := h.navigator.GetPage(r.Context(), callerID(r), navigation.PageRequest{
		PageSize: q.PageSize,
		Weights:  q.Weights,
		Seed:     q.Seed,
		Cursor:   q.Cursor,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	resp := newFeedPageResponse(page)
	respondJSON(w, http.StatusOK, cacheFeed, &models.APIResponse{
		Success: true,
		Data:    resp,
		Meta:    pageMeta(r, page.Degraded),
	})
}

// FeedState handles GET /feed/state.
func (h *Handler) FeedState(w http.ResponseWriter, r *http.Request) {
	state, err := h.navigator.State(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheFeed, state)
}

func pageMeta(r *http.Request, degraded bool) models.Metadata {
	meta := newMeta(r)
	meta.Degraded = degraded
	return meta
}
