// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/civitas/internal/authz"
	"github.com/tomtom215/civitas/internal/ingest"
	"github.com/tomtom215/civitas/internal/models"
)

type engagementResponse struct {
	ContentID string                `json:"content_id"`
	Kind      models.EngagementKind `json:"kind"`
}

type tombstoneResponse struct {
	ContentID string `json:"content_id"`
	Deleted   bool   `json:"deleted"`
}

// SubmitContent handles POST /content.
func (h *Handler) SubmitContent(w http.ResponseWriter, r *http.Request) {
	var req submitContentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := h.content.Submit(r.Context(), ingest.Submission{
		AuthorID:    callerID(r),
		Text:        req.Text,
		Region:      req.Region,
		IsPolitical: req.IsPolitical,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/content/"+item.ID)
	respondData(w, r, http.StatusCreated, cacheNoStore, models.NewContentView(item))
}

// EditContent handles PATCH /content/{id}.
func (h *Handler) EditContent(w http.ResponseWriter, r *http.Request) {
	var req editContentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := h.content.Edit(r.Context(), callerID(r), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheNoStore, models.NewContentView(item))
}

// DeleteContent handles DELETE /content/{id}. Moderators may remove other
// authors' content.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	moderator := h.permissions != nil && h.permissions.Allowed(r.Context(), authz.PermContentModerate)
	if err := h.content.Tombstone(r.Context(), callerID(r), id, moderator); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheNoStore, tombstoneResponse{ContentID: id, Deleted: true})
}

// EngageContent handles POST /content/{id}/engagement.
func (h *Handler) EngageContent(w http.ResponseWriter, r *http.Request) {
	var req engagementRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	kind := models.EngagementKind(req.Kind)
	if err := h.content.Engage(r.Context(), callerID(r), id, kind); err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheNoStore, engagementResponse{ContentID: id, Kind: kind})
}
