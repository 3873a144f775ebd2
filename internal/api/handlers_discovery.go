// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"net/http"

	"github.com/tomtom215/civitas/internal/discovery"
)

type runReportResponse struct {
	Trigger    string `json:"trigger"`
	Window     int    `json:"window"`
	Truncated  bool   `json:"truncated"`
	Formed     int    `json:"formed"`
	Qualified  int    `json:"qualified"`
	Published  int    `json:"published"`
	Deferred   int    `json:"deferred"`
	DurationMS int64  `json:"duration_ms"`
}

func newRunReportResponse(r *discovery.RunReport) runReportResponse {
	return runReportResponse{
		Trigger:    r.Trigger,
		Window:     r.Window,
		Truncated:  r.Truncated,
		Formed:     r.Formed,
		Qualified:  r.Qualified,
		Published:  r.Published,
		Deferred:   r.Deferred,
		DurationMS: r.Duration.Milliseconds(),
	}
}

// RunDiscovery handles POST /discovery/run. Each caller is limited to one
// run per cooldown; a run already in progress returns 409.
func (h *Handler) RunDiscovery(w http.ResponseWriter, r *http.Request) {
	report, err := h.discovery.Trigger(r.Context(), callerID(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, cacheNoStore, newRunReportResponse(report))
}
