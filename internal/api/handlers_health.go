// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/civitas/internal/models"
)

// Health status values.
const (
	healthOK       = "ok"
	healthDegraded = "degraded"
)

type liveResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readyResponse struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

// HealthLive handles GET /health/live. It only proves the process serves.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, cacheNoCache, liveResponse{
		Status:        healthOK,
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
	})
}

// HealthReady handles GET /health/ready. Checks run concurrently under one
// deadline; any failure answers 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.ReadyTimeout)
	defer cancel()

	resp := readyResponse{Status: healthOK, Checks: make(map[string]checkResult, len(h.checks))}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, c := range h.checks {
		wg.Add(1)
		go func(c HealthCheck) {
			defer wg.Done()
			res := checkResult{Status: healthOK}
			if err := c.Check(ctx); err != nil {
				res = checkResult{Status: healthDegraded, Error: err.Error()}
			}
			mu.Lock()
			resp.Checks[c.Name] = res
			if res.Status != healthOK {
				resp.Status = healthDegraded
			}
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	if resp.Status == healthOK {
		respondData(w, r, http.StatusOK, cacheNoCache, resp)
		return
	}
	respondJSON(w, http.StatusServiceUnavailable, cacheNoCache, &models.APIResponse{
		Success: false,
		Data:    resp,
		Error:   &models.APIError{Code: ErrCodeServiceUnavailable, Message: "one or more dependencies are unavailable"},
		Meta:    newMeta(r),
	})
}
