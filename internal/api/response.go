// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/models"
)

// Cache-Control values. Every response sets one explicitly.
const (
	cacheNoStore  = "no-store"
	cacheNoCache  = "no-cache"
	cacheTrending = "public, max-age=15"
	cacheFeed     = "private, max-age=5"
)

func newMeta(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}

// respondJSON writes the envelope with an explicit Cache-Control.
func respondJSON(w http.ResponseWriter, status int, cacheControl string, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.Header().Set("Cache-Control", cacheNoStore)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write JSON response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, status int, cacheControl string, data any) {
	respondJSON(w, status, cacheControl, &models.APIResponse{Success: true, Data: data, Meta: newMeta(r)})
}

// respondError renders err through classify. Errors are never cacheable.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	m := classify(err)
	log := logging.Ctx(r.Context())
	if m.status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("code", m.code).Str("path", sanitizeLogValue(r.URL.Path)).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("code", m.code).Msg("request rejected")
	}
	respondJSON(w, m.status, cacheNoStore, &models.APIResponse{
		Success: false,
		Error:   &models.APIError{Code: m.code, Message: m.message, Details: m.details},
		Meta:    newMeta(r),
	})
}

// respondCode writes an error envelope for conditions with no Go error.
func respondCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, cacheNoStore, &models.APIResponse{
		Success: false,
		Error:   &models.APIError{Code: code, Message: message},
		Meta:    newMeta(r),
	})
}

// generateETag returns a strong ETag over data using FNV-1a.
func generateETag(data []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(data)
	return `"` + strconv.FormatUint(h.Sum64(), 16) + `"`
}

// etagMatches implements the If-None-Match comparison.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// sanitizeLogValue strips control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
