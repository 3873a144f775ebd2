// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/civitas/internal/auth"
	"github.com/tomtom215/civitas/internal/authz"
	"github.com/tomtom215/civitas/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	authn         *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter wires a router. A nil chiMw selects the default CORS and rate
// limit settings.
func NewRouter(handler *Handler, authn *auth.Middleware, az *authz.Middleware, chiMw *ChiMiddleware) *Router {
	if chiMw == nil {
		chiMw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, authn: authn, authz: az, chiMiddleware: chiMw}
}

// Deny renders authentication and authorization failures as error
// envelopes. Pass it to auth.NewMiddleware and authz.NewMiddleware.
func Deny(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err)
}

// SetupChi builds the chi handler tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondCode(w, r, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondCode(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	h := router.handler
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())

		r.Get("/health/live", h.HealthLive)
		r.Get("/health/ready", h.HealthReady)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.authn.Authenticate)

			r.Get("/trending-topics", h.TrendingTopics)
			r.Get("/topics/stream", h.TopicStream)
			r.Post("/topics/{id}/enter", h.EnterTopic)
			r.Post("/topics/exit", h.ExitTopic)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Compression)
				r.Get("/feed/page", h.FeedPage)
				r.Get("/feed/state", h.FeedState)
			})

			r.With(router.authz.Require(authz.PermContentWrite)).Post("/content", h.SubmitContent)
			r.With(router.authz.Require(authz.PermContentWrite)).Patch("/content/{id}", h.EditContent)
			r.With(router.authz.Require(authz.PermContentWrite)).Delete("/content/{id}", h.DeleteContent)
			r.With(router.authz.Require(authz.PermContentEngage)).Post("/content/{id}/engagement", h.EngageContent)
			r.With(router.authz.Require(authz.PermDiscoveryRun)).Post("/discovery/run", h.RunDiscovery)
		})
	})

	return r
}
