// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package api serves the Civitas HTTP surface under /api/v1 on a chi router.

Routes:

	GET    /trending-topics            trending list, ?region= selects the region
	POST   /topics/{id}/enter          enter TOPIC mode, returns the cursor
	POST   /topics/exit                return to DEFAULT mode
	GET    /topics/stream              websocket push of the trending list
	GET    /feed/page                  one feed page for the caller
	GET    /feed/state                 the caller's navigation state
	POST   /content                    submit          (content:write)
	PATCH  /content/{id}               edit by author  (content:write)
	DELETE /content/{id}               tombstone       (content:write)
	POST   /content/{id}/engagement    like/reply/share (content:engage)
	POST   /discovery/run              on-demand run   (discovery:run)
	GET    /health/live, /health/ready
	GET    /metrics                    (outside /api/v1)

Every JSON response uses the models.APIResponse envelope and sets an
explicit Cache-Control. Errors are mapped to codes with errors.Is in
errors.go; anything unrecognised is reported as a retryable 503.

Trending lists are rendered once per region and publish, held for
server.trending_cache_ttl, and revalidated with an ETag computed over the
data alone so it is stable across requests.
*/
package api
