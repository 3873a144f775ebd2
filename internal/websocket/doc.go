// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package websocket pushes trending topics to connected clients.

The Hub subscribes to the discovery engine as an Observer. Every publish
(or eviction) schedules one push; each client receives the list for the
region it connected with, so regional topics interleave the same way they
do on GET /trending-topics. New clients receive the current list on
connect.

Wire format:

	{"type": "trending_topics", "data": {"region": "us-west", "topics": [...], "published_at": "..."}}

Clients may send {"type": "ping"} and receive {"type": "pong"}. Slow
clients whose buffer fills are disconnected.
*/
package websocket
