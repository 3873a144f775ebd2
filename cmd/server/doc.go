// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package main is the entry point for the Civitas server.

Civitas clusters recent community posts into trending topics, lets users
enter a topic feed and leave it again, and ranks everything else into a
personalized default feed.

# Application Architecture

Long-running work runs under a Suture v4 supervisor tree:

	RootSupervisor ("civitas")
	├── DataSupervisor ("data-layer")
	│   ├── embed-backfill (re-queues items without a vector)
	│   └── tombstone-purge (hard-deletes unreferenced tombstones)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── event-bus (watermill router: embedding worker, topic eviction)
	│   ├── websocket-hub (trending pushes)
	│   └── discovery-service (clustering on a fixed cadence)
	└── APISupervisor ("api-layer")
	    └── http-server (chi REST API)

Component initialization order:

 1. Configuration: koanf v2 (defaults, optional config file, CIVITAS_ env)
 2. Content store: memory, sqlite or duckdb
 3. Embedding resolver: remote, local and hash tiers
 4. Event bus: watermill over gochannel or NATS
 5. Discovery engine, ranking engine, navigation state store and machine
 6. Ingest service and its bus handlers
 7. WebSocket hub, authentication, casbin authorization
 8. HTTP router and server

# Signal Handling

SIGINT and SIGTERM cancel the root context. The tree stops each layer,
the HTTP server drains within supervisor.shutdown_timeout, and the
component graph is then closed in reverse order.
*/
package main
