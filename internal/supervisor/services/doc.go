// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

// Package services adapts Civitas components to suture.Service.
//
// PeriodicService is the shared ticker loop behind discovery-service,
// embed-backfill and tombstone-purge. HTTPServerService, WebSocketHubService
// and EventBusService wrap the blocking runners of the API server, the push
// hub and the watermill router.
package services
