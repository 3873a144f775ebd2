// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

/*
Package supervisor runs the long-lived Civitas services under a suture v4
tree.

	civitas
	├── data-layer
	│   ├── embed-backfill      re-queues items still missing a vector
	│   └── tombstone-purge     hard-deletes unreferenced tombstones
	├── messaging-layer
	│   ├── event-bus           watermill router (gochannel or NATS)
	│   ├── websocket-hub       trending push
	│   └── discovery-service   clustering cadence
	└── api-layer
	    └── http-server

Crashed services restart with suture's backoff. Supervisor events are
logged through sutureslog on the zerolog-backed slog handler from
internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
		supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return err
	}
	tree.AddMessagingService(services.NewEventBusService(bus))
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
	errCh := tree.ServeBackground(ctx)

The service implementations live in the services subpackage.
*/
package supervisor
