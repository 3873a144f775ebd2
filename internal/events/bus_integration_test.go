// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

//go:build integration

package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/testinfra"
)

// Two buses on one external server: the worker group shares submitted
// events, every bus hears tombstones.
func TestBusOverExternalNATS(t *testing.T) {
	nats := testinfra.StartNATS(t)

	cfg := testEventsConfig()
	cfg.Transport = TransportNATS
	cfg.NATSURL = nats.URL

	worked := make(chan string, 4)
	heard := make(chan string, 4)
	var buses []*Bus
	for range 2 {
		b, err := Open(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		b.AddWorker("embed", TopicContentSubmitted, func(_ context.Context, msg *message.Message) error {
			var ev ContentSubmitted
			if err := Decode(msg, &ev); err != nil {
				return err
			}
			worked <- ev.ContentID
			return nil
		})
		b.AddListener("evict", TopicContentTombstoned, func(_ context.Context, msg *message.Message) error {
			var ev ContentTombstoned
			if err := Decode(msg, &ev); err != nil {
				return err
			}
			heard <- ev.ContentIDs[0]
			return nil
		})
		runBus(t, b)
		buses = append(buses, b)
	}

	ctx := context.Background()
	if err := buses[0].Publish(ctx, TopicContentSubmitted, ContentSubmitted{ContentID: "c1", TextVersion: 1}); err != nil {
		t.Fatal(err)
	}
	if err := buses[0].Publish(ctx, TopicContentTombstoned, ContentTombstoned{ContentIDs: []string{"c2"}}); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(10 * time.Second)
	for heardCount, workedCount := 0, 0; heardCount < 2 || workedCount < 1; {
		select {
		case <-worked:
			workedCount++
		case <-heard:
			heardCount++
		case <-timeout:
			t.Fatalf("worked=%d heard=%d", workedCount, heardCount)
		}
	}

	select {
	case id := <-worked:
		t.Errorf("submitted event %s handled twice across the queue group", id)
	case <-time.After(500 * time.Millisecond):
	}
}
