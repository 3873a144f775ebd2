// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/civitas/internal/events"
	"github.com/tomtom215/civitas/internal/logging"
	"github.com/tomtom215/civitas/internal/models"
)

// Forgetter drops tombstoned content from cached topics.
type Forgetter interface {
	Forget(contentIDs []string)
}

// Register attaches the embedding worker and the topic eviction listener to
// bus. forget may be nil in worker-only processes.
func (s *Service) Register(bus *events.Bus, forget Forgetter) {
	bus.AddWorker("embedding-worker", events.TopicContentSubmitted, s.HandleSubmitted)
	if forget != nil {
		bus.AddListener("topic-eviction", events.TopicContentTombstoned, ForgetHandler(forget))
	}
}

// HandleSubmitted embeds the item named by a content.submitted message.
func (s *Service) HandleSubmitted(ctx context.Context, msg *message.Message) error {
	var ev events.ContentSubmitted
	if err := events.Decode(msg, &ev); err != nil {
		return err
	}
	return s.EmbedContent(ctx, ev)
}

// EmbedContent computes and stores the vector for one text version. Events
// for deleted items or superseded versions are dropped. When every tier is
// down the item stays without a vector and backfill tries again later, so
// that is not an error either. Other failures return an error so the bus
// retries.
func (s *Service) EmbedContent(ctx context.Context, ev events.ContentSubmitted) error {
	log := logging.Ctx(ctx).With().Str("content_id", ev.ContentID).Int("text_version", ev.TextVersion).Logger()

	item, err := s.store.Get(ctx, ev.ContentID)
	if errors.Is(err, models.ErrNotFound) {
		log.Debug().Msg("content gone before embedding")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load content %s: %w", ev.ContentID, err)
	}
	if item.TextVersion != ev.TextVersion || !item.Embeddable() {
		log.Debug().Msg("embedding no longer needed for this version")
		return nil
	}

	res, err := s.embedder.Embed(ctx, item.Text)
	if errors.Is(err, models.ErrEmbeddingUnavailable) {
		log.Warn().Err(err).Msg("all embedding tiers unavailable, item stays unembedded")
		return nil
	}
	if err != nil {
		return fmt.Errorf("embed %s: %w", ev.ContentID, err)
	}

	emb := models.Embedding{
		Vector:      res.Vector,
		Tier:        res.Tier,
		Degraded:    res.Degraded,
		TextVersion: ev.TextVersion,
		ComputedAt:  s.now(),
	}
	switch err := s.store.SetEmbedding(ctx, ev.ContentID, emb); {
	case errors.Is(err, models.ErrStaleVersion):
		log.Debug().Msg("text edited during embedding, discarded stale vector")
		return nil
	case errors.Is(err, models.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("store embedding %s: %w", ev.ContentID, err)
	}
	log.Debug().Str("tier", string(res.Tier)).Bool("degraded", res.Degraded).Msg("content embedded")
	return nil
}

// ForgetHandler evicts tombstoned content from cached topics.
func ForgetHandler(f Forgetter) events.Handler {
	return func(_ context.Context, msg *message.Message) error {
		var ev events.ContentTombstoned
		if err := events.Decode(msg, &ev); err != nil {
			return err
		}
		f.Forget(ev.ContentIDs)
		return nil
	}
}
