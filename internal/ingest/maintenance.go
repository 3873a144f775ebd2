// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ingest

import (
	"context"
	"fmt"

	"github.com/tomtom215/civitas/internal/events"
)

// Backfill re-queues up to limit live items that still lack a vector for
// their current text and returns how many were queued.
func (s *Service) Backfill(ctx context.Context, limit int) (int, error) {
	items, err := s.store.MissingEmbeddings(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unembedded content: %w", err)
	}
	queued := 0
	for _, item := range items {
		ev := events.ContentSubmitted{ContentID: item.ID, TextVersion: item.TextVersion, AuthorID: item.AuthorID, At: s.now()}
		if err := s.bus.Publish(ctx, events.TopicContentSubmitted, ev); err != nil {
			return queued, fmt.Errorf("queue %s: %w", item.ID, err)
		}
		queued++
	}
	return queued, nil
}

// Purge hard-deletes up to limit tombstoned items that no live topic still
// references, and returns how many went.
func (s *Service) Purge(ctx context.Context, limit int, referenced func(contentID string) bool) (int, error) {
	ids, err := s.store.ListTombstoned(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list tombstoned content: %w", err)
	}
	free := ids[:0]
	for _, id := range ids {
		if referenced != nil && referenced(id) {
			continue
		}
		free = append(free, id)
	}
	if len(free) == 0 {
		return 0, nil
	}
	n, err := s.store.Purge(ctx, free)
	if err != nil {
		return 0, fmt.Errorf("purge content: %w", err)
	}
	return n, nil
}
