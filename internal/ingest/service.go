// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/embedding"
	"github.com/tomtom215/civitas/internal/events"
	"github.com/tomtom215/civitas/internal/models"
)

// ErrInvalidContent is returned for submissions that fail basic checks.
var ErrInvalidContent = errors.New("invalid content")

// DefaultMaxTextRunes caps submitted text when Options leaves it unset.
const DefaultMaxTextRunes = 10000

// Store is the slice of store.ContentStore ingest writes through.
type Store interface {
	Insert(ctx context.Context, item *models.ContentItem) error
	Get(ctx context.Context, id string) (*models.ContentItem, error)
	UpdateText(ctx context.Context, id, text string) (*models.ContentItem, error)
	SetEmbedding(ctx context.Context, id string, emb models.Embedding) error
	AddEngagement(ctx context.Context, id string, kind models.EngagementKind) error
	RecordLike(ctx context.Context, userID, contentID string, at time.Time) error
	Tombstone(ctx context.Context, id string, at time.Time) error
	MissingEmbeddings(ctx context.Context, limit int) ([]*models.ContentItem, error)
	ListTombstoned(ctx context.Context, limit int) ([]string, error)
	Purge(ctx context.Context, ids []string) (int, error)
}

// Embedder resolves text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Result, error)
}

// Publisher publishes bus events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Options tunes a Service.
type Options struct {
	// MaxTextRunes rejects longer submissions. 0 selects DefaultMaxTextRunes.
	MaxTextRunes int
	Now          func() time.Time
}

// Submission is a new content item.
type Submission struct {
	AuthorID    string
	Text        string
	Region      string
	IsPolitical bool
}

// Service accepts content writes. Persistence never waits on embedding:
// vectors are computed by the worker after a content.submitted event.
type Service struct {
	store    Store
	embedder Embedder
	bus      Publisher
	logger   zerolog.Logger
	maxRunes int
	now      func() time.Time
}

// NewService wires a Service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(st Store, embedder Embedder, bus Publisher, logger zerolog.Logger, opts Options) *Service {
	if opts.MaxTextRunes <= 0 {
		opts.MaxTextRunes = DefaultMaxTextRunes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    st,
		embedder: embedder,
		bus:      bus,
		logger:   logger.With().Str("component", "ingest").Logger(),
		maxRunes: opts.MaxTextRunes,
		now:      opts.Now,
	}
}

// Submit persists a new item and queues it for embedding. A failure to
// queue is logged; the backfill job picks the item up later.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.ContentItem, error) {
	if sub.AuthorID == "" {
		return nil, fmt.Errorf("%w: author required", ErrInvalidContent)
	}
	if err := s.checkText(sub.Text); err != nil {
		return nil, err
	}

	item := &models.ContentItem{
		ID:          uuid.NewString(),
		AuthorID:    sub.AuthorID,
		CreatedAt:   s.now(),
		Text:        sub.Text,
		TextVersion: 1,
		IsPolitical: sub.IsPolitical,
	}
	if sub.Region != "" {
		item.Geo = &models.GeoTag{Region: sub.Region}
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return nil, fmt.Errorf("insert content: %w", err)
	}
	s.enqueue(ctx, item)
	return item, nil
}

// Edit replaces the text of an author's own item. The previous embedding
// stops counting immediately because its TextVersion no longer matches.
func (s *Service) Edit(ctx context.Context, userID, id, text string) (*models.ContentItem, error) {
	if err := s.checkText(text); err != nil {
		return nil, err
	}
	item, err := s.live(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.AuthorID != userID {
		return nil, fmt.Errorf("%w: only the author may edit %s", models.ErrForbidden, id)
	}
	updated, err := s.store.UpdateText(ctx, id, text)
	if err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}
	s.enqueue(ctx, updated)
	return updated, nil
}

// Engage bumps one engagement counter. Likes also feed the user's interest
// vector.
func (s *Service) Engage(ctx context.Context, userID, id string, kind models.EngagementKind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown engagement kind %q", ErrInvalidContent, kind)
	}
	if _, err := s.live(ctx, id); err != nil {
		return err
	}
	if err := s.store.AddEngagement(ctx, id, kind); err != nil {
		return fmt.Errorf("add engagement: %w", err)
	}
	if kind == models.EngagementLike && userID != "" {
		if err := s.store.RecordLike(ctx, userID, id, s.now()); err != nil {
			s.logger.Warn().Err(err).Str("content_id", id).Msg("failed to record like for interest vector")
		}
	}
	return nil
}

// Tombstone soft-deletes an item. Authors may delete their own content;
// moderators may delete anything.
func (s *Service) Tombstone(ctx context.Context, userID, id string, moderator bool) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.AuthorID != userID && !moderator {
		return fmt.Errorf("%w: only the author or a moderator may delete %s", models.ErrForbidden, id)
	}
	now := s.now()
	if err := s.store.Tombstone(ctx, id, now); err != nil {
		return fmt.Errorf("tombstone content: %w", err)
	}
	if err := s.bus.Publish(ctx, events.TopicContentTombstoned, events.ContentTombstoned{ContentIDs: []string{id}, At: now}); err != nil {
		s.logger.Warn().Err(err).Str("content_id", id).Msg("failed to announce tombstone; topics keep the member until expiry")
	}
	return nil
}

func (s *Service) live(ctx context.Context, id string) (*models.ContentItem, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Tombstoned() {
		return nil, fmt.Errorf("%w: content %s was deleted", models.ErrNotFound, id)
	}
	return item, nil
}

func (s *Service) checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text required", ErrInvalidContent)
	}
	if n := utf8.RuneCountInString(text); n > s.maxRunes {
		return fmt.Errorf("%w: text is %d characters, limit %d", ErrInvalidContent, n, s.maxRunes)
	}
	return nil
}

func (s *Service) enqueue(ctx context.Context, item *models.ContentItem) {
	ev := events.ContentSubmitted{
		ContentID:   item.ID,
		TextVersion: item.TextVersion,
		AuthorID:    item.AuthorID,
		At:          s.now(),
	}
	if err := s.bus.Publish(ctx, events.TopicContentSubmitted, ev); err != nil {
		s.logger.Warn().Err(err).Str("content_id", item.ID).Msg("failed to queue embedding; backfill will retry")
	}
}
