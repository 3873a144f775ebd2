// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/civitas/internal/config"
	"github.com/tomtom215/civitas/internal/metrics"
	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/ranking"
)

// TopicSource resolves live topics. Expired or evicted topics are absent.
type TopicSource interface {
	Lookup(topicID string) (*models.Topic, bool)
}

// Ranker draws DEFAULT-mode pages.
type Ranker interface {
	Rank(ctx context.Context, req ranking.Request) (*ranking.Result, error)
}

// ContentReader hydrates topic members.
type ContentReader interface {
	GetMany(ctx context.Context, ids []string) (map[string]*models.ContentItem, error)
}

// PageRequest parameterizes GetPage.
type PageRequest struct {
	// PageSize 0 selects the configured default; larger values are clamped
	// to the maximum.
	PageSize int
	// Weights overrides the ranking weights for this page only.
	Weights *models.ScoreWeights
	// Seed makes a DEFAULT page reproducible when non-zero.
	Seed int64
	// Cursor, when set, resumes a TOPIC page from a previously returned
	// position instead of the stored one.
	Cursor string
}

// Page is one page of a user's feed.
type Page struct {
	Mode    models.FeedMode       `json:"mode"`
	TopicID string                `json:"topic_id,omitempty"`
	Items   []*models.ContentItem `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
	// Exhausted is set on the empty page requested past a topic's end.
	Exhausted    bool   `json:"exhausted,omitempty"`
	TopicEnded   bool   `json:"topic_ended"`
	EndedTopicID string `json:"ended_topic_id,omitempty"`
	Degraded     bool   `json:"degraded"`
}

// Machine runs the DEFAULT/TOPIC state machine. It is safe for concurrent
// use; concurrent writes for one user merge last-write-wins per field.
type Machine struct {
	cfg     config.NavigationConfig
	topics  TopicSource
	ranker  Ranker
	content ContentReader
	store   StateStore
	logger  zerolog.Logger
	now     func() time.Time
}

// Option customizes a Machine.
type Option func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// NewMachine validates cfg and wires the machine's collaborators.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMachine(cfg config.NavigationConfig, topics TopicSource, ranker Ranker, content ContentReader, st StateStore, logger zerolog.Logger, opts ...Option) (*Machine, error) {
	if cfg.DefaultPageSize <= 0 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, fmt.Errorf("%w: navigation page sizes must satisfy 0 < default <= max", models.ErrConfiguration)
	}
	m := &Machine{
		cfg:     cfg,
		topics:  topics,
		ranker:  ranker,
		content: content,
		store:   st,
		logger:  logger.With().Str("component", "navigation").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Enter moves userID into TOPIC(topicID) and returns the cursor. Entering
// the active topic again returns the current cursor without a reset.
// Unknown or expired topics return models.ErrInvalidState.
func (m *Machine) Enter(ctx context.Context, userID, topicID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id required", models.ErrInvalidState)
	}
	if _, ok := m.topics.Lookup(topicID); !ok {
		return "", fmt.Errorf("%w: topic %q does not exist or has expired", models.ErrInvalidState, topicID)
	}

	rec, _, err := m.store.Load(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load navigation state: %w", err)
	}
	if rec.Mode() == models.ModeTopic && rec.Position.ActiveTopicID == topicID {
		metrics.NavigationTransitions.WithLabelValues("reenter").Inc()
		return EncodeCursor(topicID, rec.Offset(topicID)), nil
	}

	now := m.now()
	_, err = m.store.Merge(ctx, userID, Patch{
		Position: &Position{Mode: models.ModeTopic, ActiveTopicID: topicID, UpdatedAt: now},
		Cursor:   &CursorState{TopicID: topicID, Offset: 0, UpdatedAt: now},
		Session:  &Session{Epoch: rec.Session.Epoch + 1, UpdatedAt: now},
	})
	if err != nil {
		return "", fmt.Errorf("save navigation state: %w", err)
	}
	metrics.NavigationTransitions.WithLabelValues("enter").Inc()
	m.logger.Debug().Str("user_id", userID).Str("topic_id", topicID).Msg("entered topic")
	return EncodeCursor(topicID, 0), nil
}

// Exit returns userID to DEFAULT and discards cursor and seen history.
func (m *Machine) Exit(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id required", models.ErrInvalidState)
	}
	rec, _, err := m.store.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("load navigation state: %w", err)
	}
	if _, err := m.store.Merge(ctx, userID, m.exitPatch(rec)); err != nil {
		return fmt.Errorf("save navigation state: %w", err)
	}
	metrics.NavigationTransitions.WithLabelValues("exit").Inc()
	return nil
}

//nolint:gocritic // hugeParam: records are small value types
func (m *Machine) exitPatch(rec Record) Patch {
	now := m.now()
	return Patch{
		Position: &Position{Mode: models.ModeDefault, UpdatedAt: now},
		Cursor:   &CursorState{UpdatedAt: now},
		Session:  &Session{Epoch: rec.Session.Epoch + 1, UpdatedAt: now},
	}
}

// GetPage serves the next page for userID. A TOPIC whose topic has expired
// or been evicted falls back to DEFAULT with TopicEnded set; that is never
// an error. Malformed weights return models.ErrConfiguration before any
// state is read.
func (m *Machine) GetPage(ctx context.Context, userID string, req PageRequest) (*Page, error) {
	if req.Weights != nil {
		if err := req.Weights.Validate(); err != nil {
			return nil, err
		}
	}
	size, err := m.pageSize(req.PageSize)
	if err != nil {
		return nil, err
	}

	rec, _, err := m.store.Load(ctx, userID)
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("navigation state unavailable, serving default feed")
		page := m.defaultPage(ctx, userID, Record{}, req, size, false)
		page.Degraded = true
		return page, nil
	}

	if rec.Mode() != models.ModeTopic {
		return m.defaultPage(ctx, userID, rec, req, size, true), nil
	}

	topicID := rec.Position.ActiveTopicID
	topic, ok := m.topics.Lookup(topicID)
	if !ok {
		return m.autoExit(ctx, userID, rec, req, size), nil
	}

	stored := rec.Offset(topicID)
	offset := stored
	if req.Cursor != "" {
		cursorTopic, cursorOffset, err := DecodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		if cursorTopic != topicID {
			return nil, fmt.Errorf("%w: cursor belongs to topic %q, active topic is %q", models.ErrInvalidState, cursorTopic, topicID)
		}
		offset = cursorOffset
	}
	return m.topicPage(ctx, userID, topic, offset, stored, size), nil
}

//nolint:gocritic // hugeParam: records are small value types
func (m *Machine) autoExit(ctx context.Context, userID string, rec Record, req PageRequest, size int) *Page {
	ended := rec.Position.ActiveTopicID
	next, err := m.store.Merge(ctx, userID, m.exitPatch(rec))
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to persist topic auto-exit")
		next = Record{Session: Session{Epoch: rec.Session.Epoch + 1}}
	}
	metrics.NavigationTransitions.WithLabelValues("auto_exit").Inc()
	m.logger.Info().Str("user_id", userID).Str("topic_id", ended).Msg("topic ended, returned user to default feed")

	page := m.defaultPage(ctx, userID, next, req, size, err == nil)
	page.TopicEnded = true
	page.EndedTopicID = ended
	if err != nil {
		page.Degraded = true
	}
	metrics.RecordFeedPage(string(models.ModeDefault), "topic_ended")
	return page
}

// topicPage serves members[offset:offset+size]. A replayed cursor behind
// the stored offset is served but never persisted.
func (m *Machine) topicPage(ctx context.Context, userID string, topic *models.Topic, offset, stored, size int) *Page {
	members := topic.MemberIDs
	if offset > len(members) {
		offset = len(members)
	}
	end := offset + size
	if end > len(members) {
		end = len(members)
	}

	page := &Page{
		Mode:      models.ModeTopic,
		TopicID:   topic.ID,
		Items:     []*models.ContentItem{},
		Cursor:    EncodeCursor(topic.ID, offset),
		HasMore:   offset < len(members),
		Exhausted: offset >= len(members),
	}
	if end == offset {
		metrics.RecordFeedPage(string(models.ModeTopic), "ok")
		return page
	}

	ids := members[offset:end]
	found, err := m.content.GetMany(ctx, ids)
	if err != nil {
		m.logger.Warn().Err(err).Str("topic_id", topic.ID).Msg("failed to hydrate topic members")
		page.Degraded = true
		metrics.RecordFeedPage(string(models.ModeTopic), "degraded")
		return page
	}
	for _, id := range ids {
		item, ok := found[id]
		if !ok || item.Tombstoned() {
			continue
		}
		page.Items = append(page.Items, item)
	}

	if end > stored {
		now := m.now()
		if _, err := m.store.Merge(ctx, userID, Patch{
			Cursor: &CursorState{TopicID: topic.ID, Offset: end, UpdatedAt: now},
		}); err != nil {
			m.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to advance topic cursor")
			page.Degraded = true
		}
	}
	page.Cursor = EncodeCursor(topic.ID, end)
	page.HasMore = end < len(members)

	result := "ok"
	if page.Degraded {
		result = "degraded"
	}
	metrics.RecordFeedPage(string(models.ModeTopic), result)
	return page
}

// defaultPage ranks a page. Ranking failures other than configuration
// errors yield an empty degraded page; configuration errors were already
// ruled out by GetPage.
//
//nolint:gocritic // hugeParam: records are small value types
func (m *Machine) defaultPage(ctx context.Context, userID string, rec Record, req PageRequest, size int, persist bool) *Page {
	page := &Page{Mode: models.ModeDefault, Items: []*models.ContentItem{}}

	res, err := m.ranker.Rank(ctx, ranking.Request{
		UserID:   userID,
		Weights:  req.Weights,
		PageSize: size,
		Seen:     rec.SeenSet(),
		Seed:     req.Seed,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("ranking failed, serving empty page")
		page.Degraded = true
		metrics.RecordFeedPage(string(models.ModeDefault), "degraded")
		return page
	}

	served := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		page.Items = append(page.Items, it.Item)
		served = append(served, it.Item.ID)
	}
	page.HasMore = res.PoolSize > len(res.Items)
	page.Degraded = res.Degraded

	if persist && userID != "" {
		now := m.now()
		_, err := m.store.Merge(ctx, userID, Patch{
			Session:      &Session{Epoch: rec.Session.Epoch, Seen: served, UpdatedAt: now},
			LastRankedAt: now,
		})
		if err != nil {
			m.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to record served items")
			page.Degraded = true
		}
	}

	result := "ok"
	if page.Degraded {
		result = "degraded"
	}
	metrics.RecordFeedPage(string(models.ModeDefault), result)
	return page
}

// State returns the resolved state for userID. A TOPIC whose topic is gone
// reports DEFAULT; the transition itself happens on the next GetPage.
func (m *Machine) State(ctx context.Context, userID string) (models.UserFeedState, error) {
	rec, _, err := m.store.Load(ctx, userID)
	if err != nil {
		return models.UserFeedState{}, fmt.Errorf("load navigation state: %w", err)
	}
	state := models.UserFeedState{UserID: userID, Mode: models.ModeDefault, LastRankedAt: rec.LastRankedAt}
	if rec.Mode() != models.ModeTopic {
		return state, nil
	}
	topicID := rec.Position.ActiveTopicID
	if _, ok := m.topics.Lookup(topicID); !ok {
		return state, nil
	}
	state.Mode = models.ModeTopic
	state.ActiveTopicID = topicID
	state.Cursor = EncodeCursor(topicID, rec.Offset(topicID))
	return state, nil
}

func (m *Machine) pageSize(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: page size must be positive, got %d", models.ErrConfiguration, requested)
	case requested == 0:
		return m.cfg.DefaultPageSize, nil
	case requested > m.cfg.MaxPageSize:
		return m.cfg.MaxPageSize, nil
	}
	return requested, nil
}

// IsClientError reports whether err came from the caller's input rather than
// a backend.
func IsClientError(err error) bool {
	return errors.Is(err, models.ErrInvalidState) ||
		errors.Is(err, models.ErrConfiguration) ||
		errors.Is(err, ErrInvalidCursor)
}
