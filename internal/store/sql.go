// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/models"
)

// SQL implements Store over database/sql. Queries are built with squirrel
// using ? placeholders, which both SQLite and DuckDB accept.
type SQL struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQL)(nil)

var contentColumns = []string{
	"id", "author_id", "created_at", "text", "text_version", "embedding", "embedding_version",
	"likes", "replies", "shares", "region", "is_political", "deleted_at",
}

// NewSQL wraps an open handle and applies the schema.
func NewSQL(ctx context.Context, db *sql.DB, driver string) (*SQL, error) {
	s := &SQL{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	return s, nil
}

func (s *SQL) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Driver names the database backend.
func (s *SQL) Driver() string { return s.driver }

// Close closes the database connection.
func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQL) Insert(ctx context.Context, item *models.ContentItem) error {
	var deletedAt any
	if item.DeletedAt != nil {
		deletedAt = item.DeletedAt.UnixMicro()
	}
	_, err := sq.Insert("content").
		Columns("id", "author_id", "created_at", "text", "text_version", "likes", "replies", "shares", "region", "is_political", "deleted_at").
		Values(item.ID, item.AuthorID, item.CreatedAt.UnixMicro(), item.Text, item.TextVersion,
			item.Engagement.Likes, item.Engagement.Replies, item.Engagement.Shares,
			item.Region(), item.IsPolitical, deletedAt).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert content %s: %w", item.ID, err)
	}
	if item.Embedding != nil {
		return s.SetEmbedding(ctx, item.ID, *item.Embedding)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	items, err := s.queryItems(ctx, sq.Select(contentColumns...).From("content").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	return items[0], nil
}

func (s *SQL) GetMany(ctx context.Context, ids []string) (map[string]*models.ContentItem, error) {
	out := make(map[string]*models.ContentItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.queryItems(ctx, sq.Select(contentColumns...).From("content").Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (s *SQL) UpdateText(ctx context.Context, id, text string) (*models.ContentItem, error) {
	res, err := sq.Update("content").
		Set("text", text).
		Set("text_version", sq.Expr("text_version + 1")).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("update content %s: %w", id, err)
	}
	if err := requireRow(res, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *SQL) SetEmbedding(ctx context.Context, id string, emb models.Embedding) error {
	payload, err := json.Marshal(emb)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	res, err := sq.Update("content").
		Set("embedding", string(payload)).
		Set("embedding_version", emb.TextVersion).
		Where(sq.Eq{"id": id, "text_version": emb.TextVersion, "deleted_at": nil}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("set embedding %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set embedding %s: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Tombstoned() {
		return fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	return fmt.Errorf("content %s at version %d, embedding for %d: %w", id, item.TextVersion, emb.TextVersion, models.ErrStaleVersion)
}

func (s *SQL) AddEngagement(ctx context.Context, id string, kind models.EngagementKind) error {
	var column string
	switch kind {
	case models.EngagementLike:
		column = "likes"
	case models.EngagementReply:
		column = "replies"
	case models.EngagementShare:
		column = "shares"
	default:
		return fmt.Errorf("unknown engagement kind %q", kind)
	}
	res, err := sq.Update("content").
		Set(column, sq.Expr(column+" + 1")).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("add engagement %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQL) Tombstone(ctx context.Context, id string, at time.Time) error {
	res, err := sq.Update("content").
		Set("deleted_at", sq.Expr("COALESCE(deleted_at, ?)", at.UnixMicro())).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("tombstone content %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQL) ListTombstoned(ctx context.Context, limit int) ([]string, error) {
	q := sq.Select("id").From("content").Where(sq.NotEq{"deleted_at": nil}).OrderBy("deleted_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tombstoned: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tombstoned: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQL) Purge(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := sq.Delete("content").
		Where(sq.And{sq.Eq{"id": ids}, sq.NotEq{"deleted_at": nil}}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge content: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge content: %w", err)
	}

	orphaned := sq.Select("1").From("content").Where("content.id = likes.content_id")
	orphanSQL, orphanArgs, err := orphaned.ToSql()
	if err != nil {
		return 0, err
	}
	if _, err := sq.Delete("likes").
		Where(sq.And{sq.Eq{"content_id": ids}, sq.Expr("NOT EXISTS ("+orphanSQL+")", orphanArgs...)}).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return 0, fmt.Errorf("purge likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge: %w", err)
	}
	return int(n), nil
}

func (s *SQL) live() sq.SelectBuilder {
	return sq.Select(contentColumns...).From("content").Where(sq.Eq{"deleted_at": nil})
}

func newestFirst(q sq.SelectBuilder, limit int) sq.SelectBuilder {
	q = q.OrderBy("created_at DESC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

func (s *SQL) RecentEmbedded(ctx context.Context, since time.Time, limit int) ([]*models.ContentItem, error) {
	q := s.live().
		Where(sq.GtOrEq{"created_at": since.UnixMicro()}).
		Where(sq.NotEq{"embedding": nil}).
		Where("embedding_version = text_version")
	return s.queryItems(ctx, newestFirst(q, limit))
}

func (s *SQL) Candidates(ctx context.Context, since time.Time, limit int) ([]*models.ContentItem, error) {
	q := s.live().Where(sq.GtOrEq{"created_at": since.UnixMicro()})
	return s.queryItems(ctx, newestFirst(q, limit))
}

func (s *SQL) MissingEmbeddings(ctx context.Context, limit int) ([]*models.ContentItem, error) {
	q := s.live().Where(sq.Or{
		sq.Eq{"embedding": nil},
		sq.Expr("embedding_version <> text_version"),
	})
	return s.queryItems(ctx, newestFirst(q, limit))
}

func (s *SQL) InterestVectors(ctx context.Context, userID string, limit int) ([][]float32, error) {
	type signal struct {
		at  int64
		id  string
		vec []float32
	}
	var signals []signal
	seen := make(Set)

	collect := func(q sq.SelectBuilder) error {
		rows, err := q.RunWith(s.db).QueryContext(ctx)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id, raw string
				at      int64
			)
			if err := rows.Scan(&id, &raw, &at); err != nil {
				return err
			}
			if seen.Has(id) {
				continue
			}
			var emb models.Embedding
			if err := json.Unmarshal([]byte(raw), &emb); err != nil {
				return fmt.Errorf("decode embedding %s: %w", id, err)
			}
			seen.Add(id)
			if emb.Degraded {
				continue
			}
			signals = append(signals, signal{at: at, id: id, vec: emb.Vector})
		}
		return rows.Err()
	}

	current := sq.And{
		sq.Eq{"c.deleted_at": nil},
		sq.NotEq{"c.embedding": nil},
		sq.Expr("c.embedding_version = c.text_version"),
	}
	liked := sq.Select("c.id", "c.embedding", "l.liked_at").
		From("likes l").
		Join("content c ON c.id = l.content_id").
		Where(sq.Eq{"l.user_id": userID}).
		Where(current).
		OrderBy("l.liked_at DESC", "c.id ASC")
	authored := sq.Select("c.id", "c.embedding", "c.created_at").
		From("content c").
		Where(sq.Eq{"c.author_id": userID}).
		Where(current).
		OrderBy("c.created_at DESC", "c.id ASC")
	if limit > 0 {
		liked = liked.Limit(uint64(limit))
		authored = authored.Limit(uint64(limit))
	}

	if err := collect(liked); err != nil {
		return nil, fmt.Errorf("interest likes for %s: %w", userID, err)
	}
	if err := collect(authored); err != nil {
		return nil, fmt.Errorf("interest posts for %s: %w", userID, err)
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].at != signals[j].at {
			return signals[i].at > signals[j].at
		}
		return signals[i].id < signals[j].id
	})
	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}
	out := make([][]float32, len(signals))
	for i, sig := range signals {
		out[i] = sig.vec
	}
	return out, nil
}

func (s *SQL) RecordLike(ctx context.Context, userID, contentID string, at time.Time) error {
	if _, err := s.Get(ctx, contentID); err != nil {
		return err
	}
	_, err := sq.Insert("likes").
		Columns("user_id", "content_id", "liked_at").
		Values(userID, contentID, at.UnixMicro()).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("record like: %w", err)
	}
	return nil
}

func (s *SQL) Follows(ctx context.Context, userID string) (out, in Set, err error) {
	out, err = s.querySet(ctx, sq.Select("followee_id").From("follows").Where(sq.Eq{"follower_id": userID}))
	if err != nil {
		return nil, nil, fmt.Errorf("follows of %s: %w", userID, err)
	}
	in, err = s.querySet(ctx, sq.Select("follower_id").From("follows").Where(sq.Eq{"followee_id": userID}))
	if err != nil {
		return nil, nil, fmt.Errorf("followers of %s: %w", userID, err)
	}
	return out, in, nil
}

func (s *SQL) Blocked(ctx context.Context, userID string) (Set, error) {
	out, err := s.querySet(ctx, sq.Select("blocked_id").From("blocks").Where(sq.Eq{"blocker_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("blocks by %s: %w", userID, err)
	}
	by, err := s.querySet(ctx, sq.Select("blocker_id").From("blocks").Where(sq.Eq{"blocked_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("blocks of %s: %w", userID, err)
	}
	for id := range by {
		out.Add(id)
	}
	return out, nil
}

func (s *SQL) Follow(ctx context.Context, followerID, followeeID string) error {
	return s.insertEdge(ctx, "follows", "follower_id", "followee_id", followerID, followeeID)
}

func (s *SQL) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := sq.Delete("follows").
		Where(sq.Eq{"follower_id": followerID, "followee_id": followeeID}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (s *SQL) Block(ctx context.Context, blockerID, blockedID string) error {
	return s.insertEdge(ctx, "blocks", "blocker_id", "blocked_id", blockerID, blockedID)
}

func (s *SQL) insertEdge(ctx context.Context, table, fromCol, toCol, from, to string) error {
	_, err := sq.Insert(table).
		Columns(fromCol, toCol).
		Values(from, to).
		Suffix("ON CONFLICT DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert %s edge: %w", table, err)
	}
	return nil
}

func (s *SQL) querySet(ctx context.Context, q sq.SelectBuilder) (Set, error) {
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(Set)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out.Add(id)
	}
	return out, rows.Err()
}

func (s *SQL) queryItems(ctx context.Context, q sq.SelectBuilder) ([]*models.ContentItem, error) {
	rows, err := q.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (*models.ContentItem, error) {
	var (
		item             models.ContentItem
		createdAt        int64
		embedding        sql.NullString
		embeddingVersion sql.NullInt64
		region           string
		deletedAt        sql.NullInt64
	)
	if err := rows.Scan(
		&item.ID, &item.AuthorID, &createdAt, &item.Text, &item.TextVersion, &embedding, &embeddingVersion,
		&item.Engagement.Likes, &item.Engagement.Replies, &item.Engagement.Shares,
		&region, &item.IsPolitical, &deletedAt,
	); err != nil {
		return nil, fmt.Errorf("scan content: %w", err)
	}
	item.CreatedAt = time.UnixMicro(createdAt).UTC()
	if embedding.Valid {
		var emb models.Embedding
		if err := json.Unmarshal([]byte(embedding.String), &emb); err != nil {
			return nil, fmt.Errorf("decode embedding %s: %w", item.ID, err)
		}
		item.Embedding = &emb
	}
	if region != "" {
		item.Geo = &models.GeoTag{Region: region}
	}
	if deletedAt.Valid {
		at := time.UnixMicro(deletedAt.Int64).UTC()
		item.DeletedAt = &at
	}
	return &item, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("content %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err is a missing-row error from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
