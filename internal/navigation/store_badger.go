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

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	badgerKeyPrefix     = "navstate:"
	badgerMergeAttempts = 16
)

// BadgerStore persists state in an embedded BadgerDB. Entries carry the idle
// TTL, so badger's own compaction removes abandoned users.
type BadgerStore struct {
	db      *badger.DB
	ttl     time.Duration
	seenCap int
	owned   bool
}

// OpenBadgerStore opens (or creates) a database at path.
func OpenBadgerStore(path string, ttl time.Duration, seenCap int) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, ttl: ttl, seenCap: seenCap, owned: true}, nil
}

// NewBadgerStore wraps an existing database. Close leaves it open.
func NewBadgerStore(db *badger.DB, ttl time.Duration, seenCap int) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl, seenCap: seenCap}
}

// Load implements StateStore.
func (s *BadgerStore) Load(_ context.Context, userID string) (Record, bool, error) {
	var (
		rec   Record
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, found, err = readRecord(txn, badgerKey(userID))
		return err
	})
	if err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

// Merge implements StateStore. The read-modify-write runs in one
// transaction and is retried when badger reports a conflict.
func (s *BadgerStore) Merge(ctx context.Context, userID string, patch Patch) (Record, error) {
	key := badgerKey(userID)
	var merged Record
	for attempt := 0; attempt < badgerMergeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Record{}, err
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			current, _, err := readRecord(txn, key)
			if err != nil {
				return err
			}
			merged = Merge(current, patch, s.seenCap)
			data, err := json.Marshal(merged)
			if err != nil {
				return fmt.Errorf("marshal state: %w", err)
			}
			return txn.SetEntry(badger.NewEntry(key, data).WithTTL(s.ttl))
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return Record{}, err
		}
		return merged, nil
	}
	return Record{}, fmt.Errorf("merge state for %s: %w", userID, badger.ErrConflict)
}

// Close closes the database when the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func readRecord(txn *badger.Txn, key []byte) (Record, bool, error) {
	var rec Record
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get state: %w", err)
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return Record{}, false, fmt.Errorf("decode state: %w", err)
	}
	return rec, true, nil
}

func badgerKey(userID string) []byte {
	return []byte(badgerKeyPrefix + userID)
}
