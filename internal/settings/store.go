// SPDX-License-Identifier: MIT

// Package settings persists per-chat preferences across restarts.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// ChatSettings is the persisted record for one chat.
type ChatSettings struct {
	SnapshotInterval int `json:"snapshot_interval"`
}

// Store is a badger-backed key-value store, one record per chat id.
// Records are created lazily on first write; a missing record reads as the
// zero value with ok=false so callers can distinguish "never configured"
// from "configured to 0".
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store under dir. The caller owns the returned
// store exclusively and must Close it at shutdown.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func chatKey(chatID int64) []byte {
	return []byte("chat:" + strconv.FormatInt(chatID, 10))
}

// Get returns the settings for a chat. ok is false when the chat has never
// been written.
func (s *Store) Get(chatID int64) (ChatSettings, bool, error) {
	var out ChatSettings
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(chatID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ChatSettings{}, false, nil
		}
		return ChatSettings{}, false, fmt.Errorf("settings get chat %d: %w", chatID, err)
	}
	return out, true, nil
}

// SetSnapshotInterval stores the snapshot interval for a chat, creating the
// record on first use.
func (s *Store) SetSnapshotInterval(chatID int64, secs int) error {
	if secs < 0 {
		return fmt.Errorf("snapshot interval must be >= 0, got %d", secs)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		rec := ChatSettings{}
		item, err := txn.Get(chatKey(chatID))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		rec.SnapshotInterval = secs
		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(chatKey(chatID), buf)
	})
	if err != nil {
		return fmt.Errorf("settings set chat %d: %w", chatID, err)
	}
	return nil
}

// SnapshotInterval returns the stored interval for a chat. ok reports
// whether the chat has ever been configured.
func (s *Store) SnapshotInterval(chatID int64) (secs int, ok bool, err error) {
	rec, ok, err := s.Get(chatID)
	if err != nil || !ok {
		return 0, ok, err
	}
	return rec.SnapshotInterval, true, nil
}
