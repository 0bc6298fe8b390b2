/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ratelimit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	badgerKeyPrefix  = "rl/"
	badgerMaxRetries = 10
)

// BadgerStore persists buckets in Badger so limits survive restarts and can
// be shared by processes on one host. Entries carry a TTL matching their
// window so abandoned buckets expire on their own.
type BadgerStore struct {
	db *badger.DB
	mu sync.Mutex // serializes hits from this process
}

// NewBadgerStore opens a store at path. An empty path opens an in-memory store.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Cannot acquire directory lock") ||
			strings.Contains(errMsg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("rate limit store at %s is locked by another process: %w", path, err)
		}
		return nil, fmt.Errorf("open rate limit store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func encodeBucket(b Bucket) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], uint64(b.Count))
	binary.BigEndian.PutUint64(buf[8:], uint64(b.ResetAt.UnixNano()))
	return buf
}

func decodeBucket(val []byte) (Bucket, error) {
	if len(val) != 16 {
		return Bucket{}, fmt.Errorf("bucket value has %d bytes, want 16", len(val))
	}
	return Bucket{
		Count:   int(binary.BigEndian.Uint64(val[:8])),
		ResetAt: time.Unix(0, int64(binary.BigEndian.Uint64(val[8:]))),
	}, nil
}

// Hit runs the increment-or-reset in a single transaction, retrying when a
// concurrent hit on the same key wins the commit.
func (s *BadgerStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Bucket, error) {
	k := []byte(badgerKeyPrefix + key)

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < badgerMaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Bucket{}, err
		}

		var result Bucket
		err := s.db.Update(func(txn *badger.Txn) error {
			bucket := Bucket{Count: 1, ResetAt: now.Add(window)}

			item, err := txn.Get(k)
			switch {
			case err == nil:
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				existing, err := decodeBucket(val)
				if err != nil {
					zap.L().Warn("Resetting corrupt rate limit bucket", zap.String("key", key), zap.Error(err))
				} else if now.Before(existing.ResetAt) {
					bucket = Bucket{Count: existing.Count + 1, ResetAt: existing.ResetAt}
				}
			case errors.Is(err, badger.ErrKeyNotFound):
			default:
				return err
			}

			// badger expiry has whole-second resolution
			ttl := bucket.ResetAt.Sub(now) + time.Second
			if err := txn.SetEntry(badger.NewEntry(k, encodeBucket(bucket)).WithTTL(ttl)); err != nil {
				return err
			}
			result = bucket
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return Bucket{}, fmt.Errorf("badger hit: %w", err)
		}
		return result, nil
	}
	return Bucket{}, fmt.Errorf("badger hit: too many conflicts on %s", key)
}

func (s *BadgerStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	prefix := []byte(badgerKeyPrefix)
	var expired [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				b, err := decodeBucket(val)
				if err != nil || !now.Before(b.ResetAt) {
					expired = append(expired, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger sweep: %w", err)
	}

	removed := 0
	for _, k := range expired {
		deleted := false
		err := s.db.Update(func(txn *badger.Txn) error {
			// re-check inside the write txn so a fresh window is not lost
			item, err := txn.Get(k)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if b, err := decodeBucket(val); err == nil && now.Before(b.ResetAt) {
				return nil
			}
			deleted = true
			return txn.Delete(k)
		})
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return removed, fmt.Errorf("badger sweep delete: %w", err)
		}
		if err == nil && deleted {
			removed++
		}
	}
	return removed, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
