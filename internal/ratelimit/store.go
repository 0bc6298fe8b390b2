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
	"sync"
	"time"
)

// Bucket is one client's request count within its current window.
type Bucket struct {
	Count   int
	ResetAt time.Time
}

// Store holds buckets. Hit must increment-or-reset atomically per key: a hit
// at or after ResetAt starts a new window of length window with count 1.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration) (Bucket, error)
	// Sweep removes buckets whose window ended before now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Close() error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*Bucket)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration) (Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.ResetAt) {
		b = &Bucket{Count: 1, ResetAt: now.Add(window)}
		s.buckets[key] = b
		return *b, nil
	}
	b.Count++
	return *b, nil
}

func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		if !now.Before(b.ResetAt) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of live buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) Close() error { return nil }
