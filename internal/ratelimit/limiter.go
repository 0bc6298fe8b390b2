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
	"fmt"
	"time"

	"quickdot-custody-go/internal/errs"

	"go.uber.org/zap"
)

// Policy is a fixed-window request budget.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

// StandardPolicy applies to general traffic.
func StandardPolicy() Policy {
	return Policy{Name: "standard", Max: 100, Window: 15 * time.Minute}
}

// StrictPolicy applies to transfer submission.
func StrictPolicy() Policy {
	return Policy{Name: "strict", Max: 10, Window: 5 * time.Minute}
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter enforces one policy over a shared store. Buckets are keyed by
// policy name and client key, so several limiters can share a store.
type Limiter struct {
	policy Policy
	store  Store
	now    func() time.Time
}

func NewLimiter(policy Policy, store Store) *Limiter {
	return &Limiter{policy: policy, store: store, now: time.Now}
}

// WithClock replaces the limiter's time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Policy() Policy { return l.policy }

// Allow counts one request for clientKey. Rejections return an
// *errs.RateLimitedError carrying the retry hint.
func (l *Limiter) Allow(ctx context.Context, clientKey string) (Decision, error) {
	now := l.now()
	bucket, err := l.store.Hit(ctx, l.policy.Name+":"+clientKey, now, l.policy.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := l.policy.Max - bucket.Count
	if remaining < 0 {
		remaining = 0
	}
	decision := Decision{
		Allowed:   bucket.Count <= l.policy.Max,
		Limit:     l.policy.Max,
		Remaining: remaining,
		ResetAt:   bucket.ResetAt,
	}
	if decision.Allowed {
		return decision, nil
	}

	decision.RetryAfter = bucket.ResetAt.Sub(now)
	zap.L().Info("Rate limit exceeded",
		zap.String("policy", l.policy.Name),
		zap.String("client", clientKey),
		zap.Int("count", bucket.Count),
		zap.Duration("retry_after", decision.RetryAfter))

	return decision, &errs.RateLimitedError{Policy: l.policy.Name, RetryAfter: decision.RetryAfter}
}

// Sweep removes expired buckets from the underlying store.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	return l.store.Sweep(ctx, l.now())
}

// RunJanitor sweeps every interval until ctx is cancelled.
func (l *Limiter) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := l.Sweep(ctx)
			if err != nil {
				zap.L().Warn("Rate limit sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				zap.L().Debug("Swept rate limit buckets", zap.Int("removed", removed))
			}
		}
	}
}
