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

package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"quickdot-custody-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SourceLive     = "live"
	SourceFallback = "fallback"

	assetId = "polkadot"
)

// Fallback is the static price served when the feed cannot be reached.
func Fallback(now time.Time) models.Price {
	return models.Price{
		USD:       decimal.RequireFromString("7.50"),
		EUR:       decimal.RequireFromString("6.90"),
		GBP:       decimal.RequireFromString("5.95"),
		Change24h: decimal.RequireFromString("2.5"),
		Source:    SourceFallback,
		FetchedAt: now,
	}
}

type feedQuote struct {
	USD       decimal.Decimal `json:"usd"`
	EUR       decimal.Decimal `json:"eur"`
	GBP       decimal.Decimal `json:"gbp"`
	Change24h decimal.Decimal `json:"usd_24h_change"`
}

// Oracle fetches the reference price and caches live quotes for a TTL.
type Oracle struct {
	url     string
	timeout time.Duration
	ttl     time.Duration
	http    *http.Client
	now     func() time.Time

	mu     sync.Mutex
	cached *models.Price
}

func NewOracle(cfg models.PriceConfig, httpClient *http.Client) *Oracle {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Oracle{
		url:     cfg.URL,
		timeout: timeout,
		ttl:     cfg.CacheTTL,
		http:    httpClient,
		now:     time.Now,
	}
}

// WithClock replaces the oracle's time source.
func (o *Oracle) WithClock(now func() time.Time) *Oracle {
	o.now = now
	return o
}

// Current returns the latest price. It never fails: feed errors yield the
// static fallback, which is not cached.
func (o *Oracle) Current(ctx context.Context) models.Price {
	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	if o.cached != nil && now.Sub(o.cached.FetchedAt) < o.ttl {
		return *o.cached
	}

	p, err := o.fetch(ctx, now)
	if err != nil {
		zap.L().Warn("Price feed unavailable, using fallback", zap.Error(err))
		return Fallback(now)
	}
	o.cached = &p
	return p
}

func (o *Oracle) fetch(ctx context.Context, now time.Time) (models.Price, error) {
	if o.url == "" {
		return models.Price{}, fmt.Errorf("no price feed configured")
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return models.Price{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return models.Price{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close price response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return models.Price{}, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return models.Price{}, err
	}

	var quotes map[string]feedQuote
	if err := json.Unmarshal(body, &quotes); err != nil {
		return models.Price{}, fmt.Errorf("decode price feed: %w", err)
	}
	q, ok := quotes[assetId]
	if !ok || q.USD.Sign() <= 0 {
		return models.Price{}, fmt.Errorf("price feed has no quote for %s", assetId)
	}

	return models.Price{
		USD:       q.USD,
		EUR:       q.EUR,
		GBP:       q.GBP,
		Change24h: q.Change24h,
		Source:    SourceLive,
		FetchedAt: now,
	}, nil
}
