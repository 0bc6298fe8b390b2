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

package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quickdot-custody-go/internal/balance"
	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ratelimit"
	"quickdot-custody-go/internal/store"

	"go.uber.org/zap"
)

// Config contains configuration for Monitor
type Config struct {
	Wallets         store.WalletStore
	Chain           chain.Client
	Balances        *balance.Oracle
	Limiters        []*ratelimit.Limiter
	PollingInterval time.Duration
	CleanupInterval time.Duration
}

// Status is the outcome of the most recent poll.
type Status struct {
	Healthy     bool
	Peers       int
	BlockNumber uint64
	LastPoll    time.Time
	Refreshed   int
	Failed      int
	LastError   string
}

// Monitor health-checks the chain connection, keeps wallet balance
// snapshots current and sweeps expired rate-limit buckets.
type Monitor struct {
	cfg Config

	mu     sync.RWMutex
	status Status

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

func New(cfg Config) (*Monitor, error) {
	if cfg.Wallets == nil || cfg.Chain == nil || cfg.Balances == nil {
		return nil, errors.New("monitor requires a wallet store, chain client and balance oracle")
	}
	if cfg.PollingInterval <= 0 {
		return nil, fmt.Errorf("polling interval must be positive, got %v", cfg.PollingInterval)
	}
	if cfg.CleanupInterval <= 0 {
		return nil, fmt.Errorf("cleanup interval must be positive, got %v", cfg.CleanupInterval)
	}
	return &Monitor{
		cfg:      cfg,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start launches the poll and cleanup loops. They run until Stop is called
// or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		zap.L().Info("Starting monitor",
			zap.Duration("polling_interval", m.cfg.PollingInterval),
			zap.Duration("cleanup_interval", m.cfg.CleanupInterval),
			zap.Int("limiters", len(m.cfg.Limiters)))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.loop(ctx, m.cfg.PollingInterval, m.Poll)
		}()
		go func() {
			defer wg.Done()
			m.loop(ctx, m.cfg.CleanupInterval, m.Cleanup)
		}()
		go func() {
			wg.Wait()
			close(m.doneChan)
		}()
	})
}

// Stop gracefully stops the monitor
func (m *Monitor) Stop() {
	zap.L().Info("Stopping monitor")
	m.stopOnce.Do(func() { close(m.stopChan) })
	<-m.doneChan
	zap.L().Info("Monitor stopped")
}

// Done is closed once both loops have exited.
func (m *Monitor) Done() <-chan struct{} {
	return m.doneChan
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick(ctx)

	for {
		select {
		case <-ticker.C:
			tick(ctx)
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Poll runs one health check and, if the chain is reachable, refreshes
// every wallet's balance snapshot concurrently.
func (m *Monitor) Poll(ctx context.Context) {
	status := Status{LastPoll: time.Now().UTC()}
	defer func() {
		m.mu.Lock()
		m.status = status
		m.mu.Unlock()
	}()

	health, err := m.cfg.Chain.HealthCheck(ctx)
	if err != nil {
		status.LastError = err.Error()
		zap.L().Warn("Chain health check failed", zap.Error(err))
		return
	}
	status.Healthy = !health.IsSyncing
	status.Peers = health.Peers

	if header, err := m.cfg.Chain.GetHeader(ctx); err == nil {
		status.BlockNumber = header.Number
	}

	wallets, err := m.cfg.Wallets.ListAllWallets(ctx)
	if err != nil {
		status.LastError = err.Error()
		zap.L().Error("Failed to list wallets", zap.Error(err))
		return
	}

	var (
		wg     sync.WaitGroup
		countM sync.Mutex
	)
	for _, w := range wallets {
		wg.Add(1)
		go func(w *models.Wallet) {
			defer wg.Done()
			err := m.refresh(ctx, w)

			countM.Lock()
			defer countM.Unlock()
			if err != nil {
				status.Failed++
				zap.L().Warn("Failed to refresh wallet balance",
					zap.String("wallet_id", w.Id),
					zap.String("address", w.Address),
					zap.Error(err))
				return
			}
			status.Refreshed++
		}(w)
	}
	wg.Wait()

	zap.L().Debug("Monitor poll complete",
		zap.Bool("healthy", status.Healthy),
		zap.Uint64("block", status.BlockNumber),
		zap.Int("wallets", len(wallets)),
		zap.Int("refreshed", status.Refreshed),
		zap.Int("failed", status.Failed))
}

func (m *Monitor) refresh(ctx context.Context, w *models.Wallet) error {
	reading, err := m.cfg.Balances.GetBalance(ctx, w.Address)
	if err != nil {
		return err
	}
	total := reading.Display().Total
	if total == w.Balance {
		return nil
	}
	return m.cfg.Wallets.UpdateWalletBalance(ctx, w.Id, total)
}

// Cleanup sweeps expired buckets from every limiter.
func (m *Monitor) Cleanup(ctx context.Context) {
	for _, l := range m.cfg.Limiters {
		removed, err := l.Sweep(ctx)
		if err != nil {
			zap.L().Warn("Rate limit sweep failed", zap.String("policy", l.Policy().Name), zap.Error(err))
			continue
		}
		if removed > 0 {
			zap.L().Debug("Swept rate limit buckets", zap.String("policy", l.Policy().Name), zap.Int("removed", removed))
		}
	}
}
