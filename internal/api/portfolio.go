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

package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/price"
)

const fiatPlaces = 2

// GetPrice never fails; without a feed it serves the static fallback.
func (s *WalletService) GetPrice(ctx context.Context) models.Price {
	if s.Prices == nil {
		return price.Fallback(time.Now().UTC())
	}
	return s.Prices.Current(ctx)
}

func (s *WalletService) PortfolioAllocation(ctx context.Context, userId string) (models.Portfolio, error) {
	wallets, err := s.Store.ListWallets(ctx, userId)
	if err != nil {
		return models.Portfolio{}, err
	}
	return s.Balances.Aggregate(ctx, wallets), nil
}

func (s *WalletService) PortfolioOverview(ctx context.Context, userId string) (*models.PortfolioOverview, error) {
	portfolio, err := s.PortfolioAllocation(ctx, userId)
	if err != nil {
		return nil, err
	}
	quote := s.GetPrice(ctx)

	values := make(map[string]string, 3)
	for _, currency := range []string{"USD", "EUR", "GBP"} {
		p, _ := quote.In(currency)
		values[currency] = portfolio.Total.Mul(p).StringFixed(fiatPlaces)
	}

	return &models.PortfolioOverview{
		Total:        portfolio.Total.StringFixed(s.Balances.DisplayDecimals()),
		Values:       values,
		WalletCount:  len(portfolio.Wallets) + len(portfolio.FailedWallets),
		Wallets:      portfolio.Wallets,
		Price:        quote,
		SkippedCount: len(portfolio.FailedWallets),
	}, nil
}

// PortfolioPerformance values current holdings in the user's preferred
// currency, falling back to USD when no quote exists for it.
func (s *WalletService) PortfolioPerformance(ctx context.Context, userId string) (*models.PortfolioPerformance, error) {
	user, err := s.Store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	portfolio, err := s.PortfolioAllocation(ctx, userId)
	if err != nil {
		return nil, err
	}
	totals, err := s.Store.GetTransactionTotals(ctx, userId)
	if err != nil {
		return nil, err
	}

	quote := s.GetPrice(ctx)
	currency := user.Preferences.Currency
	p, ok := quote.In(currency)
	if !ok {
		currency = "USD"
		p = quote.USD
	}

	count := totals.SentCount + totals.ReceivedCount
	display := s.Balances.DisplayDecimals()
	return &models.PortfolioPerformance{
		Current:                portfolio.Total.StringFixed(display),
		CurrentValue:           portfolio.Total.Mul(p).StringFixed(fiatPlaces),
		Currency:               currency,
		TotalReceived:          totals.ReceivedTotal.StringFixed(display),
		TotalSent:              totals.SentTotal.StringFixed(display),
		NetFlow:                totals.ReceivedTotal.Sub(totals.SentTotal).StringFixed(display),
		TransactionCount:       count,
		AverageTransactionSize: average(totals.ReceivedTotal.Add(totals.SentTotal), count).StringFixed(display),
	}, nil
}

func (s *WalletService) NetworkStats(ctx context.Context) (*models.NetworkStats, error) {
	header, err := s.Chain.GetHeader(ctx)
	if err != nil {
		return nil, chainUnavailable(err)
	}
	health, err := s.Chain.HealthCheck(ctx)
	if err != nil {
		return nil, chainUnavailable(err)
	}

	return &models.NetworkStats{
		Network:     s.Network.Name,
		BlockNumber: header.Number,
		BlockHash:   header.Hash,
		BlockTime:   header.Timestamp,
		Peers:       health.Peers,
		IsSyncing:   health.IsSyncing,
		Healthy:     !health.IsSyncing,
	}, nil
}

func chainUnavailable(err error) error {
	if errors.Is(err, errs.ErrChainUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", errs.ErrChainUnavailable, err)
}
