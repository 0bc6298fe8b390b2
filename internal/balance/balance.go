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

package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reading is an exact balance converted from base units.
type Reading struct {
	Free     decimal.Decimal
	Reserved decimal.Decimal
	Frozen   decimal.Decimal
	Total    decimal.Decimal

	displayDecimals int32
}

// Display renders the reading at display precision.
func (r Reading) Display() models.Balance {
	return models.Balance{
		Free:     r.Free.StringFixed(r.displayDecimals),
		Reserved: r.Reserved.StringFixed(r.displayDecimals),
		Frozen:   r.Frozen.StringFixed(r.displayDecimals),
		Total:    r.Total.StringFixed(r.displayDecimals),
	}
}

// Oracle converts ledger balances into decimal amounts.
type Oracle struct {
	client          chain.Client
	decimals        int32
	displayDecimals int32
}

// NewOracle creates an oracle for a network with the given base-unit
// precision and display precision.
func NewOracle(client chain.Client, decimals, displayDecimals int32) *Oracle {
	return &Oracle{client: client, decimals: decimals, displayDecimals: displayDecimals}
}

func (o *Oracle) Decimals() int32        { return o.decimals }
func (o *Oracle) DisplayDecimals() int32 { return o.displayDecimals }

// GetBalance queries the chain once. Failures are surfaced without retry.
func (o *Oracle) GetBalance(ctx context.Context, address string) (Reading, error) {
	bal, err := o.client.GetBalance(ctx, address)
	if err != nil {
		if !errors.Is(err, errs.ErrChainUnavailable) {
			err = fmt.Errorf("%w: %v", errs.ErrChainUnavailable, err)
		}
		return Reading{}, err
	}

	free := FromBaseUnits(bal.Free, o.decimals)
	reserved := FromBaseUnits(bal.Reserved, o.decimals)
	return Reading{
		Free:            free,
		Reserved:        reserved,
		Frozen:          FromBaseUnits(bal.Frozen, o.decimals),
		Total:           free.Add(reserved),
		displayDecimals: o.displayDecimals,
	}, nil
}

// Aggregate reads every wallet concurrently and computes each wallet's share
// of the total. Wallets that cannot be read are listed in FailedWallets and
// left out of the total.
func (o *Oracle) Aggregate(ctx context.Context, wallets []*models.Wallet) models.Portfolio {
	type reading struct {
		total decimal.Decimal
		err   error
	}
	readings := make([]reading, len(wallets))

	var wg sync.WaitGroup
	for i, w := range wallets {
		wg.Add(1)
		go func(i int, w *models.Wallet) {
			defer wg.Done()
			r, err := o.GetBalance(ctx, w.Address)
			readings[i] = reading{total: r.Total, err: err}
		}(i, w)
	}
	wg.Wait()

	portfolio := models.Portfolio{Total: decimal.Zero, Wallets: []models.WalletShare{}}
	for i, w := range wallets {
		if readings[i].err != nil {
			zap.L().Warn("Skipping wallet in aggregate",
				zap.String("wallet_id", w.Id),
				zap.Error(readings[i].err))
			portfolio.FailedWallets = append(portfolio.FailedWallets, w.Id)
			continue
		}
		portfolio.Total = portfolio.Total.Add(readings[i].total)
	}

	hundred := decimal.NewFromInt(100)
	for i, w := range wallets {
		if readings[i].err != nil {
			continue
		}
		pct := decimal.Zero
		if !portfolio.Total.IsZero() {
			pct = readings[i].total.Div(portfolio.Total).Mul(hundred)
		}
		portfolio.Wallets = append(portfolio.Wallets, models.WalletShare{
			WalletId:   w.Id,
			Name:       w.Name,
			Address:    w.Address,
			Balance:    readings[i].total,
			Percentage: pct.StringFixed(2),
		})
	}
	return portfolio
}

// FromBaseUnits divides a base-unit integer by 10^decimals exactly.
func FromBaseUnits(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// FormatUnits renders base units at display precision, e.g.
// FormatUnits(1234500000000, 10, 4) == "123.4500".
func FormatUnits(raw *big.Int, decimals, display int32) string {
	return FromBaseUnits(raw, decimals).StringFixed(display)
}

// ToBaseUnits converts a decimal amount to base units, discarding any
// precision finer than one base unit.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Floor().BigInt()
}
