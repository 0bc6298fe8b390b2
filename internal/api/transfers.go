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

	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ownership"
	"quickdot-custody-go/internal/transfer"

	"github.com/shopspring/decimal"
)

// SendRequest is an outgoing transfer as received from a client.
type SendRequest struct {
	WalletId       string
	To             string
	Amount         string
	Note           string
	IdempotencyKey string
}

// SendTransfer is throttled by the strict policy before any validation.
func (s *WalletService) SendTransfer(ctx context.Context, userId string, req SendRequest) (*models.TransferResult, error) {
	if s.Strict != nil {
		if _, err := s.Strict.Allow(ctx, userId); err != nil {
			return nil, err
		}
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	note, err := validateNote(req.Note)
	if err != nil {
		return nil, err
	}

	return s.Submitter.Submit(ctx, transfer.Request{
		OwnerId:        userId,
		WalletId:       req.WalletId,
		To:             req.To,
		Amount:         amount,
		Note:           note,
		IdempotencyKey: req.IdempotencyKey,
	})
}

func (s *WalletService) EstimateFee(ctx context.Context, userId, walletId, to, amount string) (*models.FeeEstimate, error) {
	amt, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return s.Submitter.EstimateFee(ctx, userId, walletId, to, amt)
}

// GetTransactionHistory returns the newest records first; a zero limit means 50.
func (s *WalletService) GetTransactionHistory(ctx context.Context, userId string, limit int) ([]*models.Transaction, error) {
	limit, err := historyLimit(limit)
	if err != nil {
		return nil, err
	}
	return s.Store.ListTransactions(ctx, userId, limit)
}

func (s *WalletService) GetTransaction(ctx context.Context, userId, transactionId string) (*models.Transaction, error) {
	return ownership.Resolve(ctx, s.Guard, userId, transactionId, s.Store.GetTransaction)
}

func (s *WalletService) GetTransactionStats(ctx context.Context, userId string) (*models.TransactionStats, error) {
	totals, err := s.Store.GetTransactionTotals(ctx, userId)
	if err != nil {
		return nil, err
	}

	const places = 4
	return &models.TransactionStats{
		TotalTransactions: totals.SentCount + totals.ReceivedCount,
		TotalSent:         totals.SentTotal.StringFixed(places),
		TotalReceived:     totals.ReceivedTotal.StringFixed(places),
		SentCount:         totals.SentCount,
		ReceivedCount:     totals.ReceivedCount,
		AverageSent:       average(totals.SentTotal, totals.SentCount).StringFixed(places),
		AverageReceived:   average(totals.ReceivedTotal, totals.ReceivedCount).StringFixed(places),
	}, nil
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count)))
}

func balanceZero(places int32) string {
	return decimal.Zero.StringFixed(places)
}
