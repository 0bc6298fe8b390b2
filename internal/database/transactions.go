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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		tx  models.Transaction
		key sql.NullString
	)
	err := row.Scan(&tx.Id, &tx.UserId, &tx.WalletId, &tx.Direction, &tx.FromAddress,
		&tx.Counterparty, &tx.Amount, &tx.TxHash, &tx.BlockHash, &tx.Status, &tx.Note,
		&key, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	tx.IdempotencyKey = key.String
	return &tx, nil
}

// CreateTransaction appends a transfer record. A repeated idempotency key for
// the same user is rejected with ErrInvalidInput.
func (s *Service) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	key := sql.NullString{String: tx.IdempotencyKey, Valid: tx.IdempotencyKey != ""}

	_, err := s.db.ExecContext(ctx, queryInsertTransaction,
		tx.Id, tx.UserId, tx.WalletId, tx.Direction, tx.FromAddress, tx.Counterparty,
		tx.Amount, tx.TxHash, tx.BlockHash, tx.Status, tx.Note, key, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("duplicate transaction record %s: %w", tx.Id, errs.ErrInvalidInput)
		}
		zap.L().Error("Failed to insert transaction",
			zap.String("user_id", tx.UserId),
			zap.String("tx_hash", tx.TxHash),
			zap.Error(err))
		return fmt.Errorf("unable to insert transaction: %w", err)
	}

	zap.L().Info("Transaction recorded",
		zap.String("id", tx.Id),
		zap.String("user_id", tx.UserId),
		zap.String("direction", tx.Direction),
		zap.String("amount", tx.Amount.String()),
		zap.String("tx_hash", tx.TxHash))
	return nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionById, transactionId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", transactionId, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) GetTransactionByIdempotencyKey(ctx context.Context, userId, key string) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionByIdempotencyKey, userId, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("idempotency key %s: %w", key, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query transaction by idempotency key: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the newest records first.
func (s *Service) ListTransactions(ctx context.Context, userId string, limit int) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, queryListTransactions, userId, limit)
	if err != nil {
		zap.L().Error("Failed to query transactions", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query transactions: %w", err)
	}
	defer closeRows(rows)

	txs := []*models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction row: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txs, nil
}

// GetTransactionTotals sums amounts in Go; sqlite would coerce TEXT amounts to float.
func (s *Service) GetTransactionTotals(ctx context.Context, userId string) (store.TransactionTotals, error) {
	totals := store.TransactionTotals{SentTotal: decimal.Zero, ReceivedTotal: decimal.Zero}

	rows, err := s.db.QueryContext(ctx, queryTransactionAmounts, userId)
	if err != nil {
		zap.L().Error("Failed to query transaction totals", zap.String("user_id", userId), zap.Error(err))
		return totals, fmt.Errorf("unable to query transaction totals: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			direction string
			amount    decimal.Decimal
		)
		if err := rows.Scan(&direction, &amount); err != nil {
			return totals, fmt.Errorf("unable to scan transaction amount: %w", err)
		}
		switch direction {
		case models.DirectionSent:
			totals.SentCount++
			totals.SentTotal = totals.SentTotal.Add(amount)
		case models.DirectionReceived:
			totals.ReceivedCount++
			totals.ReceivedTotal = totals.ReceivedTotal.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return totals, fmt.Errorf("error iterating transaction amounts: %w", err)
	}
	return totals, nil
}
