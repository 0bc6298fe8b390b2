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

	"go.uber.org/zap"
)

func (s *Service) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	zap.L().Info("Creating wallet",
		zap.String("id", wallet.Id),
		zap.String("user_id", wallet.UserId),
		zap.String("address", wallet.Address),
		zap.Bool("imported", wallet.IsImported))

	now := s.now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	if wallet.Balance == "" {
		wallet.Balance = "0"
	}

	_, err := s.db.ExecContext(ctx, queryInsertWallet,
		wallet.Id, wallet.UserId, wallet.Name, wallet.Address, wallet.PublicKey,
		wallet.EncryptedSecret, wallet.Balance, wallet.IsImported, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("wallet for address %s already exists: %w", wallet.Address, errs.ErrInvalidInput)
		}
		zap.L().Error("Failed to insert wallet", zap.String("user_id", wallet.UserId), zap.Error(err))
		return fmt.Errorf("unable to insert wallet: %w", err)
	}
	return nil
}

// GetWallet returns the full wallet row, encrypted secret included.
func (s *Service) GetWallet(ctx context.Context, walletId string) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.QueryRowContext(ctx, queryGetWalletById, walletId).Scan(
		&w.Id, &w.UserId, &w.Name, &w.Address, &w.PublicKey, &w.EncryptedSecret,
		&w.Balance, &w.IsImported, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wallet %s: %w", walletId, errs.ErrNotFound)
		}
		zap.L().Error("Failed to query wallet", zap.String("wallet_id", walletId), zap.Error(err))
		return nil, fmt.Errorf("unable to query wallet: %w", err)
	}
	return &w, nil
}

func (s *Service) ListWallets(ctx context.Context, userId string) ([]*models.Wallet, error) {
	return s.listWallets(ctx, queryListWalletsByUser, userId)
}

func (s *Service) ListAllWallets(ctx context.Context) ([]*models.Wallet, error) {
	return s.listWallets(ctx, queryListAllWallets)
}

func (s *Service) listWallets(ctx context.Context, query string, args ...any) ([]*models.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query wallets", zap.Error(err))
		return nil, fmt.Errorf("unable to query wallets: %w", err)
	}
	defer closeRows(rows)

	wallets := []*models.Wallet{}
	for rows.Next() {
		var w models.Wallet
		if err := rows.Scan(&w.Id, &w.UserId, &w.Name, &w.Address, &w.PublicKey,
			&w.Balance, &w.IsImported, &w.CreatedAt, &w.UpdatedAt); err != nil {
			zap.L().Error("Failed to scan wallet row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan wallet row: %w", err)
		}
		wallets = append(wallets, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wallet rows: %w", err)
	}
	return wallets, nil
}

func (s *Service) RenameWallet(ctx context.Context, userId, walletId, name string) error {
	result, err := s.db.ExecContext(ctx, queryRenameWallet, name, s.now(), walletId, userId)
	if err != nil {
		zap.L().Error("Failed to rename wallet", zap.String("wallet_id", walletId), zap.Error(err))
		return fmt.Errorf("unable to rename wallet: %w", err)
	}
	return requireAffected(result, "wallet "+walletId)
}

func (s *Service) DeleteWallet(ctx context.Context, userId, walletId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteWallet, walletId, userId)
	if err != nil {
		zap.L().Error("Failed to delete wallet", zap.String("wallet_id", walletId), zap.Error(err))
		return fmt.Errorf("unable to delete wallet: %w", err)
	}
	if err := requireAffected(result, "wallet "+walletId); err != nil {
		return err
	}
	zap.L().Info("Wallet deleted", zap.String("wallet_id", walletId), zap.String("user_id", userId))
	return nil
}

// UpdateWalletBalance stores the last observed display balance.
func (s *Service) UpdateWalletBalance(ctx context.Context, walletId, balance string) error {
	result, err := s.db.ExecContext(ctx, queryUpdateWalletBalance, balance, s.now(), walletId)
	if err != nil {
		return fmt.Errorf("unable to update wallet balance: %w", err)
	}
	return requireAffected(result, "wallet "+walletId)
}
