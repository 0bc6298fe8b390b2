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
	"fmt"
	"strings"
	"sync"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ownership"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GeneratePhrase returns a fresh recovery phrase without storing it.
func (s *WalletService) GeneratePhrase() (string, error) {
	return account.GeneratePhrase()
}

// ValidateAddress reports whether addr is a well-formed address on the configured network.
func (s *WalletService) ValidateAddress(addr string) bool {
	return s.Deriver.ValidateAddress(addr)
}

// CreateWallet stores a new wallet. Without a phrase one is generated and
// returned in this response only; a caller-supplied phrase is never echoed.
func (s *WalletService) CreateWallet(ctx context.Context, userId, name string, phrase ...string) (*models.CreateWalletResult, error) {
	name, err := validateName("wallet name", name)
	if err != nil {
		return nil, err
	}

	if len(phrase) > 0 && strings.TrimSpace(phrase[0]) != "" {
		supplied := account.NormalizePhrase(phrase[0])
		if !account.ValidatePhrase(supplied) {
			return nil, errs.ErrInvalidMnemonic
		}
		return s.storeWallet(ctx, userId, name, supplied, false)
	}

	generated, err := account.GeneratePhrase()
	if err != nil {
		return nil, err
	}

	result, err := s.storeWallet(ctx, userId, name, generated, false)
	if err != nil {
		return nil, err
	}
	result.Phrase = generated
	return result, nil
}

// ImportWallet stores an existing phrase. The phrase is never echoed back.
func (s *WalletService) ImportWallet(ctx context.Context, userId, name, phrase string) (*models.CreateWalletResult, error) {
	name, err := validateName("wallet name", name)
	if err != nil {
		return nil, err
	}

	phrase = account.NormalizePhrase(phrase)
	if !account.ValidatePhrase(phrase) {
		return nil, errs.ErrInvalidMnemonic
	}
	return s.storeWallet(ctx, userId, name, phrase, true)
}

func (s *WalletService) storeWallet(ctx context.Context, userId, name, phrase string, imported bool) (*models.CreateWalletResult, error) {
	acct, err := s.Deriver.Derive(phrase)
	if err != nil {
		return nil, err
	}
	envelope, err := s.Vault.Encrypt(phrase)
	if err != nil {
		return nil, fmt.Errorf("unable to encrypt wallet secret: %w", err)
	}

	wallet := &models.Wallet{
		Id:              uuid.New().String(),
		UserId:          userId,
		Name:            name,
		Address:         acct.Address,
		PublicKey:       acct.PublicKey,
		EncryptedSecret: envelope,
		IsImported:      imported,
	}

	bal := s.zeroBalance()
	if reading, err := s.Balances.GetBalance(ctx, wallet.Address); err == nil {
		bal = reading.Display()
		wallet.Balance = bal.Total
	} else {
		zap.L().Warn("Initial balance unavailable", zap.String("address", wallet.Address), zap.Error(err))
	}

	if err := s.Store.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}

	zap.L().Info("Wallet stored",
		zap.String("user_id", userId),
		zap.String("wallet_id", wallet.Id),
		zap.String("address", wallet.Address),
		zap.Bool("imported", imported))

	return &models.CreateWalletResult{Wallet: models.NewWalletView(wallet), Balance: bal}, nil
}

// ListWallets returns the owner's wallets with balances refreshed where the
// chain answers; unreachable wallets keep their last snapshot.
func (s *WalletService) ListWallets(ctx context.Context, userId string) ([]models.WalletView, error) {
	wallets, err := s.Store.ListWallets(ctx, userId)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	for _, w := range wallets {
		wg.Add(1)
		go func(w *models.Wallet) {
			defer wg.Done()
			s.refreshSnapshot(ctx, w)
		}(w)
	}
	wg.Wait()

	views := make([]models.WalletView, 0, len(wallets))
	for _, w := range wallets {
		views = append(views, models.NewWalletView(w))
	}
	return views, nil
}

func (s *WalletService) GetWallet(ctx context.Context, userId, walletId string) (*models.WalletView, error) {
	wallet, err := s.ownedWallet(ctx, userId, walletId)
	if err != nil {
		return nil, err
	}
	view := models.NewWalletView(wallet)
	return &view, nil
}

func (s *WalletService) RenameWallet(ctx context.Context, userId, walletId, name string) (*models.WalletView, error) {
	name, err := validateName("wallet name", name)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedWallet(ctx, userId, walletId); err != nil {
		return nil, err
	}
	if err := s.Store.RenameWallet(ctx, userId, walletId, name); err != nil {
		return nil, err
	}
	return s.GetWallet(ctx, userId, walletId)
}

// DeleteWallet removes the wallet and its encrypted secret. Transfer records are kept.
func (s *WalletService) DeleteWallet(ctx context.Context, userId, walletId string) error {
	if _, err := s.ownedWallet(ctx, userId, walletId); err != nil {
		return err
	}
	return s.Store.DeleteWallet(ctx, userId, walletId)
}

func (s *WalletService) GetWalletBalance(ctx context.Context, userId, walletId string) (models.Balance, error) {
	wallet, err := s.ownedWallet(ctx, userId, walletId)
	if err != nil {
		return models.Balance{}, err
	}
	reading, err := s.Balances.GetBalance(ctx, wallet.Address)
	if err != nil {
		return models.Balance{}, err
	}
	display := reading.Display()
	if display.Total != wallet.Balance {
		if err := s.Store.UpdateWalletBalance(ctx, wallet.Id, display.Total); err != nil {
			zap.L().Warn("Failed to store balance snapshot", zap.String("wallet_id", wallet.Id), zap.Error(err))
		}
	}
	return display, nil
}

func (s *WalletService) refreshSnapshot(ctx context.Context, w *models.Wallet) {
	reading, err := s.Balances.GetBalance(ctx, w.Address)
	if err != nil {
		zap.L().Debug("Balance refresh skipped", zap.String("wallet_id", w.Id), zap.Error(err))
		return
	}
	total := reading.Display().Total
	if total == w.Balance {
		return
	}
	w.Balance = total
	if err := s.Store.UpdateWalletBalance(ctx, w.Id, total); err != nil {
		zap.L().Warn("Failed to store balance snapshot", zap.String("wallet_id", w.Id), zap.Error(err))
	}
}

func (s *WalletService) ownedWallet(ctx context.Context, userId, walletId string) (*models.Wallet, error) {
	return ownership.Resolve(ctx, s.Guard, userId, walletId, s.Store.GetWallet)
}

func (s *WalletService) zeroBalance() models.Balance {
	zero := balanceZero(s.Balances.DisplayDecimals())
	return models.Balance{Free: zero, Reserved: zero, Frozen: zero, Total: zero}
}
