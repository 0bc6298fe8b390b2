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

package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/balance"
	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ownership"
	"quickdot-custody-go/internal/store"
	"quickdot-custody-go/internal/vault"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Receipt is the outcome of a confirmed (or replayed) transfer.
type Receipt = models.TransferResult

// Request describes one outgoing transfer. IdempotencyKey is optional and
// unique per owner.
type Request struct {
	OwnerId        string
	WalletId       string
	To             string
	Amount         decimal.Decimal
	Note           string
	IdempotencyKey string
}

// Deps are the collaborators a Submitter needs.
type Deps struct {
	Wallets      store.WalletStore
	Transactions store.TransactionStore
	Chain        chain.Client
	Balances     *balance.Oracle
	Deriver      *account.Deriver
	Vault        *vault.Vault
	Journal      store.Journal
	Guard        ownership.Guard
	Fee          decimal.Decimal
}

// Submitter signs and submits transfers from custodial wallets. Submissions
// from one wallet are serialized; different wallets proceed concurrently.
type Submitter struct {
	deps    Deps
	wallets *keyedLock
}

func NewSubmitter(deps Deps) *Submitter {
	if deps.Journal == nil {
		deps.Journal = store.NopJournal{}
	}
	return &Submitter{deps: deps, wallets: newKeyedLock()}
}

// Submit runs a transfer to inclusion. A record is written only once the
// chain reports the transfer included without a failure event.
func (s *Submitter) Submit(ctx context.Context, req Request) (*Receipt, error) {
	if err := s.checkAmount(req.Amount); err != nil {
		return nil, err
	}
	if !s.deps.Deriver.ValidateAddress(req.To) {
		return nil, errs.ErrInvalidAddress
	}

	wallet, err := ownership.Resolve(ctx, s.deps.Guard, req.OwnerId, req.WalletId, s.deps.Wallets.GetWallet)
	if err != nil {
		return nil, err
	}

	if receipt, err := s.replay(ctx, req); receipt != nil || err != nil {
		return receipt, err
	}

	lockKeys := []string{"wallet:" + wallet.Id}
	if req.IdempotencyKey != "" {
		lockKeys = append([]string{"key:" + req.OwnerId + ":" + req.IdempotencyKey}, lockKeys...)
	}
	for _, key := range lockKeys {
		unlock, err := s.wallets.Lock(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("waiting for wallet %s: %w", wallet.Id, err)
		}
		defer unlock()
	}

	// An in-flight duplicate may have completed while this request queued.
	if receipt, err := s.replay(ctx, req); receipt != nil || err != nil {
		return receipt, err
	}

	reading, err := s.deps.Balances.GetBalance(ctx, wallet.Address)
	if err != nil {
		return nil, err
	}
	if req.Amount.GreaterThan(reading.Free) {
		zap.L().Info("Transfer rejected for insufficient balance",
			zap.String("wallet_id", wallet.Id),
			zap.String("amount", req.Amount.String()),
			zap.String("free", reading.Free.String()))
		return nil, errs.ErrInsufficientBalance
	}

	result, err := s.signAndSubmit(ctx, wallet, req)
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		Id:             uuid.New().String(),
		UserId:         req.OwnerId,
		WalletId:       wallet.Id,
		Direction:      models.DirectionSent,
		FromAddress:    wallet.Address,
		Counterparty:   req.To,
		Amount:         req.Amount,
		TxHash:         result.TxHash,
		BlockHash:      result.BlockHash,
		Status:         models.StatusConfirmed,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := s.deps.Transactions.CreateTransaction(ctx, tx); err != nil {
		zap.L().Error("Confirmed transfer could not be recorded",
			zap.String("wallet_id", wallet.Id),
			zap.String("tx_hash", result.TxHash),
			zap.Error(err))
		return nil, fmt.Errorf("transfer %s confirmed but not recorded: %w", result.TxHash, err)
	}

	if err := s.deps.Journal.RecordTransfer(ctx, tx); err != nil {
		zap.L().Warn("Failed to journal transfer", zap.String("tx_hash", tx.TxHash), zap.Error(err))
	}

	zap.L().Info("Transfer confirmed",
		zap.String("user_id", req.OwnerId),
		zap.String("wallet_id", wallet.Id),
		zap.String("to", req.To),
		zap.String("amount", req.Amount.String()),
		zap.String("tx_hash", result.TxHash),
		zap.String("block_hash", result.BlockHash))

	return &Receipt{TxHash: result.TxHash, BlockHash: result.BlockHash, Transaction: tx}, nil
}

// signAndSubmit holds the decrypted phrase and signing key for this call only.
func (s *Submitter) signAndSubmit(ctx context.Context, wallet *models.Wallet, req Request) (chain.Result, error) {
	phrase, err := s.deps.Vault.Decrypt(wallet.EncryptedSecret)
	if err != nil {
		zap.L().Error("Wallet secret could not be decrypted", zap.String("wallet_id", wallet.Id))
		return chain.Result{}, err
	}
	key, err := s.deps.Deriver.SigningKey(phrase)
	if err != nil {
		return chain.Result{}, fmt.Errorf("%w: stored phrase does not derive a key", errs.ErrCredentialMismatch)
	}
	defer key.Zero()

	from, err := key.Address()
	if err != nil || from != wallet.Address {
		zap.L().Error("Derived address does not match wallet", zap.String("wallet_id", wallet.Id))
		return chain.Result{}, errs.ErrCredentialMismatch
	}

	amount := balance.ToBaseUnits(req.Amount, s.deps.Balances.Decimals())
	if amount.Sign() <= 0 {
		return chain.Result{}, fmt.Errorf("%w: amount is below one base unit", errs.ErrInvalidAmount)
	}

	nonce, err := s.deps.Chain.GetNonce(ctx, from)
	if err != nil {
		return chain.Result{}, asChainError(err, errs.ErrChainUnavailable)
	}

	unsigned := chain.Transfer{
		From:      from,
		To:        req.To,
		Amount:    amount,
		Nonce:     nonce,
		PublicKey: key.PublicKey(),
	}
	hash := chain.PayloadHash(unsigned)
	sig, err := key.Sign(hash[:])
	if err != nil {
		return chain.Result{}, fmt.Errorf("%w: signing failed: %v", errs.ErrSubmissionFailed, err)
	}

	sub, err := s.deps.Chain.SubmitTransfer(ctx, chain.SignedTransfer{Transfer: unsigned, Signature: sig})
	if err != nil {
		zap.L().Warn("Transfer submission rejected", zap.String("wallet_id", wallet.Id), zap.Error(err))
		return chain.Result{}, asChainError(err, errs.ErrSubmissionFailed)
	}
	zap.L().Info("Transfer submitted, awaiting inclusion",
		zap.String("wallet_id", wallet.Id),
		zap.String("tx_hash", sub.TxHash),
		zap.Uint64("nonce", nonce))

	result, err := sub.Wait(ctx)
	if err != nil {
		if errors.Is(err, errs.ErrExtrinsicFailed) {
			zap.L().Warn("Transfer included but failed on chain",
				zap.String("tx_hash", sub.TxHash),
				zap.String("block_hash", result.BlockHash))
			return result, err
		}
		return result, fmt.Errorf("tx %s: %w", sub.TxHash, asChainError(err, errs.ErrSubmissionFailed))
	}
	return result, nil
}

// replay returns the stored receipt for a repeated idempotency key.
func (s *Submitter) replay(ctx context.Context, req Request) (*Receipt, error) {
	if req.IdempotencyKey == "" {
		return nil, nil
	}
	tx, err := s.deps.Transactions.GetTransactionByIdempotencyKey(ctx, req.OwnerId, req.IdempotencyKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if tx.WalletId != req.WalletId || tx.Counterparty != req.To || !tx.Amount.Equal(req.Amount) {
		return nil, fmt.Errorf("%w: idempotency key reused for a different transfer", errs.ErrInvalidInput)
	}
	zap.L().Info("Replaying transfer for idempotency key",
		zap.String("user_id", req.OwnerId),
		zap.String("tx_hash", tx.TxHash))
	return &Receipt{TxHash: tx.TxHash, BlockHash: tx.BlockHash, Transaction: tx, Replayed: true}, nil
}

// EstimateFee reports the configured network fee for a transfer from an owned wallet.
func (s *Submitter) EstimateFee(ctx context.Context, ownerId, walletId, to string, amount decimal.Decimal) (*models.FeeEstimate, error) {
	if err := s.checkAmount(amount); err != nil {
		return nil, err
	}
	if !s.deps.Deriver.ValidateAddress(to) {
		return nil, errs.ErrInvalidAddress
	}
	if _, err := ownership.Resolve(ctx, s.deps.Guard, ownerId, walletId, s.deps.Wallets.GetWallet); err != nil {
		return nil, err
	}

	display := s.deps.Balances.DisplayDecimals()
	return &models.FeeEstimate{
		Fee:    s.deps.Fee.StringFixed(display),
		Amount: amount.StringFixed(display),
		Total:  amount.Add(s.deps.Fee).StringFixed(display),
	}, nil
}

// checkAmount rejects non-positive amounts and amounts finer than one base unit.
func (s *Submitter) checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", errs.ErrInvalidAmount)
	}
	decimals := s.deps.Balances.Decimals()
	if !amount.Equal(amount.Truncate(decimals)) {
		return fmt.Errorf("%w: amount has more than %d fractional digits", errs.ErrInvalidAmount, decimals)
	}
	return nil
}

// asChainError keeps typed chain errors and classifies everything else as fallback.
func asChainError(err, fallback error) error {
	for _, known := range []error{errs.ErrChainUnavailable, errs.ErrSubmissionFailed, errs.ErrExtrinsicFailed} {
		if errors.Is(err, known) {
			return err
		}
	}
	var rpcErr *chain.RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %s", errs.ErrSubmissionFailed, strings.TrimSpace(rpcErr.Message))
	}
	return fmt.Errorf("%w: %v", fallback, err)
}
