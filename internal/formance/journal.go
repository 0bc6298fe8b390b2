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

package formance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Journal must satisfy store.Journal.
var _ store.Journal = (*Journal)(nil)

const defaultLedgerName = "quickdot-custody"

// OutboundAccount collects every confirmed outgoing transfer.
const OutboundAccount = "chain:outbound"

const numscriptTransfer = `vars {
  asset $asset
  number $amount
  account $source
  account $destination
  string $tx_hash
  string $block_hash
  string $recipient
  string $record_id
}

send [$asset $amount] (
  source = $source allowing unbounded overdraft
  destination = $destination
)

set_tx_meta("event_type", "transfer")
set_tx_meta("tx_hash", $tx_hash)
set_tx_meta("block_hash", $block_hash)
set_tx_meta("recipient", $recipient)
set_tx_meta("record_id", $record_id)
`

// Journal mirrors confirmed transfers into a Formance ledger. It is an
// accounting copy only; the chain and the transaction store stay authoritative.
type Journal struct {
	client   *v3.Formance
	ledger   string
	asset    string
	decimals int32
}

// NewJournal connects to the stack and creates the ledger if it doesn't already exist.
func NewJournal(ctx context.Context, cfg models.FormanceConfig, network models.NetworkConfig) (*Journal, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	j := &Journal{
		client:   client,
		ledger:   cfg.LedgerName,
		asset:    ledgerAsset(network.Symbol, network.Decimals),
		decimals: network.Decimals,
	}
	if err := j.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance journal initialized", zap.String("ledger", cfg.LedgerName), zap.String("asset", j.asset))
	return j, nil
}

func (j *Journal) ensureLedger(ctx context.Context) error {
	_, err := j.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: j.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": defaultLedgerName,
			},
		},
	})
	if err != nil {
		if hasErrorCode(err, shared.V2ErrorsEnumLedgerAlreadyExists) {
			zap.L().Info("Ledger already exists", zap.String("ledger", j.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", j.ledger))
	return nil
}

// RecordTransfer posts a confirmed outgoing transfer. The chain tx hash is the
// ledger reference, so a repeated post of the same transfer is a no-op.
func (j *Journal) RecordTransfer(ctx context.Context, tx *models.Transaction) error {
	post, err := j.transferPosting(tx)
	if err != nil {
		return err
	}

	_, err = j.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            j.ledger,
		V2PostTransaction: post,
	})
	if err != nil {
		if hasErrorCode(err, shared.V2ErrorsEnumConflict) {
			zap.L().Debug("Transfer already journaled", zap.String("tx_hash", tx.TxHash))
			return nil
		}
		return fmt.Errorf("error journaling transfer %s: %w", tx.TxHash, err)
	}

	zap.L().Info("Transfer journaled in Formance",
		zap.String("user_id", tx.UserId),
		zap.String("wallet_id", tx.WalletId),
		zap.String("amount", tx.Amount.String()),
		zap.String("tx_hash", tx.TxHash))
	return nil
}

func (j *Journal) transferPosting(tx *models.Transaction) (shared.V2PostTransaction, error) {
	if tx.Direction != models.DirectionSent {
		return shared.V2PostTransaction{}, fmt.Errorf("only sent transfers are journaled, got %q", tx.Direction)
	}
	if tx.TxHash == "" {
		return shared.V2PostTransaction{}, fmt.Errorf("transfer %s has no tx hash", tx.Id)
	}
	if !tx.Amount.IsPositive() {
		return shared.V2PostTransaction{}, fmt.Errorf("transfer %s has non-positive amount %s", tx.Id, tx.Amount)
	}

	post := shared.V2PostTransaction{
		Reference: strPtr(tx.TxHash),
		Script: &shared.V2PostTransactionScript{
			Plain: numscriptTransfer,
			Vars: map[string]string{
				"asset":       j.asset,
				"amount":      toLedgerUnits(tx.Amount, j.decimals).String(),
				"source":      WalletAccount(tx.UserId, tx.WalletId),
				"destination": OutboundAccount,
				"tx_hash":     tx.TxHash,
				"block_hash":  tx.BlockHash,
				"recipient":   tx.Counterparty,
				"record_id":   tx.Id,
			},
		},
	}
	if !tx.CreatedAt.IsZero() {
		ts := tx.CreatedAt
		post.Timestamp = &ts
	}
	return post, nil
}

// WalletOutflow returns the total amount journaled out of a wallet.
func (j *Journal) WalletOutflow(ctx context.Context, userId, walletId string) (decimal.Decimal, error) {
	address := WalletAccount(userId, walletId)
	resp, err := j.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  j.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if hasErrorCode(err, shared.V2ErrorsEnumNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("error reading account %s: %w", address, err)
	}
	vol, ok := resp.V2AccountResponse.Data.Volumes[j.asset]
	if !ok || vol.Output == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(vol.Output, -j.decimals), nil
}

// WalletAccount is the ledger account of a custodial wallet.
func WalletAccount(userId, walletId string) string {
	return "users:" + accountSegment(userId) + ":wallets:" + accountSegment(walletId)
}

// accountSegment maps an id onto the ledger's account segment alphabet.
func accountSegment(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// ledgerAsset returns the Formance UMN notation, e.g. "DOT/10".
func ledgerAsset(symbol string, decimals int32) string {
	return fmt.Sprintf("%s/%d", strings.ToUpper(symbol), decimals)
}

func toLedgerUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

func hasErrorCode(err error, code shared.V2ErrorsEnum) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == code
}

func strPtr(s string) *string { return &s }
