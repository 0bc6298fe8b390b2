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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"quickdot-custody-go/internal/api"
	"quickdot-custody-go/internal/common"
	"quickdot-custody-go/internal/config"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validateFlags(user, walletId, to, amount string) error {
	if user == "" || walletId == "" || to == "" || amount == "" {
		return fmt.Errorf("flags --user, --wallet, --to and --amount are required")
	}
	return nil
}

func printEstimate(estimate *models.FeeEstimate, symbol string) {
	common.PrintHeader("FEE ESTIMATE", common.DefaultWidth)
	fmt.Printf("Amount:   %s\n", common.FormatAmount(estimate.Amount, symbol))
	fmt.Printf("Fee:      %s\n", common.FormatAmount(estimate.Fee, symbol))
	fmt.Printf("Total:    %s\n", common.FormatAmount(estimate.Total, symbol))
	common.PrintSeparator("=", common.DefaultWidth)
}

func printReceipt(receipt *models.TransferResult, symbol string) {
	title := "TRANSFER CONFIRMED"
	if receipt.Replayed {
		title = "TRANSFER ALREADY SUBMITTED"
	}
	common.PrintHeader(title, common.DefaultWidth)
	fmt.Printf("Tx Hash:     %s\n", receipt.TxHash)
	fmt.Printf("Block Hash:  %s\n", receipt.BlockHash)
	if tx := receipt.Transaction; tx != nil {
		fmt.Printf("Record ID:   %s\n", tx.Id)
		fmt.Printf("From:        %s\n", tx.FromAddress)
		fmt.Printf("To:          %s\n", tx.Counterparty)
		fmt.Printf("Amount:      %s\n", common.FormatAmount(tx.Amount.String(), symbol))
		fmt.Printf("Status:      %s\n", tx.Status)
		if tx.IdempotencyKey != "" {
			fmt.Printf("Key:         %s\n", tx.IdempotencyKey)
		}
	}
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or email (required)")
	walletFlag := flag.String("wallet", "", "Source wallet id (required)")
	toFlag := flag.String("to", "", "Destination address (required)")
	amountFlag := flag.String("amount", "", "Amount in display units, e.g. 1.25 (required)")
	noteFlag := flag.String("note", "", "Optional note stored with the transaction")
	keyFlag := flag.String("key", "", "Idempotency key (default: random uuid)")
	estimateFlag := flag.Bool("estimate", false, "Only print the fee estimate")
	flag.Parse()

	if err := validateFlags(*userFlag, *walletFlag, *toFlag, *amountFlag); err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.DbService, *userFlag, zap.L())
	if err != nil {
		zap.L().Fatal("Failed to find user", zap.Error(err))
	}
	userId := users[0].Id
	symbol := services.Network.Symbol

	estimate, err := services.Wallets.EstimateFee(ctx, userId, *walletFlag, *toFlag, *amountFlag)
	if err != nil {
		zap.L().Fatal("Failed to estimate fee", zap.Error(err))
	}
	printEstimate(estimate, symbol)
	if *estimateFlag {
		return
	}

	key := *keyFlag
	if key == "" {
		key = uuid.New().String()
	}

	zap.L().Info("Submitting transfer",
		zap.String("user_id", userId),
		zap.String("wallet_id", *walletFlag),
		zap.String("to", *toFlag),
		zap.String("amount", *amountFlag),
		zap.String("idempotency_key", key))

	receipt, err := services.Wallets.SendTransfer(ctx, userId, api.SendRequest{
		WalletId:       *walletFlag,
		To:             *toFlag,
		Amount:         *amountFlag,
		Note:           *noteFlag,
		IdempotencyKey: key,
	})
	if err != nil {
		var limited *errs.RateLimitedError
		switch {
		case errors.As(err, &limited):
			zap.L().Fatal("Transfer rate limit reached", zap.Int("retry_after_seconds", limited.RetryAfterSeconds()))
		case errors.Is(err, errs.ErrInsufficientBalance):
			zap.L().Fatal("Insufficient free balance", zap.Error(err))
		default:
			zap.L().Fatal("Transfer failed", zap.String("idempotency_key", key), zap.Error(err))
		}
	}

	fmt.Println()
	printReceipt(receipt, symbol)
}
