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
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"quickdot-custody-go/internal/common"
	"quickdot-custody-go/internal/config"
	"quickdot-custody-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// readPhrase reads a recovery phrase from stdin without echoing it when
// stdin is a terminal.
func readPhrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Recovery phrase: ")
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("unable to read phrase: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("unable to read phrase: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printWallet(w models.WalletView, symbol string, isLast bool) {
	prefix := common.BoxPrefix(isLast)
	detail := common.BoxDetailPrefix(isLast)
	imported := ""
	if w.IsImported {
		imported = " (imported)"
	}
	fmt.Printf("%s %-20s %20s%s\n", prefix, w.Name, common.FormatAmount(w.Balance, symbol), imported)
	fmt.Printf("%s   id: %s\n", detail, w.Id)
	fmt.Printf("%s   address: %s\n", detail, w.Address)
}

func listWallets(ctx context.Context, services *common.Services, user common.UserInfo) error {
	wallets, err := services.Wallets.ListWallets(ctx, user.Id)
	if err != nil {
		return fmt.Errorf("failed to list wallets: %w", err)
	}

	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  Wallets: %d\n", len(wallets))
	common.PrintBoxSeparator(78)
	for i, w := range wallets {
		printWallet(w, services.Network.Symbol, i == len(wallets)-1)
	}
	return nil
}

func printCreated(result *models.CreateWalletResult, symbol string) {
	fmt.Println()
	common.PrintHeader("WALLET READY", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", result.Wallet.Id)
	fmt.Printf("Name:     %s\n", result.Wallet.Name)
	fmt.Printf("Address:  %s\n", result.Wallet.Address)
	fmt.Printf("Balance:  %s\n", common.FormatAmount(result.Balance.Free, symbol))
	if result.Phrase != "" {
		common.PrintSeparator("-", common.DefaultWidth)
		fmt.Println("Recovery phrase (shown once, store it offline):")
		fmt.Println(result.Phrase)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "User id or email (required)")
	createFlag := flag.String("create", "", "Generate a new wallet with this name")
	importFlag := flag.String("import", "", "Import a wallet with this name; the phrase is read from stdin")
	renameFlag := flag.String("rename", "", "Wallet id to rename (use with --name)")
	nameFlag := flag.String("name", "", "New wallet name for --rename")
	deleteFlag := flag.String("delete", "", "Wallet id to delete")
	balanceFlag := flag.String("balance", "", "Wallet id to read the live balance of")
	flag.Parse()

	if *userFlag == "" {
		logger.Fatal("The --user flag is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := common.InitializeUsers(ctx, services.DbService, *userFlag, logger)
	if err != nil {
		logger.Fatal("Failed to find user", zap.Error(err))
	}
	user := users[0]

	switch {
	case *createFlag != "":
		result, err := services.Wallets.CreateWallet(ctx, user.Id, *createFlag)
		if err != nil {
			logger.Fatal("Failed to create wallet", zap.Error(err))
		}
		printCreated(result, services.Network.Symbol)

	case *importFlag != "":
		phrase, err := readPhrase()
		if err != nil {
			logger.Fatal("Failed to read recovery phrase", zap.Error(err))
		}
		result, err := services.Wallets.ImportWallet(ctx, user.Id, *importFlag, phrase)
		if err != nil {
			logger.Fatal("Failed to import wallet", zap.Error(err))
		}
		printCreated(result, services.Network.Symbol)

	case *renameFlag != "":
		view, err := services.Wallets.RenameWallet(ctx, user.Id, *renameFlag, *nameFlag)
		if err != nil {
			logger.Fatal("Failed to rename wallet", zap.Error(err))
		}
		fmt.Printf("✓ Wallet %s renamed to %q\n", view.Id, view.Name)

	case *deleteFlag != "":
		if err := services.Wallets.DeleteWallet(ctx, user.Id, *deleteFlag); err != nil {
			logger.Fatal("Failed to delete wallet", zap.Error(err))
		}
		fmt.Printf("✓ Wallet %s deleted\n", *deleteFlag)

	case *balanceFlag != "":
		b, err := services.Wallets.GetWalletBalance(ctx, user.Id, *balanceFlag)
		if err != nil {
			logger.Fatal("Failed to read wallet balance", zap.Error(err))
		}
		symbol := services.Network.Symbol
		common.PrintHeader("WALLET BALANCE", common.DefaultWidth)
		fmt.Printf("Free:      %s\n", common.FormatAmount(b.Free, symbol))
		fmt.Printf("Reserved:  %s\n", common.FormatAmount(b.Reserved, symbol))
		fmt.Printf("Frozen:    %s\n", common.FormatAmount(b.Frozen, symbol))
		fmt.Printf("Total:     %s\n", common.FormatAmount(b.Total, symbol))
		common.PrintSeparator("=", common.DefaultWidth)

	default:
		common.PrintHeader("WALLETS", common.DefaultWidth)
		if err := listWallets(ctx, services, user); err != nil {
			logger.Fatal("Failed to list wallets", zap.Error(err))
		}
		common.PrintFooter(fmt.Sprintf("Network: %s", services.Network.Name), common.DefaultWidth)
	}
}
