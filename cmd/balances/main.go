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
	"flag"
	"fmt"

	"quickdot-custody-go/internal/common"
	"quickdot-custody-go/internal/config"
	"quickdot-custody-go/internal/formance"
	"quickdot-custody-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers       int
	totalWallets     int
	usersWithWallets int
	skippedWallets   int
}

func printShare(share models.WalletShare, symbol string, isLast bool) {
	fmt.Printf("%s %-20s: %20s (%6s%%, %s)\n",
		common.BoxPrefix(isLast),
		share.Name,
		common.FormatAmount(share.Balance.StringFixed(4), symbol),
		share.Percentage,
		common.ShortAddress(share.Address))
}

// printJournaled shows the amount the ledger journal recorded as sent from the wallet
func printJournaled(ctx context.Context, journal *formance.Journal, userId string, share models.WalletShare, symbol string, isLast bool) {
	sent, err := journal.WalletOutflow(ctx, userId, share.WalletId)
	if err != nil {
		zap.L().Warn("Failed to read journaled outflow",
			zap.String("wallet_id", share.WalletId),
			zap.Error(err))
		return
	}
	fmt.Printf("%s   journaled sent: %s\n", common.BoxDetailPrefix(isLast), common.FormatAmount(sent.StringFixed(4), symbol))
}

func printUserHeader(user common.UserInfo, overview *models.PortfolioOverview, symbol string) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Wallets: %d   Total: %s\n", overview.WalletCount, common.FormatAmount(overview.Total, symbol))
	fmt.Printf("│  Value: USD %s  EUR %s  GBP %s\n",
		overview.Values["USD"], overview.Values["EUR"], overview.Values["GBP"])
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, services *common.Services, user common.UserInfo) (*models.PortfolioOverview, error) {
	overview, err := services.Wallets.PortfolioOverview(ctx, user.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to value portfolio: %w", err)
	}
	if overview.WalletCount == 0 {
		return overview, nil
	}

	symbol := services.Network.Symbol
	printUserHeader(user, overview, symbol)
	if stats, err := services.Wallets.GetTransactionStats(ctx, user.Id); err == nil {
		fmt.Printf("│  Sent: %s in %d transfers (avg %s)\n",
			common.FormatAmount(stats.TotalSent, symbol), stats.SentCount, stats.AverageSent)
		common.PrintBoxSeparator(78)
	}
	journal, _ := services.Journal.(*formance.Journal)
	for i, share := range overview.Wallets {
		isLast := i == len(overview.Wallets)-1
		printShare(share, symbol, isLast)
		if journal != nil {
			printJournaled(ctx, journal, user.Id, share, symbol, isLast)
		}
	}
	return overview, nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, services *common.Services, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		overview, err := processUser(ctx, services, user)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if overview.WalletCount > 0 {
			stats.usersWithWallets++
			stats.totalWallets += overview.WalletCount
			stats.skippedWallets += overview.SkippedCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	userFlag := flag.String("user", "", "Filter by user id or email (optional)")
	flag.Parse()

	logger.Info("Starting portfolio report")

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
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	price := services.Wallets.GetPrice(ctx)
	common.PrintHeader(fmt.Sprintf("PORTFOLIO REPORT (%s @ USD %s)", services.Network.Symbol, price.USD.StringFixed(2)), common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, services, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with wallets (%d wallets, %d unreadable, %d users queried)",
		stats.usersWithWallets, stats.totalWallets, stats.skippedWallets, stats.totalUsers)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Portfolio report completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_wallets", stats.usersWithWallets),
		zap.Int("total_wallets", stats.totalWallets))
}
