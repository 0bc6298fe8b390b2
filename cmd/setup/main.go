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

	"go.uber.org/zap"
)

// checkServices connects to the ledger node and verifies both backends respond
func checkServices(ctx context.Context, services *common.Services) error {
	if err := services.Wallets.HealthCheck(ctx); err != nil {
		return err
	}

	stats, err := services.Wallets.NetworkStats(ctx)
	if err != nil {
		return fmt.Errorf("unable to read network stats: %w", err)
	}
	zap.L().Info("Ledger node reachable",
		zap.String("network", stats.Network),
		zap.Uint64("block_number", stats.BlockNumber),
		zap.Int("peers", stats.Peers))
	return nil
}

func printNetwork(services *common.Services) {
	n := services.Network
	common.PrintHeader("NETWORK", common.DefaultWidth)
	fmt.Printf("Name:             %s\n", n.Name)
	fmt.Printf("Symbol:           %s\n", n.Symbol)
	fmt.Printf("Decimals:         %d (display %d)\n", n.Decimals, n.DisplayDecimals)
	fmt.Printf("Address prefix:   %s\n", n.AddressHRP)
	fmt.Printf("Coin type:        %d\n", n.CoinType)
	fmt.Printf("Estimated fee:    %s\n", common.FormatAmount(n.EstimatedFee, n.Symbol))
	fmt.Printf("Existential dep.: %s\n", common.FormatAmount(n.ExistentialDeposit, n.Symbol))
	common.PrintSeparator("=", common.DefaultWidth)
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	checkFlag := flag.Bool("check", false, "Also connect to the ledger node and run a health check")
	demoFlag := flag.Bool("demo", false, "Create the demo user if it does not exist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	if *demoFlag {
		cfg.Database.CreateDemoUser = true
	}

	// Opening the database applies any pending migrations
	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	users, err := services.DbService.ListUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users from database", zap.Error(err))
	}
	zap.L().Info("Database ready", zap.Int("users", len(users)))

	printNetwork(services)

	if *checkFlag {
		if err := checkServices(ctx, services); err != nil {
			zap.L().Fatal("Health check failed", zap.Error(err))
		}
		fmt.Println("✓ Database and ledger node are healthy")
	}

	zap.L().Info("Initialization complete")
}
