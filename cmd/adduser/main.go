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
	"regexp"

	"quickdot-custody-go/internal/common"
	"quickdot-custody-go/internal/config"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// createFirstWallet generates a wallet for the new user and prints its
// recovery phrase. The phrase is not retrievable afterwards.
func createFirstWallet(ctx context.Context, services *common.Services, userId, name string) {
	result, err := services.Wallets.CreateWallet(ctx, userId, name)
	if err != nil {
		zap.L().Error("Failed to create wallet", zap.String("user_id", userId), zap.Error(err))
		fmt.Println("User created but the first wallet could not be generated")
		fmt.Println("Retry with: go run cmd/wallets/main.go --user <id> --create <name>")
		return
	}

	fmt.Println()
	common.PrintHeader("WALLET CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", result.Wallet.Id)
	fmt.Printf("Name:     %s\n", result.Wallet.Name)
	fmt.Printf("Address:  %s\n", result.Wallet.Address)
	fmt.Printf("Balance:  %s\n", common.FormatAmount(result.Balance.Free, services.Network.Symbol))
	common.PrintSeparator("-", common.DefaultWidth)
	fmt.Println("Recovery phrase (shown once, store it offline):")
	fmt.Println(result.Phrase)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	nameFlag := flag.String("name", "", "User's display name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	walletFlag := flag.String("wallet", "", "Name of a first wallet to generate for the user (optional)")
	currencyFlag := flag.String("currency", "", "Preferred fiat currency, e.g. EUR (optional)")
	flag.Parse()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}
	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}
	if err := validateEmail(*emailFlag); err != nil {
		zap.L().Fatal("Invalid email", zap.Error(err))
	}

	zap.L().Info("Starting user creation process",
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag))

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	existing, err := common.InitializeUsers(ctx, services.DbService, *emailFlag, zap.L())
	if err == nil && len(existing) > 0 {
		zap.L().Fatal("User already exists with this email",
			zap.String("email", *emailFlag),
			zap.String("id", existing[0].Id))
	}

	user := &models.User{
		Id:          uuid.New().String(),
		Email:       *emailFlag,
		DisplayName: *nameFlag,
		Preferences: models.DefaultPreferences(),
	}
	if err := services.DbService.CreateUser(ctx, user); err != nil {
		if errors.Is(err, errs.ErrInvalidInput) {
			zap.L().Fatal("User already exists", zap.String("id", user.Id))
		}
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	if *currencyFlag != "" {
		prefs := user.Preferences
		prefs.Currency = *currencyFlag
		if _, err := services.Wallets.UpdateSettings(ctx, user.Id, prefs); err != nil {
			zap.L().Error("Failed to set preferred currency", zap.String("currency", *currencyFlag), zap.Error(err))
		}
	}
	if profile, err := services.Wallets.GetProfile(ctx, user.Id); err == nil {
		user = profile
	}

	fmt.Println()
	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:       %s\n", user.Id)
	fmt.Printf("Name:     %s\n", user.DisplayName)
	fmt.Printf("Email:    %s\n", user.Email)
	fmt.Printf("Currency: %s\n", user.Preferences.Currency)
	common.PrintSeparator("=", common.DefaultWidth)

	zap.L().Info("User created successfully", zap.String("id", user.Id))

	if *walletFlag != "" {
		createFirstWallet(ctx, services, user.Id, *walletFlag)
	}
}
