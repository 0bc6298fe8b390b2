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

package common

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/api"
	"quickdot-custody-go/internal/balance"
	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/database"
	"quickdot-custody-go/internal/formance"
	"quickdot-custody-go/internal/httpx"
	"quickdot-custody-go/internal/identity"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/monitor"
	"quickdot-custody-go/internal/ownership"
	"quickdot-custody-go/internal/price"
	"quickdot-custody-go/internal/ratelimit"
	"quickdot-custody-go/internal/store"
	"quickdot-custody-go/internal/transfer"
	"quickdot-custody-go/internal/vault"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services holds every long-lived component of the custody backend.
type Services struct {
	Config     *models.Config
	Network    models.NetworkConfig
	DbService  *database.Service
	Chain      chain.Client
	Balances   *balance.Oracle
	Journal    store.Journal
	Submitter  *transfer.Submitter
	Wallets    *api.WalletService
	Standard   *ratelimit.Limiter
	Strict     *ratelimit.Limiter
	limitStore ratelimit.Store
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database, connects to the ledger node and
// assembles the wallet service. Close releases everything it opened.
func InitializeServices(ctx context.Context, cfg *models.Config) (_ *Services, err error) {
	network, err := LoadNetworkConfig(cfg.NetworkFile)
	if err != nil {
		return nil, err
	}
	fee, err := decimal.NewFromString(network.EstimatedFee)
	if err != nil {
		return nil, fmt.Errorf("invalid estimated fee: %w", err)
	}

	svc := &Services{Config: cfg, Network: network}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()

	svc.DbService, err = database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	httpClient, err := httpx.NewClient(cfg.Chain.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}

	svc.Chain = newChainClient(cfg.Chain, network, httpClient)
	svc.Balances = balance.NewOracle(svc.Chain, network.Decimals, network.DisplayDecimals)

	v, err := vault.New(cfg.Vault.Secret, cfg.Vault.Salt, vault.Params{
		Time:    cfg.Vault.Time,
		Memory:  cfg.Vault.Memory,
		Threads: cfg.Vault.Threads,
	})
	if err != nil {
		return nil, err
	}
	deriver := account.NewDeriver(network.AddressHRP, network.CoinType)

	svc.Journal, err = newJournal(ctx, cfg.Formance, network)
	if err != nil {
		return nil, err
	}

	svc.limitStore, err = newLimitStore(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	svc.Standard = ratelimit.NewLimiter(ratelimit.Policy{
		Name:   "standard",
		Max:    cfg.RateLimit.StandardMax,
		Window: cfg.RateLimit.StandardWindow,
	}, svc.limitStore)
	svc.Strict = ratelimit.NewLimiter(ratelimit.Policy{
		Name:   "strict",
		Max:    cfg.RateLimit.StrictMax,
		Window: cfg.RateLimit.StrictWindow,
	}, svc.limitStore)

	bridge, err := newBridge(cfg, svc.DbService, httpClient)
	if err != nil {
		return nil, err
	}

	guard := ownership.Guard{}
	svc.Submitter = transfer.NewSubmitter(transfer.Deps{
		Wallets:      svc.DbService,
		Transactions: svc.DbService,
		Chain:        svc.Chain,
		Balances:     svc.Balances,
		Deriver:      deriver,
		Vault:        v,
		Journal:      svc.Journal,
		Guard:        guard,
		Fee:          fee,
	})

	svc.Wallets, err = api.NewWalletService(api.Deps{
		Store:     svc.DbService,
		Chain:     svc.Chain,
		Balances:  svc.Balances,
		Deriver:   deriver,
		Vault:     v,
		Submitter: svc.Submitter,
		Bridge:    bridge,
		Prices:    price.NewOracle(cfg.Price, httpClient),
		Guard:     guard,
		Standard:  svc.Standard,
		Strict:    svc.Strict,
		Network:   network,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Custody services initialized",
		zap.String("network", network.Name),
		zap.String("chain_backend", cfg.Chain.Backend),
		zap.String("rate_limit_store", cfg.RateLimit.Store),
		zap.Bool("identity", bridge != nil),
		zap.Bool("journal", cfg.Formance.StackURL != ""))

	return svc, nil
}

// InitializeDatabaseOnly initializes just the database service without a node connection
// Useful for read-only operations like listing users
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

// NewMonitor builds the background balance monitor over the initialized services.
func (cs *Services) NewMonitor() (*monitor.Monitor, error) {
	return monitor.New(monitor.Config{
		Wallets:         cs.DbService,
		Chain:           cs.Chain,
		Balances:        cs.Balances,
		Limiters:        []*ratelimit.Limiter{cs.Standard, cs.Strict},
		PollingInterval: cs.Config.Monitor.PollingInterval,
		CleanupInterval: cs.Config.Monitor.CleanupInterval,
	})
}

func (cs *Services) Close() {
	if cs.Chain != nil {
		if err := cs.Chain.Close(); err != nil {
			zap.L().Warn("Failed to close chain client", zap.Error(err))
		}
	}
	if cs.limitStore != nil {
		if err := cs.limitStore.Close(); err != nil {
			zap.L().Warn("Failed to close rate limit store", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func newChainClient(cfg models.ChainConfig, network models.NetworkConfig, httpClient *http.Client) chain.Client {
	if cfg.Backend == "memory" {
		zap.L().Warn("Using in-memory ledger backend; balances and transfers are not real")
		return chain.NewMemory(network.AddressHRP, cfg.MemoryBlockTime)
	}
	return chain.NewRPCClient(chain.RPCConfig{
		URL:                cfg.RPCURL,
		RequestTimeout:     cfg.RequestTimeout,
		InclusionTimeout:   cfg.InclusionTimeout,
		StatusPollInterval: cfg.StatusPollInterval,
		MaxPollFailures:    cfg.MaxPollFailures,
	}, httpClient)
}

func newJournal(ctx context.Context, cfg models.FormanceConfig, network models.NetworkConfig) (store.Journal, error) {
	if cfg.StackURL == "" {
		return store.NopJournal{}, nil
	}
	journal, err := formance.NewJournal(ctx, cfg, network)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize transfer journal: %w", err)
	}
	return journal, nil
}

func newLimitStore(cfg models.RateLimitConfig) (ratelimit.Store, error) {
	if cfg.Store == "badger" {
		s, err := ratelimit.NewBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("unable to open rate limit store: %w", err)
		}
		return s, nil
	}
	return ratelimit.NewMemoryStore(), nil
}

// newBridge returns nil when no identity provider is configured; the wallet
// service then rejects Authenticate.
func newBridge(cfg *models.Config, users store.UserStore, httpClient *http.Client) (*identity.Bridge, error) {
	if cfg.Identity.ProjectId == "" {
		zap.L().Warn("No identity provider configured, sign-in is disabled")
		return nil, nil
	}
	verifier, err := identity.NewCertVerifier(cfg.Identity, httpClient)
	if err != nil {
		return nil, err
	}
	sessions, err := identity.NewSessionIssuer(cfg.Session)
	if err != nil {
		return nil, err
	}
	return identity.NewBridge(verifier, users, sessions), nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
