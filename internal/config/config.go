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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"quickdot-custody-go/internal/models"
)

const minSecretLength = 16

type durationVar struct {
	key        string
	defaultVal time.Duration
	dst        *time.Duration
}

func Load() (*models.Config, error) {
	cfg := &models.Config{}

	durations := []durationVar{
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Database.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", 5 * time.Second, &cfg.Database.PingTimeout},
		{"SESSION_TTL", time.Hour, &cfg.Session.TTL},
		{"IDENTITY_CERT_CACHE_TTL", time.Hour, &cfg.Identity.CacheTTL},
		{"IDENTITY_TIMEOUT", 10 * time.Second, &cfg.Identity.Timeout},
		{"CHAIN_REQUEST_TIMEOUT", 15 * time.Second, &cfg.Chain.RequestTimeout},
		{"CHAIN_INCLUSION_TIMEOUT", 2 * time.Minute, &cfg.Chain.InclusionTimeout},
		{"CHAIN_STATUS_POLL_INTERVAL", 2 * time.Second, &cfg.Chain.StatusPollInterval},
		{"CHAIN_MEMORY_BLOCK_TIME", 500 * time.Millisecond, &cfg.Chain.MemoryBlockTime},
		{"RATE_LIMIT_STANDARD_WINDOW", 15 * time.Minute, &cfg.RateLimit.StandardWindow},
		{"RATE_LIMIT_STRICT_WINDOW", 5 * time.Minute, &cfg.RateLimit.StrictWindow},
		{"PRICE_TIMEOUT", 5 * time.Second, &cfg.Price.Timeout},
		{"PRICE_CACHE_TTL", time.Minute, &cfg.Price.CacheTTL},
		{"MONITOR_POLLING_INTERVAL", 30 * time.Second, &cfg.Monitor.PollingInterval},
		{"MONITOR_CLEANUP_INTERVAL", time.Minute, &cfg.Monitor.CleanupInterval},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.defaultVal)
		if err != nil {
			return nil, err
		}
		*d.dst = value
	}

	cfg.Database.Path = getEnvString("DATABASE_PATH", "custody.db")
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.Database.CreateDemoUser = getEnvBool("CREATE_DEMO_USER", false)

	cfg.Vault = models.VaultConfig{
		Secret:  os.Getenv("VAULT_SECRET"),
		Salt:    getEnvString("VAULT_SALT", "quickdot-vault-v1"),
		Time:    uint32(getEnvInt("VAULT_KDF_TIME", 1)),
		Memory:  uint32(getEnvInt("VAULT_KDF_MEMORY_KIB", 64*1024)),
		Threads: uint8(getEnvInt("VAULT_KDF_THREADS", 4)),
	}

	cfg.Session.Secret = os.Getenv("SESSION_SECRET")
	cfg.Session.Issuer = getEnvString("SESSION_ISSUER", "quickdot-custody")

	cfg.Identity.ProjectId = os.Getenv("IDENTITY_PROJECT_ID")
	cfg.Identity.CertsURL = getEnvString("IDENTITY_CERTS_URL",
		"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com")

	cfg.Chain.Backend = getEnvString("CHAIN_BACKEND", "rpc")
	cfg.Chain.RPCURL = getEnvString("CHAIN_RPC_URL", "http://127.0.0.1:9933")
	cfg.Chain.MaxPollFailures = getEnvInt("CHAIN_MAX_POLL_FAILURES", 5)

	cfg.RateLimit.StandardMax = getEnvInt("RATE_LIMIT_STANDARD_MAX", 100)
	cfg.RateLimit.StrictMax = getEnvInt("RATE_LIMIT_STRICT_MAX", 10)
	cfg.RateLimit.Store = getEnvString("RATE_LIMIT_STORE", "memory")
	cfg.RateLimit.BadgerPath = getEnvString("RATE_LIMIT_BADGER_PATH", "ratelimit.badger")

	cfg.Price.URL = getEnvString("PRICE_URL",
		"https://api.coingecko.com/api/v3/simple/price?ids=polkadot&vs_currencies=usd,eur,gbp&include_24hr_change=true")

	cfg.Formance = models.FormanceConfig{
		StackURL:     os.Getenv("FORMANCE_STACK_URL"),
		ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
		ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
		LedgerName:   getEnvString("FORMANCE_LEDGER", "quickdot-custody"),
	}

	cfg.NetworkFile = getEnvString("NETWORK_FILE", "network.yaml")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	if len(cfg.Vault.Secret) < minSecretLength {
		return fmt.Errorf("VAULT_SECRET must be set and at least %d characters", minSecretLength)
	}
	if len(cfg.Session.Secret) < minSecretLength {
		return fmt.Errorf("SESSION_SECRET must be set and at least %d characters", minSecretLength)
	}
	if cfg.Vault.Salt == "" {
		return fmt.Errorf("VAULT_SALT cannot be empty")
	}
	switch cfg.Chain.Backend {
	case "rpc", "memory":
	default:
		return fmt.Errorf("invalid CHAIN_BACKEND %q (want rpc or memory)", cfg.Chain.Backend)
	}
	switch cfg.RateLimit.Store {
	case "memory", "badger":
	default:
		return fmt.Errorf("invalid RATE_LIMIT_STORE %q (want memory or badger)", cfg.RateLimit.Store)
	}
	if cfg.RateLimit.StandardMax <= 0 || cfg.RateLimit.StrictMax <= 0 {
		return fmt.Errorf("rate limit maximums must be positive")
	}
	if cfg.RateLimit.StrictMax > cfg.RateLimit.StandardMax {
		return fmt.Errorf("strict rate limit (%d) cannot exceed standard limit (%d)",
			cfg.RateLimit.StrictMax, cfg.RateLimit.StandardMax)
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
