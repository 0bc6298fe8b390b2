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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database    DatabaseConfig
	Vault       VaultConfig
	Session     SessionConfig
	Identity    IdentityConfig
	Chain       ChainConfig
	RateLimit   RateLimitConfig
	Price       PriceConfig
	Monitor     MonitorConfig
	Formance    FormanceConfig
	NetworkFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	CreateDemoUser  bool
}

// VaultConfig holds the credential vault key-derivation settings
type VaultConfig struct {
	Secret  string
	Salt    string
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// SessionConfig holds internal session token settings
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// IdentityConfig holds external identity provider settings
type IdentityConfig struct {
	ProjectId string
	CertsURL  string
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// ChainConfig holds ledger node connection settings
type ChainConfig struct {
	Backend            string // "rpc" or "memory"
	RPCURL             string
	RequestTimeout     time.Duration
	InclusionTimeout   time.Duration
	StatusPollInterval time.Duration
	MaxPollFailures    int
	MemoryBlockTime    time.Duration
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	StandardMax    int
	StandardWindow time.Duration
	StrictMax      int
	StrictWindow   time.Duration
	Store          string // "memory" or "badger"
	BadgerPath     string
}

// PriceConfig holds reference price feed settings
type PriceConfig struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// MonitorConfig holds background monitor settings
type MonitorConfig struct {
	PollingInterval time.Duration
	CleanupInterval time.Duration
}

// FormanceConfig holds the optional transfer journal settings.
// The journal is disabled when StackURL is empty.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// NetworkConfig describes the ledger network the custody backend targets.
type NetworkConfig struct {
	Name               string `yaml:"name"`
	Symbol             string `yaml:"symbol"`
	Decimals           int32  `yaml:"decimals"`
	DisplayDecimals    int32  `yaml:"display_decimals"`
	AddressHRP         string `yaml:"address_hrp"`
	CoinType           uint32 `yaml:"coin_type"`
	EstimatedFee       string `yaml:"estimated_fee"`
	ExistentialDeposit string `yaml:"existential_deposit"`
}
