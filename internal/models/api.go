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

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a wallet balance at display precision
type Balance struct {
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
	Frozen   string `json:"frozen"`
	Total    string `json:"total"`
}

// WalletView is the outward shape of a wallet; it carries no secret material
type WalletView struct {
	Id         string    `json:"id"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	PublicKey  string    `json:"public_key"`
	Balance    string    `json:"balance"`
	IsImported bool      `json:"is_imported"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewWalletView strips secret material from a wallet
func NewWalletView(w *Wallet) WalletView {
	return WalletView{
		Id:         w.Id,
		Name:       w.Name,
		Address:    w.Address,
		PublicKey:  w.PublicKey,
		Balance:    w.Balance,
		IsImported: w.IsImported,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

// CreateWalletResult is returned once at wallet creation. Phrase is only set
// when the phrase was generated server-side.
type CreateWalletResult struct {
	Wallet  WalletView `json:"wallet"`
	Balance Balance    `json:"balance"`
	Phrase  string     `json:"phrase,omitempty"`
}

// TransferResult represents the outcome of a confirmed transfer
type TransferResult struct {
	TxHash      string       `json:"tx_hash"`
	BlockHash   string       `json:"block_hash"`
	Transaction *Transaction `json:"transaction"`
	Replayed    bool         `json:"replayed"`
}

// FeeEstimate represents an estimated network fee for a transfer
type FeeEstimate struct {
	Fee    string `json:"fee"`
	Amount string `json:"amount"`
	Total  string `json:"total"`
}

// TransactionStats summarizes a user's transfer history
type TransactionStats struct {
	TotalTransactions int    `json:"total_transactions"`
	TotalSent         string `json:"total_sent"`
	TotalReceived     string `json:"total_received"`
	SentCount         int    `json:"sent_count"`
	ReceivedCount     int    `json:"received_count"`
	AverageSent       string `json:"average_sent"`
	AverageReceived   string `json:"average_received"`
}

// UserStats counts a user's records
type UserStats struct {
	WalletCount      int `json:"wallet_count"`
	TransactionCount int `json:"transaction_count"`
	ContactCount     int `json:"contact_count"`
}

// WalletShare is one wallet's slice of an aggregated portfolio
type WalletShare struct {
	WalletId   string          `json:"wallet_id"`
	Name       string          `json:"name"`
	Address    string          `json:"address"`
	Balance    decimal.Decimal `json:"balance"`
	Percentage string          `json:"percentage"`
}

// Portfolio aggregates balances across a user's wallets. FailedWallets lists
// wallets whose balance could not be read; they are excluded from Total.
type Portfolio struct {
	Total         decimal.Decimal `json:"total"`
	Wallets       []WalletShare   `json:"wallets"`
	FailedWallets []string        `json:"failed_wallets,omitempty"`
}

// PortfolioOverview values a portfolio in fiat currencies
type PortfolioOverview struct {
	Total        string            `json:"total"`
	Values       map[string]string `json:"values"`
	WalletCount  int               `json:"wallet_count"`
	Wallets      []WalletShare     `json:"wallets"`
	Price        Price             `json:"price"`
	SkippedCount int               `json:"skipped_count"`
}

// PortfolioPerformance summarizes flows against the current holdings
type PortfolioPerformance struct {
	Current                string `json:"current"`
	CurrentValue           string `json:"current_value"`
	Currency               string `json:"currency"`
	TotalReceived          string `json:"total_received"`
	TotalSent              string `json:"total_sent"`
	NetFlow                string `json:"net_flow"`
	TransactionCount       int    `json:"transaction_count"`
	AverageTransactionSize string `json:"average_transaction_size"`
}

// Price is a reference price for the network token
type Price struct {
	USD       decimal.Decimal `json:"usd"`
	EUR       decimal.Decimal `json:"eur"`
	GBP       decimal.Decimal `json:"gbp"`
	Change24h decimal.Decimal `json:"change_24h"`
	Source    string          `json:"source"` // "live" or "fallback"
	FetchedAt time.Time       `json:"fetched_at"`
}

// In returns the price in the given fiat currency and whether it is known
func (p Price) In(currency string) (decimal.Decimal, bool) {
	switch currency {
	case "USD":
		return p.USD, true
	case "EUR":
		return p.EUR, true
	case "GBP":
		return p.GBP, true
	default:
		return decimal.Zero, false
	}
}

// NetworkStats describes the current state of the ledger network
type NetworkStats struct {
	Network     string    `json:"network"`
	BlockNumber uint64    `json:"block_number"`
	BlockHash   string    `json:"block_hash"`
	BlockTime   time.Time `json:"block_time"`
	Peers       int       `json:"peers"`
	IsSyncing   bool      `json:"is_syncing"`
	Healthy     bool      `json:"healthy"`
}

// Session is an issued internal session credential
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
