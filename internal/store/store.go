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

package store

import (
	"context"

	"quickdot-custody-go/internal/models"

	"github.com/shopspring/decimal"
)

// UserStore persists users provisioned by the identity bridge.
type UserStore interface {
	GetUser(ctx context.Context, userId string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userId, displayName, photoURL string) (*models.User, error)
	UpdatePreferences(ctx context.Context, userId string, prefs models.Preferences) (*models.User, error)
	GetUserStats(ctx context.Context, userId string) (models.UserStats, error)
}

// WalletStore persists custodial wallets. GetWallet is the only read that
// returns the encrypted secret; list reads never select it.
type WalletStore interface {
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	GetWallet(ctx context.Context, walletId string) (*models.Wallet, error)
	ListWallets(ctx context.Context, userId string) ([]*models.Wallet, error)
	ListAllWallets(ctx context.Context) ([]*models.Wallet, error)
	RenameWallet(ctx context.Context, userId, walletId, name string) error
	DeleteWallet(ctx context.Context, userId, walletId string) error
	UpdateWalletBalance(ctx context.Context, walletId, balance string) error
}

// ContactStore persists address book entries.
type ContactStore interface {
	CreateContact(ctx context.Context, contact *models.Contact) error
	GetContact(ctx context.Context, contactId string) (*models.Contact, error)
	ListContacts(ctx context.Context, userId string) ([]*models.Contact, error)
	SearchContacts(ctx context.Context, userId, query string) ([]*models.Contact, error)
	UpdateContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, userId, contactId string) error
}

// TransactionStore persists append-only transfer records.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	GetTransactionByIdempotencyKey(ctx context.Context, userId, key string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userId string, limit int) ([]*models.Transaction, error)
	GetTransactionTotals(ctx context.Context, userId string) (TransactionTotals, error)
}

// TransactionTotals aggregates a user's transfer amounts by direction.
type TransactionTotals struct {
	SentCount     int
	SentTotal     decimal.Decimal
	ReceivedCount int
	ReceivedTotal decimal.Decimal
}

// CustodyStore is the full persistence contract of the custody backend.
type CustodyStore interface {
	UserStore
	WalletStore
	ContactStore
	TransactionStore
	Close()
}

// Journal mirrors confirmed transfers into an external accounting ledger.
// Failures never undo a confirmed transfer.
type Journal interface {
	RecordTransfer(ctx context.Context, tx *models.Transaction) error
}

// NopJournal discards every entry.
type NopJournal struct{}

func (NopJournal) RecordTransfer(context.Context, *models.Transaction) error { return nil }
