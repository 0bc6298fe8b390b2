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

// Transaction directions
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// StatusConfirmed is the only status a transaction record is created with.
const StatusConfirmed = "confirmed"

// Preferences holds a user's display and notification settings
type Preferences struct {
	Currency      string `db:"currency" json:"currency"`
	Theme         string `db:"theme" json:"theme"`
	Language      string `db:"language" json:"language"`
	Notifications bool   `db:"notifications" json:"notifications"`
}

// DefaultPreferences returns the preferences a newly provisioned user starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		Currency:      "USD",
		Theme:         "light",
		Language:      "en",
		Notifications: true,
	}
}

// User represents a user provisioned from the external identity provider.
// Id is the provider's subject id.
type User struct {
	Id          string      `db:"id" json:"id"`
	Email       string      `db:"email" json:"email"`
	DisplayName string      `db:"display_name" json:"display_name"`
	PhotoURL    string      `db:"photo_url" json:"photo_url,omitempty"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// Wallet represents a custodial wallet. EncryptedSecret holds the vault
// envelope of the recovery phrase and is never serialized.
type Wallet struct {
	Id              string    `db:"id" json:"id"`
	UserId          string    `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	Address         string    `db:"address" json:"address"`
	PublicKey       string    `db:"public_key" json:"public_key"`
	EncryptedSecret string    `db:"encrypted_secret" json:"-"`
	Balance         string    `db:"balance" json:"balance"`
	IsImported      bool      `db:"is_imported" json:"is_imported"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (w *Wallet) OwnerId() string { return w.UserId }

// Contact represents an address book entry
type Contact struct {
	Id        string    `db:"id" json:"id"`
	UserId    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (c *Contact) OwnerId() string { return c.UserId }

// Transaction represents an immutable record of a confirmed transfer
type Transaction struct {
	Id             string          `db:"id" json:"id"`
	UserId         string          `db:"user_id" json:"user_id"`
	WalletId       string          `db:"wallet_id" json:"wallet_id"`
	Direction      string          `db:"direction" json:"direction"`
	FromAddress    string          `db:"from_address" json:"from_address"`
	Counterparty   string          `db:"counterparty" json:"counterparty"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	TxHash         string          `db:"tx_hash" json:"tx_hash"`
	BlockHash      string          `db:"block_hash" json:"block_hash"`
	Status         string          `db:"status" json:"status"`
	Note           string          `db:"note" json:"note,omitempty"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

func (t *Transaction) OwnerId() string { return t.UserId }
