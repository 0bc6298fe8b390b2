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

package database

const (
	// User queries
	userColumns = `id, email, display_name, photo_url, currency, theme, language, notifications, created_at, updated_at`

	queryInsertUser = `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertUserIgnore = `
		INSERT OR IGNORE INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ?`

	queryListUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at, id`

	queryUpdateProfile = `
		UPDATE users SET display_name = ?, photo_url = ?, updated_at = ?
		WHERE id = ?`

	queryUpdatePreferences = `
		UPDATE users SET currency = ?, theme = ?, language = ?, notifications = ?, updated_at = ?
		WHERE id = ?`

	queryUserStats = `
		SELECT
			(SELECT COUNT(*) FROM wallets WHERE user_id = ?),
			(SELECT COUNT(*) FROM transactions WHERE user_id = ?),
			(SELECT COUNT(*) FROM contacts WHERE user_id = ?)`

	// Wallet queries
	queryInsertWallet = `
		INSERT INTO wallets (id, user_id, name, address, public_key, encrypted_secret, balance, is_imported, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetWalletById = `
		SELECT id, user_id, name, address, public_key, encrypted_secret, balance, is_imported, created_at, updated_at
		FROM wallets
		WHERE id = ?`

	// List reads never select encrypted_secret.
	walletListColumns = `id, user_id, name, address, public_key, balance, is_imported, created_at, updated_at`

	queryListWalletsByUser = `
		SELECT ` + walletListColumns + `
		FROM wallets
		WHERE user_id = ?
		ORDER BY created_at, id`

	queryListAllWallets = `
		SELECT ` + walletListColumns + `
		FROM wallets
		ORDER BY user_id, created_at, id`

	queryRenameWallet = `
		UPDATE wallets SET name = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	queryDeleteWallet = `
		DELETE FROM wallets WHERE id = ? AND user_id = ?`

	queryUpdateWalletBalance = `
		UPDATE wallets SET balance = ?, updated_at = ?
		WHERE id = ?`

	// Contact queries
	contactColumns = `id, user_id, name, address, note, created_at, updated_at`

	queryInsertContact = `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryGetContactById = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE id = ?`

	queryListContactsByUser = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = ?
		ORDER BY name COLLATE NOCASE, id`

	querySearchContacts = `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE user_id = ? AND (name LIKE ? ESCAPE '\' OR address LIKE ? ESCAPE '\')
		ORDER BY name COLLATE NOCASE, id`

	queryUpdateContact = `
		UPDATE contacts SET name = ?, address = ?, note = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	queryDeleteContact = `
		DELETE FROM contacts WHERE id = ? AND user_id = ?`

	// Transaction queries
	transactionColumns = `id, user_id, wallet_id, direction, from_address, counterparty, amount, tx_hash, block_hash, status, note, idempotency_key, created_at`

	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetTransactionById = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ?`

	queryGetTransactionByIdempotencyKey = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ? AND idempotency_key = ?`

	queryListTransactions = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	queryTransactionAmounts = `
		SELECT direction, amount
		FROM transactions
		WHERE user_id = ?`
)
