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

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"quickdot-custody-go/internal/errs"

	"golang.org/x/crypto/argon2"
)

const (
	keyLength   = 32
	nonceLength = 12
)

// Params configures the argon2id key derivation.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams returns the derivation cost used when nothing is configured.
func DefaultParams() Params {
	return Params{Time: 1, Memory: 64 * 1024, Threads: 4}
}

// Vault encrypts recovery phrases at rest. The key is derived once from the
// server-held master secret and never leaves the struct.
type Vault struct {
	aead cipher.AEAD
}

// New derives the vault key from secret and salt.
func New(secret, salt string, params Params) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault secret cannot be empty")
	}
	if salt == "" {
		return nil, fmt.Errorf("vault salt cannot be empty")
	}
	if params.Time == 0 || params.Memory == 0 || params.Threads == 0 {
		params = DefaultParams()
	}

	key := argon2.IDKey([]byte(secret), []byte(salt), params.Time, params.Memory, params.Threads, keyLength)
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("unable to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("unable to create gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// envelope "<nonceHex>:<cipherHex>".
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}

	pt := []byte(plaintext)
	defer wipe(pt)

	ciphertext := v.aead.Seal(nil, nonce, pt, nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt opens an envelope produced by Encrypt. Malformed envelopes, wrong
// keys and tampered data all fail with errs.ErrCorruptEnvelope.
func (v *Vault) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", errs.ErrCorruptEnvelope
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceLength {
		return "", errs.ErrCorruptEnvelope
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil || len(ciphertext) < v.aead.Overhead() {
		return "", errs.ErrCorruptEnvelope
	}

	pt, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errs.ErrCorruptEnvelope
	}
	defer wipe(pt)

	return string(pt), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
