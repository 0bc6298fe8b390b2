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

package account

import (
	"encoding/hex"
	"fmt"
	"strings"

	"quickdot-custody-go/internal/errs"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"github.com/zeebo/blake3"
)

const (
	// PhraseEntropyBits yields 12-word recovery phrases.
	PhraseEntropyBits = 128

	// AddressSize is the number of public-key hash bytes in an address.
	AddressSize = 20

	purposeBIP44 = bip32.FirstHardenedChild + 44
)

// Account is the public half of a derived wallet key.
type Account struct {
	Address   string
	PublicKey string
}

// GeneratePhrase creates a new 12-word BIP-39 recovery phrase.
func GeneratePhrase() (string, error) {
	entropy, err := bip39.NewEntropy(PhraseEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return phrase, nil
}

// NormalizePhrase lower-cases a phrase and collapses its whitespace.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

// ValidatePhrase checks word list membership and checksum.
func ValidatePhrase(phrase string) bool {
	normalized := NormalizePhrase(phrase)
	if normalized == "" {
		return false
	}
	return bip39.IsMnemonicValid(normalized)
}

// Deriver derives accounts for one network (address HRP and BIP-44 coin type).
type Deriver struct {
	hrp      string
	coinType uint32
}

func NewDeriver(hrp string, coinType uint32) *Deriver {
	return &Deriver{hrp: strings.ToLower(hrp), coinType: coinType}
}

// HRP returns the network's address prefix.
func (d *Deriver) HRP() string {
	return d.hrp
}

// Derive returns the address and public key for a phrase. The same phrase
// always yields the same account.
func (d *Deriver) Derive(phrase string) (Account, error) {
	key, err := d.SigningKey(phrase)
	if err != nil {
		return Account{}, err
	}
	defer key.Zero()

	addr, err := key.Address()
	if err != nil {
		return Account{}, err
	}
	return Account{
		Address:   addr,
		PublicKey: hex.EncodeToString(key.PublicKey()),
	}, nil
}

// SigningKey derives the private key at m/44'/coinType'/0'/0/0. Callers must
// Zero the key when done.
func (d *Deriver) SigningKey(phrase string) (*SigningKey, error) {
	normalized := NormalizePhrase(phrase)
	if !bip39.IsMnemonicValid(normalized) {
		return nil, errs.ErrInvalidMnemonic
	}

	seed, err := bip39.NewSeedWithErrorChecking(normalized, "")
	if err != nil {
		return nil, errs.ErrInvalidMnemonic
	}
	defer wipe(seed)

	current, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	path := []uint32{
		purposeBIP44,
		bip32.FirstHardenedChild + d.coinType,
		bip32.FirstHardenedChild,
		0,
		0,
	}
	for _, idx := range path {
		current, err = current.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
	}

	raw := current.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	wipe(current.Key)

	return &SigningKey{key: priv, hrp: d.hrp}, nil
}

// ValidateAddress reports whether addr is a well-formed address for this
// network. It never panics.
func (d *Deriver) ValidateAddress(addr string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if addr == "" || strings.TrimSpace(addr) != addr {
		return false
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil || hrp != d.hrp {
		return false
	}
	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return false
	}
	return len(payload) == AddressSize
}

// EncodeAddress builds the address for a compressed public key:
// bech32(hrp, BLAKE3(pubkey)[:20]).
func EncodeAddress(hrp string, publicKey []byte) (string, error) {
	hash := blake3.Sum256(publicKey)
	conv, err := bech32.ConvertBits(hash[:AddressSize], 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, conv)
}

// SigningKey wraps a derived secp256k1 key for Schnorr signing.
type SigningKey struct {
	key *secp256k1.PrivateKey
	hrp string
}

// Sign produces a Schnorr signature over a 32-byte hash.
func (k *SigningKey) Sign(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	sig, err := schnorr.Sign(k.key, hash)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (k *SigningKey) PublicKey() []byte {
	return k.key.PubKey().SerializeCompressed()
}

// Address returns the network address of the key.
func (k *SigningKey) Address() (string, error) {
	addr, err := EncodeAddress(k.hrp, k.PublicKey())
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return addr, nil
}

// Zero wipes the private scalar.
func (k *SigningKey) Zero() {
	k.key.Zero()
}

// VerifySignature checks a Schnorr signature against a 32-byte hash and a
// compressed public key. Returns false on any error.
func VerifySignature(hash, signature, publicKey []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(hash, pubKey)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
