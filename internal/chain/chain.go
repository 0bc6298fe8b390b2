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

// Package chain defines the ledger node collaborator and its two backends:
// a JSON-RPC client for a live node and an in-process chain.
package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// Event names reported with an included transfer.
const (
	EventExtrinsicSuccess = "system.ExtrinsicSuccess"
	EventExtrinsicFailed  = "system.ExtrinsicFailed"
)

// Balance is an account balance in base units.
type Balance struct {
	Free     *big.Int
	Reserved *big.Int
	Frozen   *big.Int
}

// Header describes the chain head.
type Header struct {
	Number     uint64
	Hash       string
	ParentHash string
	Timestamp  time.Time
}

// Health is the node's self-reported status.
type Health struct {
	Peers     int
	IsSyncing bool
}

// Transfer is an unsigned transfer instruction.
type Transfer struct {
	From      string
	To        string
	Amount    *big.Int
	Nonce     uint64
	PublicKey []byte
}

// SignedTransfer carries a Schnorr signature over PayloadHash(Transfer).
type SignedTransfer struct {
	Transfer
	Signature []byte
}

// Result is the terminal outcome of an included submission.
type Result struct {
	TxHash    string
	BlockHash string
}

// Client is the remote ledger connection. Implementations are shared
// process-wide and safe for concurrent use.
type Client interface {
	GetBalance(ctx context.Context, address string) (Balance, error)
	GetHeader(ctx context.Context) (Header, error)
	GetNonce(ctx context.Context, address string) (uint64, error)
	SubmitTransfer(ctx context.Context, tx SignedTransfer) (*Submission, error)
	HealthCheck(ctx context.Context) (Health, error)
	Close() error
}

// PayloadHash is the BLAKE3 digest a transfer is signed over.
func PayloadHash(t Transfer) [32]byte {
	amount := "0"
	if t.Amount != nil {
		amount = t.Amount.String()
	}
	payload := fmt.Sprintf("transfer|%s|%s|%s|%d|%s",
		t.From, t.To, amount, t.Nonce, hex.EncodeToString(t.PublicKey))
	return blake3.Sum256([]byte(payload))
}

// Submission tracks one submitted transfer until it reaches a terminal state.
// Exactly one result is delivered; every Wait observes the same outcome.
type Submission struct {
	TxHash string

	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

func newSubmission(txHash string) *Submission {
	return &Submission{
		TxHash: txHash,
		done:   make(chan struct{}),
	}
}

func (s *Submission) resolve(result Result, err error) {
	s.once.Do(func() {
		s.result = result
		s.err = err
		close(s.done)
	})
}

// Done is closed once the submission has a terminal result.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the submission is included or fails. Cancelling ctx
// abandons the wait only; the transfer stays submitted.
func (s *Submission) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.result, s.err
	case <-ctx.Done():
		return Result{TxHash: s.TxHash}, ctx.Err()
	}
}

func hashHex(parts ...[]byte) string {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
