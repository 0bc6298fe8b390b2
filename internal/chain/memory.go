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

package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/errs"

	"go.uber.org/zap"
)

type memAccount struct {
	free     *big.Int
	reserved *big.Int
	frozen   *big.Int
	nonce    uint64
}

// Memory is an in-process chain. It verifies nonces and signatures, produces
// one block per submission after the configured block time, and supports
// failure injection.
type Memory struct {
	mu          sync.Mutex
	hrp         string
	blockTime   time.Duration
	accounts    map[string]*memAccount
	height      uint64
	head        string
	headTime    time.Time
	unavailable bool
	failNext    bool
	dropNext    bool
	submissions int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMemory creates an in-process chain for addresses under hrp.
func NewMemory(hrp string, blockTime time.Duration) *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	return &Memory{
		hrp:       hrp,
		blockTime: blockTime,
		accounts:  make(map[string]*memAccount),
		head:      hashHex([]byte("genesis")),
		headTime:  time.Now().UTC(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *Memory) account(address string) *memAccount {
	acct, ok := m.accounts[address]
	if !ok {
		acct = &memAccount{free: new(big.Int), reserved: new(big.Int), frozen: new(big.Int)}
		m.accounts[address] = acct
	}
	return acct
}

// Fund credits free balance to an address.
func (m *Memory) Fund(address string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.account(address)
	acct.free.Add(acct.free, amount)
}

// SetReserved sets the reserved balance of an address.
func (m *Memory) SetReserved(address string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.account(address).reserved.Set(amount)
}

// SetUnavailable makes every call fail with errs.ErrChainUnavailable.
func (m *Memory) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

// FailNext includes the next submission with a failed dispatch event.
func (m *Memory) FailNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

// DropNext drops the next submission from the pool before inclusion.
func (m *Memory) DropNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropNext = true
}

// Submissions returns how many times SubmitTransfer has been called.
func (m *Memory) Submissions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submissions
}

func (m *Memory) checkAvailable() error {
	if m.unavailable {
		return fmt.Errorf("%w: node unreachable", errs.ErrChainUnavailable)
	}
	if m.ctx.Err() != nil {
		return fmt.Errorf("%w: client closed", errs.ErrChainUnavailable)
	}
	return nil
}

func (m *Memory) GetBalance(ctx context.Context, address string) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAvailable(); err != nil {
		return Balance{}, err
	}
	acct := m.account(address)
	return Balance{
		Free:     new(big.Int).Set(acct.free),
		Reserved: new(big.Int).Set(acct.reserved),
		Frozen:   new(big.Int).Set(acct.frozen),
	}, nil
}

func (m *Memory) GetNonce(ctx context.Context, address string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAvailable(); err != nil {
		return 0, err
	}
	return m.account(address).nonce, nil
}

func (m *Memory) GetHeader(ctx context.Context) (Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAvailable(); err != nil {
		return Header{}, err
	}
	return Header{Number: m.height, Hash: m.head, Timestamp: m.headTime}, nil
}

func (m *Memory) HealthCheck(ctx context.Context) (Health, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkAvailable(); err != nil {
		return Health{}, err
	}
	return Health{Peers: 1}, nil
}

// SubmitTransfer validates a signed transfer against the pool rules and
// schedules its inclusion.
func (m *Memory) SubmitTransfer(ctx context.Context, tx SignedTransfer) (*Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submissions++
	if err := m.checkAvailable(); err != nil {
		return nil, err
	}

	if tx.Amount == nil || tx.Amount.Sign() <= 0 {
		return nil, &RPCError{Code: 1010, Message: "invalid transaction: zero amount"}
	}
	addr, err := account.EncodeAddress(m.hrp, tx.PublicKey)
	if err != nil || addr != tx.From {
		return nil, &RPCError{Code: 1010, Message: "invalid transaction: signer does not match sender"}
	}
	hash := PayloadHash(tx.Transfer)
	if !account.VerifySignature(hash[:], tx.Signature, tx.PublicKey) {
		return nil, &RPCError{Code: 1010, Message: "invalid transaction: bad signature"}
	}
	sender := m.account(tx.From)
	if tx.Nonce != sender.nonce {
		return nil, &RPCError{Code: 1014, Message: fmt.Sprintf("invalid transaction: nonce %d, expected %d", tx.Nonce, sender.nonce)}
	}
	sender.nonce++

	sub := newSubmission(hashHex(hash[:], tx.Signature))
	drop, fail := m.dropNext, m.failNext
	m.dropNext, m.failNext = false, false

	m.wg.Add(1)
	go m.include(sub, tx, drop, fail)

	return sub, nil
}

func (m *Memory) include(sub *Submission, tx SignedTransfer, drop, fail bool) {
	defer m.wg.Done()

	if m.blockTime > 0 {
		timer := time.NewTimer(m.blockTime)
		defer timer.Stop()
		select {
		case <-m.ctx.Done():
			sub.resolve(Result{TxHash: sub.TxHash}, fmt.Errorf("%w: client closed before inclusion", errs.ErrSubmissionFailed))
			return
		case <-timer.C:
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sender := m.account(tx.From)
	if drop {
		if sender.nonce == tx.Nonce+1 {
			sender.nonce = tx.Nonce
		}
		sub.resolve(Result{TxHash: sub.TxHash}, fmt.Errorf("%w: transaction dropped", errs.ErrSubmissionFailed))
		return
	}

	var height [8]byte
	binary.BigEndian.PutUint64(height[:], m.height+1)
	m.height++
	m.head = hashHex([]byte(m.head), height[:], []byte(sub.TxHash))
	m.headTime = time.Now().UTC()
	result := Result{TxHash: sub.TxHash, BlockHash: m.head}

	spendable := new(big.Int).Sub(sender.free, sender.frozen)
	if fail || spendable.Cmp(tx.Amount) < 0 {
		zap.L().Debug("Transfer dispatch failed", zap.String("tx_hash", sub.TxHash), zap.Bool("injected", fail))
		sub.resolve(result, fmt.Errorf("%w: included in block %s", errs.ErrExtrinsicFailed, m.head))
		return
	}

	sender.free.Sub(sender.free, tx.Amount)
	recipient := m.account(tx.To)
	recipient.free.Add(recipient.free, tx.Amount)
	sub.resolve(result, nil)
}

// Close fails pending submissions and stops block production.
func (m *Memory) Close() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
