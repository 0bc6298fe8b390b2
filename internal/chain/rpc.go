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
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"quickdot-custody-go/internal/errs"

	"go.uber.org/zap"
)

// Transaction pool statuses reported by tx_getStatus.
const (
	StatusReady     = "ready"
	StatusBroadcast = "broadcast"
	StatusInBlock   = "inBlock"
	StatusFinalized = "finalized"
	StatusDropped   = "dropped"
	StatusInvalid   = "invalid"
	StatusUsurped   = "usurped"
)

// RPCConfig configures the JSON-RPC node client.
type RPCConfig struct {
	URL                string
	RequestTimeout     time.Duration
	InclusionTimeout   time.Duration
	StatusPollInterval time.Duration
	MaxPollFailures    int
}

// RPCError is returned when the node responds with a JSON-RPC error.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      uint64      `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	ID uint64 `json:"id"`
}

type balanceResult struct {
	Free     string `json:"free"`
	Reserved string `json:"reserved"`
	Frozen   string `json:"frozen"`
}

type headerResult struct {
	Number     uint64 `json:"number"`
	Hash       string `json:"hash"`
	ParentHash string `json:"parentHash"`
	Timestamp  int64  `json:"timestamp"` // unix millis
}

type healthResult struct {
	Peers     int  `json:"peers"`
	IsSyncing bool `json:"isSyncing"`
}

type submitParams struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Nonce     uint64 `json:"nonce"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

type statusResult struct {
	Status    string   `json:"status"`
	BlockHash string   `json:"blockHash"`
	Events    []string `json:"events"`
}

// RPCClient talks JSON-RPC 2.0 to a ledger node over a shared HTTP client.
// Every submission is tracked by a watcher goroutine until it is included,
// rejected, times out, or the client is closed.
type RPCClient struct {
	cfg    RPCConfig
	http   *http.Client
	nextID atomic.Uint64

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	// mu guards closed; watchers are added to wg only while holding it.
	mu     sync.Mutex
	closed bool
}

// NewRPCClient creates a node client. Zero durations fall back to defaults.
func NewRPCClient(cfg RPCConfig, httpClient *http.Client) *RPCClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.InclusionTimeout <= 0 {
		cfg.InclusionTimeout = 2 * time.Minute
	}
	if cfg.StatusPollInterval <= 0 {
		cfg.StatusPollInterval = 2 * time.Second
	}
	if cfg.MaxPollFailures <= 0 {
		cfg.MaxPollFailures = 5
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RPCClient{
		cfg:    cfg,
		http:   httpClient,
		ctx:    ctx,
		cancel: cancel,
	}
}

// call invokes a JSON-RPC method. Transport, HTTP and decoding failures are
// reported as errs.ErrChainUnavailable; node-side errors as *RPCError.
func (c *RPCClient) call(ctx context.Context, method string, params, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrChainUnavailable, method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Debug("Failed to close response body", zap.String("method", method), zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: http status %d", errs.ErrChainUnavailable, method, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %v", errs.ErrChainUnavailable, method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", errs.ErrChainUnavailable, method, err)
	}
	if rpcResp.Error != nil {
		return &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: %s: decode result: %v", errs.ErrChainUnavailable, method, err)
		}
	}
	return nil
}

func (c *RPCClient) GetBalance(ctx context.Context, address string) (Balance, error) {
	var res balanceResult
	if err := c.call(ctx, "account_getBalance", []string{address}, &res); err != nil {
		return Balance{}, err
	}

	free, ok1 := parseUnits(res.Free)
	reserved, ok2 := parseUnits(res.Reserved)
	frozen, ok3 := parseUnits(res.Frozen)
	if !ok1 || !ok2 || !ok3 {
		return Balance{}, fmt.Errorf("%w: malformed balance for %s", errs.ErrChainUnavailable, address)
	}
	return Balance{Free: free, Reserved: reserved, Frozen: frozen}, nil
}

func (c *RPCClient) GetNonce(ctx context.Context, address string) (uint64, error) {
	var nonce uint64
	if err := c.call(ctx, "account_getNonce", []string{address}, &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

func (c *RPCClient) GetHeader(ctx context.Context) (Header, error) {
	var res headerResult
	if err := c.call(ctx, "chain_getHeader", nil, &res); err != nil {
		return Header{}, err
	}
	return Header{
		Number:     res.Number,
		Hash:       res.Hash,
		ParentHash: res.ParentHash,
		Timestamp:  time.UnixMilli(res.Timestamp).UTC(),
	}, nil
}

func (c *RPCClient) HealthCheck(ctx context.Context) (Health, error) {
	var res healthResult
	if err := c.call(ctx, "system_health", nil, &res); err != nil {
		return Health{}, err
	}
	return Health{Peers: res.Peers, IsSyncing: res.IsSyncing}, nil
}

// SubmitTransfer sends a signed transfer and starts tracking its inclusion.
func (c *RPCClient) SubmitTransfer(ctx context.Context, tx SignedTransfer) (*Submission, error) {
	if c.isClosed() {
		return nil, fmt.Errorf("%w: client closed", errs.ErrChainUnavailable)
	}

	params := submitParams{
		From:      tx.From,
		To:        tx.To,
		Amount:    tx.Amount.String(),
		Nonce:     tx.Nonce,
		PublicKey: hex.EncodeToString(tx.PublicKey),
		Signature: hex.EncodeToString(tx.Signature),
	}

	var txHash string
	if err := c.call(ctx, "tx_submit", []submitParams{params}, &txHash); err != nil {
		return nil, err
	}
	if txHash == "" {
		return nil, fmt.Errorf("%w: node returned empty transaction hash", errs.ErrSubmissionFailed)
	}

	sub := newSubmission(txHash)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: client closed before tracking %s", errs.ErrSubmissionFailed, txHash)
	}
	c.wg.Add(1)
	c.mu.Unlock()
	go c.watch(sub)

	zap.L().Info("Transfer submitted",
		zap.String("tx_hash", txHash),
		zap.String("from", tx.From),
		zap.String("to", tx.To),
		zap.String("amount", tx.Amount.String()),
		zap.Uint64("nonce", tx.Nonce))

	return sub, nil
}

// watch polls tx_getStatus until the submission reaches a terminal state.
func (c *RPCClient) watch(sub *Submission) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.StatusPollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(c.cfg.InclusionTimeout)
	defer deadline.Stop()

	failures := 0
	for {
		select {
		case <-c.ctx.Done():
			sub.resolve(Result{TxHash: sub.TxHash}, fmt.Errorf("%w: client closed before inclusion", errs.ErrSubmissionFailed))
			return
		case <-deadline.C:
			sub.resolve(Result{TxHash: sub.TxHash}, fmt.Errorf("%w: not included within %s", errs.ErrSubmissionFailed, c.cfg.InclusionTimeout))
			return
		case <-ticker.C:
			var status statusResult
			if err := c.call(c.ctx, "tx_getStatus", []string{sub.TxHash}, &status); err != nil {
				failures++
				zap.L().Warn("Transaction status poll failed",
					zap.String("tx_hash", sub.TxHash),
					zap.Int("consecutive_failures", failures),
					zap.Error(err))
				if failures > c.cfg.MaxPollFailures {
					sub.resolve(Result{TxHash: sub.TxHash}, fmt.Errorf("%w: lost track of transaction: %v", errs.ErrSubmissionFailed, err))
					return
				}
				continue
			}
			failures = 0

			if done := resolveStatus(sub, status); done {
				return
			}
		}
	}
}

// resolveStatus applies one status report and reports whether it was terminal.
func resolveStatus(sub *Submission, status statusResult) bool {
	switch status.Status {
	case StatusInBlock, StatusFinalized:
		result := Result{TxHash: sub.TxHash, BlockHash: status.BlockHash}
		for _, ev := range status.Events {
			if ev == EventExtrinsicFailed {
				sub.resolve(result, fmt.Errorf("%w: included in block %s", errs.ErrExtrinsicFailed, status.BlockHash))
				return true
			}
		}
		sub.resolve(result, nil)
		return true
	case StatusDropped, StatusInvalid, StatusUsurped:
		sub.resolve(Result{TxHash: sub.TxHash}, fmt.Errorf("%w: transaction %s", errs.ErrSubmissionFailed, status.Status))
		return true
	default:
		return false
	}
}

// Close stops all watchers; pending submissions fail with errs.ErrSubmissionFailed.
func (c *RPCClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *RPCClient) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.cancel()
		c.wg.Wait()
		c.http.CloseIdleConnections()
	})
	return nil
}

func parseUnits(s string) (*big.Int, bool) {
	if s == "" {
		return new(big.Int), true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}
