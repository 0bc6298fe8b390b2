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

package api

import (
	"context"
	"errors"
	"fmt"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/balance"
	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/identity"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ownership"
	"quickdot-custody-go/internal/price"
	"quickdot-custody-go/internal/ratelimit"
	"quickdot-custody-go/internal/store"
	"quickdot-custody-go/internal/transfer"
	"quickdot-custody-go/internal/vault"
)

// Deps are the collaborators behind a WalletService.
type Deps struct {
	Store     store.CustodyStore
	Chain     chain.Client
	Balances  *balance.Oracle
	Deriver   *account.Deriver
	Vault     *vault.Vault
	Submitter *transfer.Submitter
	Bridge    *identity.Bridge
	Prices    *price.Oracle
	Guard     ownership.Guard
	Standard  *ratelimit.Limiter
	Strict    *ratelimit.Limiter
	Network   models.NetworkConfig
}

// WalletService is the operation surface of the custody backend. Every
// user-scoped method takes the authenticated user id as its owner.
type WalletService struct {
	Deps
}

func NewWalletService(deps Deps) (*WalletService, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("wallet service requires a store")
	case deps.Chain == nil || deps.Balances == nil:
		return nil, errors.New("wallet service requires a chain client and balance oracle")
	case deps.Deriver == nil || deps.Vault == nil || deps.Submitter == nil:
		return nil, errors.New("wallet service requires a deriver, vault and submitter")
	}
	return &WalletService{Deps: deps}, nil
}

// Throttle counts one request against the standard policy.
func (s *WalletService) Throttle(ctx context.Context, clientKey string) (ratelimit.Decision, error) {
	if s.Standard == nil {
		return ratelimit.Decision{Allowed: true}, nil
	}
	return s.Standard.Allow(ctx, clientKey)
}

func (s *WalletService) HealthCheck(ctx context.Context) error {
	if _, err := s.Store.ListUsers(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if _, err := s.Chain.HealthCheck(ctx); err != nil {
		return fmt.Errorf("chain health check failed: %w", err)
	}
	return nil
}
