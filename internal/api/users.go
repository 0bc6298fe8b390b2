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
	"fmt"
	"strings"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
)

// Authenticate exchanges an identity provider token for a session.
func (s *WalletService) Authenticate(ctx context.Context, externalToken string) (*models.Session, error) {
	if s.Bridge == nil {
		return nil, fmt.Errorf("identity bridge not configured: %w", errs.ErrUnauthorized)
	}
	return s.Bridge.Authenticate(ctx, externalToken)
}

func (s *WalletService) GetProfile(ctx context.Context, userId string) (*models.User, error) {
	return s.Store.GetUser(ctx, userId)
}

func (s *WalletService) UpdateProfile(ctx context.Context, userId, displayName, photoURL string) (*models.User, error) {
	displayName, err := validateName("display name", displayName)
	if err != nil {
		return nil, err
	}
	return s.Store.UpdateProfile(ctx, userId, displayName, strings.TrimSpace(photoURL))
}

func (s *WalletService) UpdateSettings(ctx context.Context, userId string, prefs models.Preferences) (*models.User, error) {
	if err := validatePreferences(prefs); err != nil {
		return nil, err
	}
	return s.Store.UpdatePreferences(ctx, userId, prefs)
}

func (s *WalletService) GetUserStats(ctx context.Context, userId string) (models.UserStats, error) {
	return s.Store.GetUserStats(ctx, userId)
}
