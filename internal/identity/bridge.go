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

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/store"

	"go.uber.org/zap"
)

// Bridge exchanges identity-provider tokens for internal sessions and
// provisions users on first sight.
type Bridge struct {
	verifier TokenVerifier
	users    store.UserStore
	sessions *SessionIssuer
	now      func() time.Time
}

func NewBridge(verifier TokenVerifier, users store.UserStore, sessions *SessionIssuer) *Bridge {
	return &Bridge{
		verifier: verifier,
		users:    users,
		sessions: sessions,
		now:      time.Now,
	}
}

// Authenticate verifies an external token, provisions the user if needed,
// and issues a session token.
func (b *Bridge) Authenticate(ctx context.Context, externalToken string) (*models.Session, error) {
	ident, err := b.verifier.Verify(ctx, externalToken)
	if err != nil {
		return nil, err
	}

	user, err := b.getOrProvision(ctx, ident)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := b.sessions.Issue(user.Id, user.Email)
	if err != nil {
		return nil, err
	}

	zap.L().Info("User authenticated", zap.String("user_id", user.Id))
	return &models.Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (b *Bridge) getOrProvision(ctx context.Context, ident *ExternalIdentity) (*models.User, error) {
	user, err := b.users.GetUser(ctx, ident.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, fmt.Errorf("unable to load user: %w", err)
	}

	now := b.now().UTC()
	displayName := ident.DisplayName
	if displayName == "" {
		displayName = ident.Email
	}
	user = &models.User{
		Id:          ident.Subject,
		Email:       ident.Email,
		DisplayName: displayName,
		PhotoURL:    ident.PhotoURL,
		Preferences: models.DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := b.users.CreateUser(ctx, user); err != nil {
		// a concurrent first login may have provisioned the same subject
		existing, getErr := b.users.GetUser(ctx, ident.Subject)
		if getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("unable to provision user: %w", err)
	}

	zap.L().Info("Provisioned new user", zap.String("user_id", user.Id), zap.String("email", user.Email))
	return user, nil
}

// VerifySession checks a session token locally and returns the user id.
func (b *Bridge) VerifySession(token string) (string, error) {
	claims, err := b.sessions.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.UserId, nil
}

// OptionalSession returns the user id for a valid token and false otherwise.
// It is meant for read-only endpoints that also serve anonymous callers.
func (b *Bridge) OptionalSession(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	userId, err := b.VerifySession(token)
	if err != nil {
		return "", false
	}
	return userId, true
}

// Authorize verifies token and attaches the user id to ctx.
func (b *Bridge) Authorize(ctx context.Context, token string) (context.Context, error) {
	userId, err := b.VerifySession(token)
	if err != nil {
		return ctx, err
	}
	return models.ContextWithUser(ctx, userId), nil
}
