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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.Id, &user.Email, &user.DisplayName, &user.PhotoURL,
		&user.Preferences.Currency, &user.Preferences.Theme, &user.Preferences.Language,
		&user.Preferences.Notifications, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	user, err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userId, errs.ErrNotFound)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}
	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	zap.L().Info("Creating user", zap.String("id", user.Id), zap.String("email", user.Email))

	now := s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	p := user.Preferences
	_, err := s.db.ExecContext(ctx, queryInsertUser, user.Id, user.Email, user.DisplayName, user.PhotoURL,
		p.Currency, p.Theme, p.Language, p.Notifications, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s already exists: %w", user.Id, errs.ErrInvalidInput)
		}
		zap.L().Error("Failed to insert user", zap.String("id", user.Id), zap.Error(err))
		return fmt.Errorf("unable to insert user: %w", err)
	}
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, queryListUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Debug("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userId, displayName, photoURL string) (*models.User, error) {
	result, err := s.db.ExecContext(ctx, queryUpdateProfile, displayName, photoURL, s.now(), userId)
	if err != nil {
		zap.L().Error("Failed to update profile", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to update profile: %w", err)
	}
	if err := requireAffected(result, "user "+userId); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userId)
}

func (s *Service) UpdatePreferences(ctx context.Context, userId string, prefs models.Preferences) (*models.User, error) {
	result, err := s.db.ExecContext(ctx, queryUpdatePreferences,
		prefs.Currency, prefs.Theme, prefs.Language, prefs.Notifications, s.now(), userId)
	if err != nil {
		zap.L().Error("Failed to update preferences", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to update preferences: %w", err)
	}
	if err := requireAffected(result, "user "+userId); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userId)
}

func (s *Service) GetUserStats(ctx context.Context, userId string) (models.UserStats, error) {
	var stats models.UserStats
	err := s.db.QueryRowContext(ctx, queryUserStats, userId, userId, userId).Scan(
		&stats.WalletCount, &stats.TransactionCount, &stats.ContactCount)
	if err != nil {
		zap.L().Error("Failed to query user stats", zap.String("user_id", userId), zap.Error(err))
		return models.UserStats{}, fmt.Errorf("unable to query user stats: %w", err)
	}
	return stats, nil
}
