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

package common

import (
	"context"
	"fmt"
	"strings"

	"quickdot-custody-go/internal/store"

	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Id    string
	Name  string
	Email string
}

// InitializeUsers retrieves users based on an optional filter.
// The filter matches a user id or an email address, case-insensitively.
// If filter is empty, returns all users.
func InitializeUsers(ctx context.Context, users store.UserStore, filter string, logger *zap.Logger) ([]UserInfo, error) {
	allUsers, err := users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	var result []UserInfo
	for _, u := range allUsers {
		if filter != "" && u.Id != filter && !strings.EqualFold(u.Email, filter) {
			continue
		}
		result = append(result, UserInfo{
			Id:    u.Id,
			Name:  u.DisplayName,
			Email: u.Email,
		})
	}

	if filter != "" {
		logger.Info("Looking up user", zap.String("filter", filter))
		if len(result) == 0 {
			return nil, fmt.Errorf("user not found: %s", filter)
		}
	}

	logger.Info("Retrieved users", zap.Int("count", len(result)))
	return result, nil
}
