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

package models

import "context"

type userContextKey struct{}

// ContextWithUser attaches an authenticated user id to a context.
func ContextWithUser(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, userContextKey{}, userId)
}

// UserFromContext returns the authenticated user id, or false if the request is anonymous.
func UserFromContext(ctx context.Context) (string, bool) {
	userId, ok := ctx.Value(userContextKey{}).(string)
	return userId, ok && userId != ""
}
