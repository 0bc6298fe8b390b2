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

package ownership

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"quickdot-custody-go/internal/errs"
)

// Owned is a record with exactly one owning user.
type Owned interface {
	OwnerId() string
}

// AssertOwner fails with errs.ErrNotFound for a missing record and
// errs.ErrUnauthorized for a record owned by someone else.
func AssertOwner(rec Owned, ownerId string) error {
	if isNil(rec) {
		return errs.ErrNotFound
	}
	if ownerId == "" || rec.OwnerId() != ownerId {
		return errs.ErrUnauthorized
	}
	return nil
}

// Guard applies ownership checks. With MaskForeign set, records owned by
// another user are reported as errs.ErrNotFound so callers cannot probe for
// their existence.
type Guard struct {
	MaskForeign bool
}

// Check runs AssertOwner and applies the masking policy.
func (g Guard) Check(rec Owned, ownerId string) error {
	err := AssertOwner(rec, ownerId)
	if g.MaskForeign && errors.Is(err, errs.ErrUnauthorized) {
		return errs.ErrNotFound
	}
	return err
}

// Resolve loads a record by id and returns it only if ownerId owns it.
// load should return errs.ErrNotFound for a missing record.
func Resolve[R Owned](ctx context.Context, g Guard, ownerId, id string, load func(context.Context, string) (R, error)) (R, error) {
	var zero R
	if id == "" {
		return zero, fmt.Errorf("%w: id is required", errs.ErrInvalidInput)
	}

	rec, err := load(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := g.Check(rec, ownerId); err != nil {
		return zero, err
	}
	return rec, nil
}

func isNil(rec Owned) bool {
	if rec == nil {
		return true
	}
	v := reflect.ValueOf(rec)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
