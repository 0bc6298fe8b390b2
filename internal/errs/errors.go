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

package errs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors returned by the custody core. Callers match with errors.Is;
// the excluded transport layer maps them to stable outward codes via Kind.
var (
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidMnemonic     = errors.New("invalid mnemonic phrase")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
	ErrCredentialMismatch  = errors.New("stored credential does not match wallet address")
	ErrCorruptEnvelope     = errors.New("corrupt credential envelope")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrRateLimited         = errors.New("rate limited")
	ErrChainUnavailable    = errors.New("chain unavailable")
	ErrSubmissionFailed    = errors.New("submission failed")
	ErrExtrinsicFailed     = errors.New("extrinsic failed")
)

// RateLimitedError carries the retry hint for a rejected request.
type RateLimitedError struct {
	Policy     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by %s policy, retry after %s", e.Policy, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterSeconds rounds the hint up to whole seconds, never below one.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidAddress, "InvalidAddress"},
	{ErrInvalidMnemonic, "InvalidMnemonic"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrCredentialMismatch, "CredentialMismatch"},
	{ErrCorruptEnvelope, "CorruptEnvelope"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrNotFound, "NotFound"},
	{ErrTokenExpired, "TokenExpired"},
	{ErrTokenInvalid, "TokenInvalid"},
	{ErrRateLimited, "RateLimited"},
	{ErrExtrinsicFailed, "ExtrinsicFailed"},
	{ErrSubmissionFailed, "SubmissionFailed"},
	{ErrChainUnavailable, "ChainUnavailable"},
}

// Kind returns the stable name of the first taxonomy error found in err's chain,
// or "Internal" when none matches.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
