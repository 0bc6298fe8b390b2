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
	"fmt"
	"strings"
	"unicode/utf8"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	maxNameLength = 50
	maxNoteLength = 200

	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

var (
	currencies = map[string]bool{"USD": true, "EUR": true, "GBP": true, "JPY": true, "CNY": true}
	themes     = map[string]bool{"light": true, "dark": true, "auto": true}
	languages  = map[string]bool{"en": true, "es": true, "fr": true, "de": true, "zh": true, "ja": true}
)

func validateName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", fmt.Errorf("%w: %s must be 1-%d characters", errs.ErrInvalidInput, field, maxNameLength)
	}
	return name, nil
}

func validateNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return "", fmt.Errorf("%w: note must be at most %d characters", errs.ErrInvalidInput, maxNoteLength)
	}
	return note, nil
}

func validatePreferences(p models.Preferences) error {
	if !currencies[p.Currency] {
		return fmt.Errorf("%w: unsupported currency %q", errs.ErrInvalidInput, p.Currency)
	}
	if !themes[p.Theme] {
		return fmt.Errorf("%w: unsupported theme %q", errs.ErrInvalidInput, p.Theme)
	}
	if !languages[p.Language] {
		return fmt.Errorf("%w: unsupported language %q", errs.ErrInvalidInput, p.Language)
	}
	return nil
}

func historyLimit(limit int) (int, error) {
	if limit == 0 {
		return defaultHistoryLimit, nil
	}
	if limit < 1 || limit > maxHistoryLimit {
		return 0, fmt.Errorf("%w: limit must be 1-%d", errs.ErrInvalidInput, maxHistoryLimit)
	}
	return limit, nil
}

func parseAmount(amount string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %q", errs.ErrInvalidAmount, amount)
	}
	return d, nil
}
