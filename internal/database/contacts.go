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
	"strings"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"go.uber.org/zap"
)

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	if err := row.Scan(&c.Id, &c.UserId, &c.Name, &c.Address, &c.Note, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) CreateContact(ctx context.Context, contact *models.Contact) error {
	now := s.now()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, queryInsertContact, contact.Id, contact.UserId,
		contact.Name, contact.Address, contact.Note, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		zap.L().Error("Failed to insert contact", zap.String("user_id", contact.UserId), zap.Error(err))
		return fmt.Errorf("unable to insert contact: %w", err)
	}
	return nil
}

func (s *Service) GetContact(ctx context.Context, contactId string) (*models.Contact, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx, queryGetContactById, contactId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contact %s: %w", contactId, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("unable to query contact: %w", err)
	}
	return c, nil
}

func (s *Service) ListContacts(ctx context.Context, userId string) ([]*models.Contact, error) {
	return s.listContacts(ctx, queryListContactsByUser, userId)
}

// SearchContacts matches query as a case-insensitive substring of name or address.
func (s *Service) SearchContacts(ctx context.Context, userId, query string) ([]*models.Contact, error) {
	pattern := "%" + escapeLike(query) + "%"
	return s.listContacts(ctx, querySearchContacts, userId, pattern, pattern)
}

func (s *Service) listContacts(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to query contacts", zap.Error(err))
		return nil, fmt.Errorf("unable to query contacts: %w", err)
	}
	defer closeRows(rows)

	contacts := []*models.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact rows: %w", err)
	}
	return contacts, nil
}

func (s *Service) UpdateContact(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = s.now()
	result, err := s.db.ExecContext(ctx, queryUpdateContact, contact.Name, contact.Address,
		contact.Note, contact.UpdatedAt, contact.Id, contact.UserId)
	if err != nil {
		zap.L().Error("Failed to update contact", zap.String("contact_id", contact.Id), zap.Error(err))
		return fmt.Errorf("unable to update contact: %w", err)
	}
	return requireAffected(result, "contact "+contact.Id)
}

func (s *Service) DeleteContact(ctx context.Context, userId, contactId string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteContact, contactId, userId)
	if err != nil {
		return fmt.Errorf("unable to delete contact: %w", err)
	}
	return requireAffected(result, "contact "+contactId)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
