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
	"strings"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ownership"

	"github.com/google/uuid"
)

func (s *WalletService) CreateContact(ctx context.Context, userId, name, address, note string) (*models.Contact, error) {
	contact, err := s.contactFields(name, address, note)
	if err != nil {
		return nil, err
	}
	contact.Id = uuid.New().String()
	contact.UserId = userId

	if err := s.Store.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// UpdateContact replaces the contact's name, address and note.
func (s *WalletService) UpdateContact(ctx context.Context, userId, contactId, name, address, note string) (*models.Contact, error) {
	existing, err := ownership.Resolve(ctx, s.Guard, userId, contactId, s.Store.GetContact)
	if err != nil {
		return nil, err
	}
	fields, err := s.contactFields(name, address, note)
	if err != nil {
		return nil, err
	}

	existing.Name = fields.Name
	existing.Address = fields.Address
	existing.Note = fields.Note
	if err := s.Store.UpdateContact(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *WalletService) DeleteContact(ctx context.Context, userId, contactId string) error {
	if _, err := ownership.Resolve(ctx, s.Guard, userId, contactId, s.Store.GetContact); err != nil {
		return err
	}
	return s.Store.DeleteContact(ctx, userId, contactId)
}

func (s *WalletService) ListContacts(ctx context.Context, userId string) ([]*models.Contact, error) {
	return s.Store.ListContacts(ctx, userId)
}

// SearchContacts matches name or address; an empty query lists everything.
func (s *WalletService) SearchContacts(ctx context.Context, userId, query string) ([]*models.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.Store.ListContacts(ctx, userId)
	}
	return s.Store.SearchContacts(ctx, userId, query)
}

func (s *WalletService) contactFields(name, address, note string) (*models.Contact, error) {
	name, err := validateName("contact name", name)
	if err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if !s.Deriver.ValidateAddress(address) {
		return nil, errs.ErrInvalidAddress
	}
	note, err = validateNote(note)
	if err != nil {
		return nil, err
	}
	return &models.Contact{Name: name, Address: address, Note: note}, nil
}
