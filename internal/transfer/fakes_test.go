package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/store"
)

// memStore keeps wallets and transfer records in maps.
type memStore struct {
	store.WalletStore

	mu      sync.Mutex
	wallets map[string]*models.Wallet
	txs     []*models.Transaction
}

func newMemStore() *memStore {
	return &memStore{wallets: make(map[string]*models.Wallet)}
}

func (m *memStore) GetWallet(_ context.Context, walletId string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[walletId]
	if !ok {
		return nil, fmt.Errorf("wallet %s: %w", walletId, errs.ErrNotFound)
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.txs {
		if tx.IdempotencyKey != "" && existing.UserId == tx.UserId && existing.IdempotencyKey == tx.IdempotencyKey {
			return fmt.Errorf("duplicate key: %w", errs.ErrInvalidInput)
		}
	}
	m.txs = append(m.txs, tx)
	return nil
}

func (m *memStore) GetTransaction(_ context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.txs {
		if tx.Id == id {
			return tx, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *memStore) GetTransactionByIdempotencyKey(_ context.Context, userId, key string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.txs {
		if tx.UserId == userId && tx.IdempotencyKey == key {
			return tx, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (m *memStore) ListTransactions(context.Context, string, int) ([]*models.Transaction, error) {
	return nil, errors.New("not used")
}

func (m *memStore) GetTransactionTotals(context.Context, string) (store.TransactionTotals, error) {
	return store.TransactionTotals{}, errors.New("not used")
}

func (m *memStore) records() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []*models.Transaction
	err     error
}

func (j *recordingJournal) RecordTransfer(_ context.Context, tx *models.Transaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, tx)
	return j.err
}
