package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
)

func testConfig(t *testing.T) models.DatabaseConfig {
	return models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "custody.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  time.Second,
	}
}

func setupTestDb(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func createTestUser(t *testing.T, s *Service, id string) *models.User {
	t.Helper()
	user := &models.User{Id: id, Email: id + "@example.com", DisplayName: id, Preferences: models.DefaultPreferences()}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to create user %s: %v", id, err)
	}
	return user
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		edit func(*models.DatabaseConfig)
	}{
		{"empty path", func(c *models.DatabaseConfig) { c.Path = "" }},
		{"no open conns", func(c *models.DatabaseConfig) { c.MaxOpenConns = 0 }},
		{"negative idle conns", func(c *models.DatabaseConfig) { c.MaxIdleConns = -1 }},
		{"no ping timeout", func(c *models.DatabaseConfig) { c.PingTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.edit(&cfg)
			if _, err := NewService(context.Background(), cfg); err == nil {
				t.Fatal("Expected config error")
			}
		})
	}
}

func TestNewService_MigrationFailure(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	if _, err := NewService(context.Background(), testConfig(t)); err == nil {
		t.Fatal("Expected migration error")
	}
}

func TestNewService_ReopenIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.CreateDemoUser = true

	first, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("First open failed: %v", err)
	}
	first.Close()

	second, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Second open failed: %v", err)
	}
	defer second.Close()

	users, err := second.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].Id != DemoUserId {
		t.Fatalf("Expected only the demo user, got %+v", users)
	}
}

func TestUsers(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, s, "u1")

	if err := s.CreateUser(ctx, &models.User{Id: "u1"}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("Expected duplicate user to be invalid input, got %v", err)
	}

	user, err := s.UpdateProfile(ctx, "u1", "Alice", "https://example.com/a.png")
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if user.DisplayName != "Alice" || user.PhotoURL != "https://example.com/a.png" {
		t.Errorf("Profile not updated: %+v", user)
	}

	prefs := models.Preferences{Currency: "EUR", Theme: "dark", Language: "fr", Notifications: false}
	user, err = s.UpdatePreferences(ctx, "u1", prefs)
	if err != nil {
		t.Fatalf("UpdatePreferences failed: %v", err)
	}
	if user.Preferences != prefs {
		t.Errorf("Expected %+v, got %+v", prefs, user.Preferences)
	}

	if _, err := s.GetUser(ctx, "nobody"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := s.UpdateProfile(ctx, "nobody", "x", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestWallets(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, s, "u1")
	createTestUser(t, s, "u2")

	w := &models.Wallet{Id: "w1", UserId: "u1", Name: "Main", Address: "dot1abc", PublicKey: "02ab", EncryptedSecret: "aa:bb"}
	if err := s.CreateWallet(ctx, w); err != nil {
		t.Fatalf("CreateWallet failed: %v", err)
	}
	dup := &models.Wallet{Id: "w2", UserId: "u1", Name: "Again", Address: "dot1abc", PublicKey: "02ab", EncryptedSecret: "cc:dd"}
	if err := s.CreateWallet(ctx, dup); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("Expected duplicate address to be rejected, got %v", err)
	}
	other := &models.Wallet{Id: "w3", UserId: "u2", Name: "Shared", Address: "dot1abc", PublicKey: "02ab", EncryptedSecret: "ee:ff"}
	if err := s.CreateWallet(ctx, other); err != nil {
		t.Fatalf("Same address for another user should be allowed: %v", err)
	}

	got, err := s.GetWallet(ctx, "w1")
	if err != nil {
		t.Fatalf("GetWallet failed: %v", err)
	}
	if got.EncryptedSecret != "aa:bb" || got.Balance != "0" {
		t.Errorf("Unexpected wallet: %+v", got)
	}

	list, err := s.ListWallets(ctx, "u1")
	if err != nil {
		t.Fatalf("ListWallets failed: %v", err)
	}
	if len(list) != 1 || list[0].EncryptedSecret != "" {
		t.Fatalf("Listing must hold one wallet without secret, got %+v", list)
	}

	if err := s.RenameWallet(ctx, "u2", "w1", "Stolen"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Rename by another user must not match, got %v", err)
	}
	if err := s.RenameWallet(ctx, "u1", "w1", "Savings"); err != nil {
		t.Fatalf("RenameWallet failed: %v", err)
	}
	if err := s.UpdateWalletBalance(ctx, "w1", "12.5000"); err != nil {
		t.Fatalf("UpdateWalletBalance failed: %v", err)
	}
	got, _ = s.GetWallet(ctx, "w1")
	if got.Name != "Savings" || got.Balance != "12.5000" {
		t.Errorf("Unexpected wallet after update: %+v", got)
	}

	all, err := s.ListAllWallets(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("Expected 2 wallets overall, got %d (%v)", len(all), err)
	}

	if err := s.DeleteWallet(ctx, "u2", "w1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete by another user must not match, got %v", err)
	}
	if err := s.DeleteWallet(ctx, "u1", "w1"); err != nil {
		t.Fatalf("DeleteWallet failed: %v", err)
	}
	if _, err := s.GetWallet(ctx, "w1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected deleted wallet to be gone, got %v", err)
	}
}

func TestContacts(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, s, "u1")

	for _, c := range []*models.Contact{
		{Id: "c1", UserId: "u1", Name: "Bob", Address: "dot1bob"},
		{Id: "c2", UserId: "u1", Name: "alice", Address: "dot1alice", Note: "sister"},
		{Id: "c3", UserId: "u1", Name: "100%", Address: "dot1pct"},
	} {
		if err := s.CreateContact(ctx, c); err != nil {
			t.Fatalf("CreateContact failed: %v", err)
		}
	}

	list, _ := s.ListContacts(ctx, "u1")
	if len(list) != 3 || list[1].Name != "alice" {
		t.Fatalf("Expected case-insensitive name order, got %+v", list)
	}

	found, err := s.SearchContacts(ctx, "u1", "ALI")
	if err != nil || len(found) != 1 || found[0].Id != "c2" {
		t.Errorf("Search by name failed: %+v (%v)", found, err)
	}
	found, _ = s.SearchContacts(ctx, "u1", "dot1b")
	if len(found) != 1 || found[0].Id != "c1" {
		t.Errorf("Search by address failed: %+v", found)
	}
	found, _ = s.SearchContacts(ctx, "u1", "%")
	if len(found) != 1 || found[0].Id != "c3" {
		t.Errorf("Wildcards must match literally: %+v", found)
	}

	c, _ := s.GetContact(ctx, "c1")
	c.Note = "colleague"
	if err := s.UpdateContact(ctx, c); err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if err := s.DeleteContact(ctx, "u2", "c1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Delete by another user must not match, got %v", err)
	}
	if err := s.DeleteContact(ctx, "u1", "c1"); err != nil {
		t.Fatalf("DeleteContact failed: %v", err)
	}
}

func TestTransactions(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	createTestUser(t, s, "u1")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*models.Transaction{
		{Id: "t1", Direction: models.DirectionSent, Amount: decimal.RequireFromString("1.5"), IdempotencyKey: "k1"},
		{Id: "t2", Direction: models.DirectionSent, Amount: decimal.RequireFromString("0.25")},
		{Id: "t3", Direction: models.DirectionReceived, Amount: decimal.RequireFromString("10")},
	}
	for i, tx := range records {
		tx.UserId = "u1"
		tx.WalletId = "w1"
		tx.FromAddress = "dot1from"
		tx.Counterparty = "dot1to"
		tx.TxHash = "0x" + tx.Id
		tx.Status = models.StatusConfirmed
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction %s failed: %v", tx.Id, err)
		}
	}

	dup := *records[0]
	dup.Id = "t4"
	if err := s.CreateTransaction(ctx, &dup); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("Expected repeated idempotency key to be rejected, got %v", err)
	}

	got, err := s.GetTransactionByIdempotencyKey(ctx, "u1", "k1")
	if err != nil || got.Id != "t1" || !got.Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("Lookup by key failed: %+v (%v)", got, err)
	}
	if _, err := s.GetTransactionByIdempotencyKey(ctx, "u2", "k1"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Keys are scoped per user, got %v", err)
	}

	list, _ := s.ListTransactions(ctx, "u1", 2)
	if len(list) != 2 || list[0].Id != "t3" || list[1].Id != "t2" {
		t.Fatalf("Expected newest first with limit, got %+v", list)
	}

	totals, err := s.GetTransactionTotals(ctx, "u1")
	if err != nil {
		t.Fatalf("GetTransactionTotals failed: %v", err)
	}
	if totals.SentCount != 2 || !totals.SentTotal.Equal(decimal.RequireFromString("1.75")) {
		t.Errorf("Unexpected sent totals: %+v", totals)
	}
	if totals.ReceivedCount != 1 || !totals.ReceivedTotal.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unexpected received totals: %+v", totals)
	}

	stats, _ := s.GetUserStats(ctx, "u1")
	if stats.TransactionCount != 3 || stats.WalletCount != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newService(db), mock
}

func TestService_DatabaseErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("disk I/O error")

	t.Run("get wallet", func(t *testing.T) {
		s, mock := newMockService(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).WillReturnError(dbErr)
		_, err := s.GetWallet(ctx, "w1")
		if !errors.Is(err, dbErr) || errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Expected wrapped db error, got %v", err)
		}
	})

	t.Run("list wallets scan", func(t *testing.T) {
		s, mock := newMockService(t)
		rows := sqlmock.NewRows([]string{"id"}).AddRow("w1")
		mock.ExpectQuery(regexp.QuoteMeta("FROM wallets")).WillReturnRows(rows)
		if _, err := s.ListWallets(ctx, "u1"); err == nil {
			t.Error("Expected scan error")
		}
	})

	t.Run("rename rows affected", func(t *testing.T) {
		s, mock := newMockService(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET name")).
			WillReturnResult(sqlmock.NewErrorResult(dbErr))
		err := s.RenameWallet(ctx, "u1", "w1", "x")
		if !errors.Is(err, dbErr) {
			t.Errorf("Expected rows affected error, got %v", err)
		}
	})

	t.Run("totals", func(t *testing.T) {
		s, mock := newMockService(t)
		rows := sqlmock.NewRows([]string{"direction", "amount"}).
			AddRow("sent", "1.0").
			RowError(0, dbErr)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT direction, amount")).WillReturnRows(rows)
		if _, err := s.GetTransactionTotals(ctx, "u1"); !errors.Is(err, dbErr) {
			t.Errorf("Expected iteration error, got %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		s, mock := newMockService(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).WillReturnError(dbErr)
		if _, err := s.GetUserStats(ctx, "u1"); !errors.Is(err, dbErr) {
			t.Errorf("Expected stats error, got %v", err)
		}
	})
}
