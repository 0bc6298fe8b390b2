package transfer

import (
	"bytes"
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/balance"
	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/ownership"
	"quickdot-custody-go/internal/vault"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	owner      = "alice"
)

type fixture struct {
	submitter *Submitter
	store     *memStore
	chain     *chain.Memory
	journal   *recordingJournal
	vault     *vault.Vault
	deriver   *account.Deriver
	wallet    *models.Wallet
	to        string
}

func dot(s string) *big.Int {
	return balance.ToBaseUnits(decimal.RequireFromString(s), 10)
}

func newFixture(t *testing.T, funded string) *fixture {
	t.Helper()

	v, err := vault.New("test-secret", "test-salt", vault.Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	require.NoError(t, err)
	deriver := account.NewDeriver("dot", 354)

	acct, err := deriver.Derive(testPhrase)
	require.NoError(t, err)
	envelope, err := v.Encrypt(testPhrase)
	require.NoError(t, err)

	to, err := account.EncodeAddress("dot", bytes.Repeat([]byte{7}, 33))
	require.NoError(t, err)

	st := newMemStore()
	wallet := &models.Wallet{Id: "w1", UserId: owner, Name: "Main", Address: acct.Address, PublicKey: acct.PublicKey, EncryptedSecret: envelope}
	st.wallets[wallet.Id] = wallet

	mem := chain.NewMemory("dot", 2*time.Millisecond)
	t.Cleanup(func() { mem.Close() })
	mem.Fund(acct.Address, dot(funded))

	journal := &recordingJournal{}
	sub := NewSubmitter(Deps{
		Wallets:      st,
		Transactions: st,
		Chain:        mem,
		Balances:     balance.NewOracle(mem, 10, 4),
		Deriver:      deriver,
		Vault:        v,
		Journal:      journal,
		Guard:        ownership.Guard{},
		Fee:          decimal.RequireFromString("0.01"),
	})

	return &fixture{submitter: sub, store: st, chain: mem, journal: journal, vault: v, deriver: deriver, wallet: wallet, to: to}
}

func (f *fixture) request(amount string) Request {
	return Request{OwnerId: owner, WalletId: f.wallet.Id, To: f.to, Amount: decimal.RequireFromString(amount)}
}

func TestSubmit_Confirmed(t *testing.T) {
	f := newFixture(t, "10")
	ctx := context.Background()

	req := f.request("1.5")
	req.Note = "rent"
	receipt, err := f.submitter.Submit(ctx, req)
	require.NoError(t, err)

	assert.NotEmpty(t, receipt.TxHash)
	assert.NotEmpty(t, receipt.BlockHash)
	assert.False(t, receipt.Replayed)
	require.Equal(t, 1, f.store.records())

	tx := receipt.Transaction
	assert.Equal(t, models.StatusConfirmed, tx.Status)
	assert.Equal(t, models.DirectionSent, tx.Direction)
	assert.Equal(t, "rent", tx.Note)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("1.5")))

	bal, err := f.chain.GetBalance(ctx, f.to)
	require.NoError(t, err)
	assert.Equal(t, dot("1.5").String(), bal.Free.String())
	assert.Len(t, f.journal.entries, 1)
}

func TestSubmit_AmountPrecision(t *testing.T) {
	f := newFixture(t, "10")
	ctx := context.Background()

	_, err := f.submitter.Submit(ctx, f.request("1.00000000009"))
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	assert.Equal(t, 0, f.chain.Submissions())
	assert.Equal(t, 0, f.store.records())

	// Trailing zeros beyond the ledger precision are the same amount.
	receipt, err := f.submitter.Submit(ctx, f.request("1.000000000100"))
	require.NoError(t, err)

	bal, err := f.chain.GetBalance(ctx, f.to)
	require.NoError(t, err)
	assert.Equal(t, dot("1.0000000001").String(), bal.Free.String())
	assert.True(t, receipt.Transaction.Amount.Equal(decimal.RequireFromString("1.0000000001")))
	assert.Equal(t, bal.Free.String(), balance.ToBaseUnits(receipt.Transaction.Amount, 10).String())
}

func TestSubmit_InsufficientBalance(t *testing.T) {
	f := newFixture(t, "1")

	_, err := f.submitter.Submit(context.Background(), f.request("1.0001"))
	assert.ErrorIs(t, err, errs.ErrInsufficientBalance)
	assert.Equal(t, 0, f.chain.Submissions())
	assert.Equal(t, 0, f.store.records())
}

func TestSubmit_Preconditions(t *testing.T) {
	f := newFixture(t, "10")

	tests := []struct {
		name string
		edit func(*Request)
		want error
	}{
		{"zero amount", func(r *Request) { r.Amount = decimal.Zero }, errs.ErrInvalidAmount},
		{"negative amount", func(r *Request) { r.Amount = decimal.NewFromInt(-1) }, errs.ErrInvalidAmount},
		{"bad address", func(r *Request) { r.To = "dot1notanaddress" }, errs.ErrInvalidAddress},
		{"bad address wins over ownership", func(r *Request) { r.To = ""; r.OwnerId = "mallory" }, errs.ErrInvalidAddress},
		{"foreign wallet", func(r *Request) { r.OwnerId = "mallory" }, errs.ErrUnauthorized},
		{"missing wallet", func(r *Request) { r.WalletId = "nope" }, errs.ErrNotFound},
		{"below one base unit", func(r *Request) { r.Amount = decimal.RequireFromString("0.00000000001") }, errs.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("1")
			tt.edit(&req)
			_, err := f.submitter.Submit(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, f.chain.Submissions())
	assert.Equal(t, 0, f.store.records())
}

func TestSubmit_CredentialFailures(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		f := newFixture(t, "10")
		other, err := account.EncodeAddress("dot", bytes.Repeat([]byte{9}, 33))
		require.NoError(t, err)
		f.store.wallets["w1"].Address = other
		f.chain.Fund(other, dot("10"))

		_, err = f.submitter.Submit(context.Background(), f.request("1"))
		assert.ErrorIs(t, err, errs.ErrCredentialMismatch)
		assert.Equal(t, 0, f.chain.Submissions())
	})

	t.Run("corrupt envelope", func(t *testing.T) {
		f := newFixture(t, "10")
		f.store.wallets["w1"].EncryptedSecret = "00:11"

		_, err := f.submitter.Submit(context.Background(), f.request("1"))
		assert.ErrorIs(t, err, errs.ErrCorruptEnvelope)
		assert.Equal(t, 0, f.chain.Submissions())
	})
}

func TestSubmit_ChainFailures(t *testing.T) {
	t.Run("extrinsic failed", func(t *testing.T) {
		f := newFixture(t, "10")
		f.chain.FailNext()
		_, err := f.submitter.Submit(context.Background(), f.request("1"))
		assert.ErrorIs(t, err, errs.ErrExtrinsicFailed)
		assert.Equal(t, 0, f.store.records())
		assert.Empty(t, f.journal.entries)
	})

	t.Run("dropped", func(t *testing.T) {
		f := newFixture(t, "10")
		f.chain.DropNext()
		_, err := f.submitter.Submit(context.Background(), f.request("1"))
		assert.ErrorIs(t, err, errs.ErrSubmissionFailed)
		assert.Equal(t, 0, f.store.records())
	})

	t.Run("unavailable", func(t *testing.T) {
		f := newFixture(t, "10")
		f.chain.SetUnavailable(true)
		_, err := f.submitter.Submit(context.Background(), f.request("1"))
		assert.ErrorIs(t, err, errs.ErrChainUnavailable)
		assert.Equal(t, 0, f.store.records())
	})
}

func TestSubmit_JournalFailureKeepsRecord(t *testing.T) {
	f := newFixture(t, "10")
	f.journal.err = assert.AnError

	_, err := f.submitter.Submit(context.Background(), f.request("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.records())
}

func TestSubmit_IdempotencyReplay(t *testing.T) {
	f := newFixture(t, "10")
	ctx := context.Background()

	req := f.request("2")
	req.IdempotencyKey = "order-17"

	first, err := f.submitter.Submit(ctx, req)
	require.NoError(t, err)
	second, err := f.submitter.Submit(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.TxHash, second.TxHash)
	assert.Equal(t, 1, f.chain.Submissions())
	assert.Equal(t, 1, f.store.records())

	req.Amount = decimal.NewFromInt(3)
	_, err = f.submitter.Submit(ctx, req)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	assert.Equal(t, 1, f.chain.Submissions())
}

func TestSubmit_ConcurrentDuplicateKeySubmitsOnce(t *testing.T) {
	f := newFixture(t, "10")

	req := f.request("1")
	req.IdempotencyKey = "dup"

	var wg sync.WaitGroup
	receipts := make([]*Receipt, 4)
	for i := range receipts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.submitter.Submit(context.Background(), req)
			assert.NoError(t, err)
			receipts[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.chain.Submissions())
	for _, r := range receipts {
		require.NotNil(t, r)
		assert.Equal(t, receipts[0].TxHash, r.TxHash)
	}
}

func TestSubmit_SerializesPerWallet(t *testing.T) {
	f := newFixture(t, "10")

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, rejected int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.submitter.Submit(context.Background(), f.request("3"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, errs.ErrInsufficientBalance):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 2, rejected)
	assert.Equal(t, 3, f.chain.Submissions())
	assert.Equal(t, 0, f.submitter.wallets.size())
}

func TestEstimateFee(t *testing.T) {
	f := newFixture(t, "10")
	ctx := context.Background()

	est, err := f.submitter.EstimateFee(ctx, owner, "w1", f.to, decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "0.0100", est.Fee)
	assert.Equal(t, "1.5000", est.Amount)
	assert.Equal(t, "1.5100", est.Total)

	_, err = f.submitter.EstimateFee(ctx, "mallory", "w1", f.to, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.submitter.EstimateFee(ctx, owner, "w1", "bogus", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errs.ErrInvalidAddress)
	_, err = f.submitter.EstimateFee(ctx, owner, "w1", f.to, decimal.RequireFromString("0.12345678901"))
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestKeyedLock_AbandonedWaiter(t *testing.T) {
	l := newKeyedLock()
	unlock, err := l.Lock(context.Background(), "w1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "w1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.Lock(context.Background(), "w2")
	require.NoError(t, err)
	other()

	unlock()
	unlock()
	assert.Equal(t, 0, l.size())
}
