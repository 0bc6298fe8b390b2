package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"quickdot-custody-go/internal/account"
	"quickdot-custody-go/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type signer struct {
	key  *account.SigningKey
	addr string
}

func newSigner(t *testing.T) signer {
	t.Helper()
	key, err := account.NewDeriver("dot", 354).SigningKey(testPhrase)
	require.NoError(t, err)
	t.Cleanup(key.Zero)
	addr, err := key.Address()
	require.NoError(t, err)
	return signer{key: key, addr: addr}
}

func (s signer) sign(t *testing.T, to string, amount int64, nonce uint64) SignedTransfer {
	t.Helper()
	tx := Transfer{
		From:      s.addr,
		To:        to,
		Amount:    big.NewInt(amount),
		Nonce:     nonce,
		PublicKey: s.key.PublicKey(),
	}
	hash := PayloadHash(tx)
	sig, err := s.key.Sign(hash[:])
	require.NoError(t, err)
	return SignedTransfer{Transfer: tx, Signature: sig}
}

func recipient(t *testing.T) string {
	t.Helper()
	phrase, err := account.GeneratePhrase()
	require.NoError(t, err)
	acct, err := account.NewDeriver("dot", 354).Derive(phrase)
	require.NoError(t, err)
	return acct.Address
}

func TestMemory_TransferIncluded(t *testing.T) {
	m := NewMemory("dot", time.Millisecond)
	defer m.Close()
	ctx := context.Background()
	s := newSigner(t)
	to := recipient(t)

	m.Fund(s.addr, big.NewInt(1000))

	sub, err := m.SubmitTransfer(ctx, s.sign(t, to, 300, 0))
	require.NoError(t, err)
	res, err := sub.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, sub.TxHash, res.TxHash)
	assert.NotEmpty(t, res.BlockHash)

	bal, err := m.GetBalance(ctx, s.addr)
	require.NoError(t, err)
	assert.Equal(t, int64(700), bal.Free.Int64())

	bal, err = m.GetBalance(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Free.Int64())

	nonce, err := m.GetNonce(ctx, s.addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	head, err := m.GetHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head.Number)
	assert.Equal(t, res.BlockHash, head.Hash)
	assert.Equal(t, 1, m.Submissions())
}

func TestMemory_Rejections(t *testing.T) {
	m := NewMemory("dot", 0)
	defer m.Close()
	ctx := context.Background()
	s := newSigner(t)
	to := recipient(t)
	m.Fund(s.addr, big.NewInt(1000))

	stale := s.sign(t, to, 10, 5)
	_, err := m.SubmitTransfer(ctx, stale)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)

	tampered := s.sign(t, to, 10, 0)
	tampered.Amount = big.NewInt(11)
	_, err = m.SubmitTransfer(ctx, tampered)
	require.ErrorAs(t, err, &rpcErr)

	forged := s.sign(t, to, 10, 0)
	forged.From = to
	_, err = m.SubmitTransfer(ctx, forged)
	require.ErrorAs(t, err, &rpcErr)

	assert.Equal(t, 3, m.Submissions())
}

func TestMemory_InjectedFailures(t *testing.T) {
	m := NewMemory("dot", 0)
	defer m.Close()
	ctx := context.Background()
	s := newSigner(t)
	to := recipient(t)
	m.Fund(s.addr, big.NewInt(1000))

	m.FailNext()
	sub, err := m.SubmitTransfer(ctx, s.sign(t, to, 10, 0))
	require.NoError(t, err)
	res, err := sub.Wait(ctx)
	assert.ErrorIs(t, err, errs.ErrExtrinsicFailed)
	assert.NotEmpty(t, res.BlockHash)

	m.DropNext()
	sub, err = m.SubmitTransfer(ctx, s.sign(t, to, 10, 1))
	require.NoError(t, err)
	_, err = sub.Wait(ctx)
	assert.ErrorIs(t, err, errs.ErrSubmissionFailed)

	// dropped transfers do not consume the nonce
	nonce, err := m.GetNonce(ctx, s.addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), nonce)

	m.SetUnavailable(true)
	_, err = m.GetBalance(ctx, s.addr)
	assert.ErrorIs(t, err, errs.ErrChainUnavailable)
	_, err = m.SubmitTransfer(ctx, s.sign(t, to, 10, 1))
	assert.ErrorIs(t, err, errs.ErrChainUnavailable)
}

func TestMemory_OverdraftFailsInBlock(t *testing.T) {
	m := NewMemory("dot", 0)
	defer m.Close()
	ctx := context.Background()
	s := newSigner(t)
	m.Fund(s.addr, big.NewInt(5))

	sub, err := m.SubmitTransfer(ctx, s.sign(t, recipient(t), 10, 0))
	require.NoError(t, err)
	_, err = sub.Wait(ctx)
	assert.ErrorIs(t, err, errs.ErrExtrinsicFailed)
}

func TestMemory_CloseFailsPending(t *testing.T) {
	m := NewMemory("dot", time.Hour)
	s := newSigner(t)
	m.Fund(s.addr, big.NewInt(1000))

	sub, err := m.SubmitTransfer(context.Background(), s.sign(t, recipient(t), 10, 0))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	_, err = sub.Wait(context.Background())
	assert.ErrorIs(t, err, errs.ErrSubmissionFailed)
}

func TestSubmission_WaitAbandon(t *testing.T) {
	sub := newSubmission("0xabc")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := sub.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "0xabc", res.TxHash)

	sub.resolve(Result{TxHash: "0xabc", BlockHash: "0x1"}, nil)
	sub.resolve(Result{}, errs.ErrSubmissionFailed)

	res, err = sub.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x1", res.BlockHash)
}

func TestPayloadHash(t *testing.T) {
	a := Transfer{From: "a", To: "b", Amount: big.NewInt(1), Nonce: 1}
	b := a
	b.Nonce = 2
	assert.Equal(t, PayloadHash(a), PayloadHash(a))
	assert.NotEqual(t, PayloadHash(a), PayloadHash(b))
}
