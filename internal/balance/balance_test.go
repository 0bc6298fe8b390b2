package balance

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"quickdot-custody-go/internal/chain"
	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient serves fixed balances; addresses in failing return failErr.
type stubClient struct {
	chain.Client
	balances map[string]chain.Balance
	failing  map[string]bool
	failErr  error
}

func (s *stubClient) GetBalance(ctx context.Context, address string) (chain.Balance, error) {
	if s.failing[address] {
		return chain.Balance{}, s.failErr
	}
	return s.balances[address], nil
}

func units(s string) *big.Int {
	v, _ := new(big.Int).SetString(s, 10)
	return v
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		display int32
	}{
		{"1234500000000", "123.4500", 4},
		{"0", "0.0000", 4},
		{"1", "0.0000", 4},
		{"10000000000", "1.0000", 4},
		{"1234567890123", "123.4568", 4},
		{"1234500000000", "123.4500000000", 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUnits(units(tt.raw), 10, tt.display), tt.raw)
	}
	assert.Equal(t, "0.0000", FormatUnits(nil, 10, 4))
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"123.45", "1234500000000"},
		{"0.00000000001", "0"},
		{"1.00000000019", "10000000001"},
		{"5", "50000000000"},
	}
	for _, tt := range tests {
		got := ToBaseUnits(decimal.RequireFromString(tt.amount), 10)
		assert.Equal(t, tt.want, got.String(), tt.amount)
	}
}

func TestOracle_GetBalance(t *testing.T) {
	client := &stubClient{balances: map[string]chain.Balance{
		"a": {Free: units("1234500000000"), Reserved: units("5000000000"), Frozen: units("1000000000")},
	}}
	o := NewOracle(client, 10, 4)

	r, err := o.GetBalance(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.Balance{
		Free:     "123.4500",
		Reserved: "0.5000",
		Frozen:   "0.1000",
		Total:    "123.9500",
	}, r.Display())
	assert.True(t, r.Free.Equal(decimal.RequireFromString("123.45")))
}

func TestOracle_GetBalanceUnavailable(t *testing.T) {
	client := &stubClient{failing: map[string]bool{"a": true}, failErr: errors.New("connection reset")}
	o := NewOracle(client, 10, 4)

	_, err := o.GetBalance(context.Background(), "a")
	assert.ErrorIs(t, err, errs.ErrChainUnavailable)
}

func TestOracle_Aggregate(t *testing.T) {
	client := &stubClient{
		balances: map[string]chain.Balance{
			"a": {Free: units("30000000000")},
			"b": {Free: units("10000000000"), Reserved: units("10000000000")},
		},
		failing: map[string]bool{"c": true},
		failErr: errs.ErrChainUnavailable,
	}
	o := NewOracle(client, 10, 4)

	p := o.Aggregate(context.Background(), []*models.Wallet{
		{Id: "w1", Address: "a"},
		{Id: "w2", Address: "b"},
		{Id: "w3", Address: "c"},
	})

	assert.True(t, p.Total.Equal(decimal.NewFromInt(5)))
	require.Len(t, p.Wallets, 2)
	assert.Equal(t, "60.00", p.Wallets[0].Percentage)
	assert.Equal(t, "40.00", p.Wallets[1].Percentage)
	assert.Equal(t, []string{"w3"}, p.FailedWallets)
}

func TestOracle_AggregateZero(t *testing.T) {
	client := &stubClient{balances: map[string]chain.Balance{}}
	o := NewOracle(client, 10, 4)

	p := o.Aggregate(context.Background(), []*models.Wallet{{Id: "w1", Address: "a"}})
	assert.True(t, p.Total.IsZero())
	require.Len(t, p.Wallets, 1)
	assert.Equal(t, "0.00", p.Wallets[0].Percentage)

	empty := o.Aggregate(context.Background(), nil)
	assert.Empty(t, empty.Wallets)
	assert.Empty(t, empty.FailedWallets)
}
