package ownership

import (
	"context"
	"testing"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertOwner(t *testing.T) {
	var missing *models.Wallet

	tests := []struct {
		name    string
		rec     Owned
		ownerId string
		want    error
	}{
		{"owner", &models.Wallet{UserId: "alice"}, "alice", nil},
		{"foreign", &models.Wallet{UserId: "alice"}, "bob", errs.ErrUnauthorized},
		{"anonymous", &models.Contact{UserId: "alice"}, "", errs.ErrUnauthorized},
		{"nil interface", nil, "alice", errs.ErrNotFound},
		{"nil pointer", missing, "alice", errs.ErrNotFound},
		{"transaction", &models.Transaction{UserId: "alice"}, "alice", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertOwner(tt.rec, tt.ownerId)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestGuard_MaskForeign(t *testing.T) {
	rec := &models.Wallet{UserId: "alice"}

	assert.ErrorIs(t, Guard{}.Check(rec, "bob"), errs.ErrUnauthorized)
	assert.ErrorIs(t, Guard{MaskForeign: true}.Check(rec, "bob"), errs.ErrNotFound)
	assert.NoError(t, Guard{MaskForeign: true}.Check(rec, "alice"))
}

func TestResolve(t *testing.T) {
	records := map[string]*models.Contact{
		"c1": {Id: "c1", UserId: "alice", Name: "Carol"},
	}
	load := func(_ context.Context, id string) (*models.Contact, error) {
		c, ok := records[id]
		if !ok {
			return nil, errs.ErrNotFound
		}
		return c, nil
	}
	ctx := context.Background()

	c, err := Resolve(ctx, Guard{}, "alice", "c1", load)
	require.NoError(t, err)
	assert.Equal(t, "Carol", c.Name)

	c, err = Resolve(ctx, Guard{}, "bob", "c1", load)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Nil(t, c)

	_, err = Resolve(ctx, Guard{}, "alice", "missing", load)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = Resolve(ctx, Guard{}, "alice", "", load)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}
