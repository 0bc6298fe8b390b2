package vault

import (
	"strings"
	"testing"

	"quickdot-custody-go/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap KDF settings keep the suite fast
var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func newTestVault(t *testing.T, secret string) *Vault {
	t.Helper()
	v, err := New(secret, "test-salt", testParams)
	require.NoError(t, err)
	return v
}

func TestVault_RoundTrip(t *testing.T) {
	v := newTestVault(t, "master-secret-0123456789")

	inputs := []string{
		"",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
		"unicode ✓ text",
		strings.Repeat("x", 4096),
	}
	for _, in := range inputs {
		envelope, err := v.Encrypt(in)
		require.NoError(t, err)

		parts := strings.Split(envelope, ":")
		require.Len(t, parts, 2)
		assert.Len(t, parts[0], nonceLength*2)

		out, err := v.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestVault_FreshNonce(t *testing.T) {
	v := newTestVault(t, "master-secret-0123456789")

	a, err := v.Encrypt("same input")
	require.NoError(t, err)
	b, err := v.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVault_CorruptEnvelope(t *testing.T) {
	v := newTestVault(t, "master-secret-0123456789")
	good, err := v.Encrypt("secret words")
	require.NoError(t, err)

	parts := strings.Split(good, ":")
	flipped := []byte(parts[1])
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	tests := []struct {
		name     string
		envelope string
	}{
		{"empty", ""},
		{"no separator", parts[0] + parts[1]},
		{"three parts", good + ":00"},
		{"empty nonce", ":" + parts[1]},
		{"empty cipher", parts[0] + ":"},
		{"non hex", "zz:" + parts[1]},
		{"short nonce", parts[0][:8] + ":" + parts[1]},
		{"short cipher", parts[0] + ":abcd"},
		{"tampered cipher", parts[0] + ":" + string(flipped)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := v.Decrypt(tt.envelope)
			assert.ErrorIs(t, err, errs.ErrCorruptEnvelope)
			assert.Empty(t, out)
		})
	}
}

func TestVault_WrongKey(t *testing.T) {
	a := newTestVault(t, "master-secret-0123456789")
	b := newTestVault(t, "another-secret-987654321")

	envelope, err := a.Encrypt("secret words")
	require.NoError(t, err)

	_, err = b.Decrypt(envelope)
	assert.ErrorIs(t, err, errs.ErrCorruptEnvelope)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "salt", testParams)
	assert.Error(t, err)

	_, err = New("secret", "", testParams)
	assert.Error(t, err)

	v, err := New("secret", "salt", Params{})
	require.NoError(t, err)
	assert.NotNil(t, v)
}
