package account

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/require"
)

func encodeRaw(t *testing.T, hrp string, payload []byte) string {
	t.Helper()
	conv, err := bech32.ConvertBits(payload, 8, 5, true)
	require.NoError(t, err)
	s, err := bech32.Encode(hrp, conv)
	require.NoError(t, err)
	return s
}
