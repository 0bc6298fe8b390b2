package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quickdot-custody-go/internal/errs"
	"quickdot-custody-go/internal/models"
	"quickdot-custody-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadNetworkConfig_MissingFileUsesDefaults(t *testing.T) {
	network, err := LoadNetworkConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultNetwork(), network)

	network, err = LoadNetworkConfig("")
	require.NoError(t, err)
	assert.Equal(t, "dot", network.AddressHRP)
}

func TestLoadNetworkConfig_PartialOverride(t *testing.T) {
	path := writeFile(t, "name: Westend\nsymbol: WND\ndecimals: 12\naddress_hrp: wnd\n")

	network, err := LoadNetworkConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Westend", network.Name)
	assert.Equal(t, "WND", network.Symbol)
	assert.Equal(t, int32(12), network.Decimals)
	assert.Equal(t, int32(4), network.DisplayDecimals)
	assert.Equal(t, "wnd", network.AddressHRP)
	assert.Equal(t, uint32(354), network.CoinType)
	assert.Equal(t, "0.0100", network.EstimatedFee)
}

func TestLoadNetworkConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed yaml":        "name: [unclosed\n",
		"display over decimals": "decimals: 2\ndisplay_decimals: 6\n",
		"bad fee":               "estimated_fee: cheap\n",
		"negative fee":          "estimated_fee: \"-1\"\n",
	}
	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadNetworkConfig(writeFile(t, contents))
			assert.Error(t, err)
		})
	}
}

type userList struct {
	store.UserStore
	users []models.User
}

func (u userList) ListUsers(context.Context) ([]models.User, error) { return u.users, nil }

func TestInitializeUsers(t *testing.T) {
	users := userList{users: []models.User{
		{Id: "u1", Email: "alice@example.com", DisplayName: "Alice"},
		{Id: "u2", Email: "bob@example.com", DisplayName: "Bob"},
	}}
	ctx := context.Background()
	logger := zap.NewNop()

	all, err := InitializeUsers(ctx, users, "", logger)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byEmail, err := InitializeUsers(ctx, users, "ALICE@example.com", logger)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, UserInfo{Id: "u1", Name: "Alice", Email: "alice@example.com"}, byEmail[0])

	byId, err := InitializeUsers(ctx, users, "u2", logger)
	require.NoError(t, err)
	require.Len(t, byId, 1)
	assert.Equal(t, "Bob", byId[0].Name)

	_, err = InitializeUsers(ctx, users, "carol@example.com", logger)
	assert.Error(t, err)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1.5000 DOT", FormatAmount("1.5000", "DOT"))
	assert.Equal(t, "0 DOT", FormatAmount("", "DOT"))
	assert.Equal(t, "short", ShortAddress("short"))
	assert.Equal(t, "dot1qqqqqq...zzzzzz", ShortAddress("dot1qqqqqqqqqqqqqqqqqqqqqzzzzzz"))
}

func memoryConfig(t *testing.T) *models.Config {
	dir := t.TempDir()
	return &models.Config{
		Database: models.DatabaseConfig{
			Path:         filepath.Join(dir, "custody.db"),
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			PingTimeout:  time.Second,
		},
		Vault:   models.VaultConfig{Secret: "vault-secret-0123456789", Salt: "salt", Time: 1, Memory: 8 * 1024, Threads: 1},
		Session: models.SessionConfig{Secret: "session-secret-0123456789", TTL: time.Hour, Issuer: "test"},
		Chain:   models.ChainConfig{Backend: "memory", MemoryBlockTime: time.Millisecond, RequestTimeout: time.Second},
		RateLimit: models.RateLimitConfig{
			StandardMax: 100, StandardWindow: time.Minute,
			StrictMax: 10, StrictWindow: time.Minute,
			Store: "memory",
		},
		Monitor:     models.MonitorConfig{PollingInterval: time.Second, CleanupInterval: time.Minute},
		NetworkFile: filepath.Join(dir, "network.yaml"),
	}
}

func TestInitializeServices_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	svc, err := InitializeServices(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, "Polkadot", svc.Network.Name)
	assert.IsType(t, store.NopJournal{}, svc.Journal)
	assert.Nil(t, svc.Wallets.Bridge)

	require.NoError(t, svc.Wallets.HealthCheck(ctx))

	_, err = svc.Wallets.Authenticate(ctx, "any-token")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	mon, err := svc.NewMonitor()
	require.NoError(t, err)
	assert.NotNil(t, mon)
}

func TestInitializeServices_BadgerLimitStore(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.RateLimit.Store = "badger"
	cfg.RateLimit.BadgerPath = filepath.Join(t.TempDir(), "limits")

	svc, err := InitializeServices(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	decision, err := svc.Wallets.Throttle(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 99, decision.Remaining)
}

func TestInitializeServices_InvalidNetworkFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.NetworkFile = writeFile(t, "estimated_fee: free\n")

	_, err := InitializeServices(context.Background(), cfg)
	assert.Error(t, err)
}
