package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("VAULT_SECRET", "vault-secret-0123456789")
	t.Setenv("SESSION_SECRET", "session-secret-0123456789")
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "custody.db", cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "rpc", cfg.Chain.Backend)
	assert.Equal(t, 100, cfg.RateLimit.StandardMax)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.StandardWindow)
	assert.Equal(t, 10, cfg.RateLimit.StrictMax)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.StrictWindow)
	assert.Equal(t, "memory", cfg.RateLimit.Store)
	assert.Equal(t, "quickdot-vault-v1", cfg.Vault.Salt)
	assert.Empty(t, cfg.Formance.StackURL)
}

func TestLoad_Overrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("CHAIN_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_STRICT_MAX", "3")
	t.Setenv("DATABASE_PATH", "/tmp/x.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "memory", cfg.Chain.Backend)
	assert.Equal(t, 3, cfg.RateLimit.StrictMax)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing vault secret", map[string]string{"VAULT_SECRET": ""}},
		{"short session secret", map[string]string{"SESSION_SECRET": "short"}},
		{"bad duration", map[string]string{"SESSION_TTL": "soon"}},
		{"bad backend", map[string]string{"CHAIN_BACKEND": "ws"}},
		{"bad store", map[string]string{"RATE_LIMIT_STORE": "redis"}},
		{"strict above standard", map[string]string{"RATE_LIMIT_STRICT_MAX": "500"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setSecrets(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
