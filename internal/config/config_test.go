package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8432", cfg.HTTPAddr)
	assert.Equal(t, "roster-api", cfg.Token.Issuer)
	assert.Equal(t, 24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, "per-token", cfg.Token.ExpiryMode)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Empty(t, cfg.Bootstrap.Username)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("TOKEN_EXPIRY_MODE", "fixed")
	t.Setenv("BOOTSTRAP_ADMIN_USERNAME", "admin")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.Token.TTL)
	assert.Equal(t, "fixed", cfg.Token.ExpiryMode)
	assert.Equal(t, "admin", cfg.Bootstrap.Username)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad expiry mode", map[string]string{"JWT_SECRET": "x", "TOKEN_EXPIRY_MODE": "sliding"}},
		{"negative ttl", map[string]string{"JWT_SECRET": "x", "TOKEN_TTL": "-1h"}},
		{"bcrypt cost", map[string]string{"JWT_SECRET": "x", "BCRYPT_COST": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_PATH", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.env["JWT_SECRET"] == "" {
				require.NoError(t, os.Unsetenv("JWT_SECRET"))
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: \":9000\"\ntoken:\n  secret: from-file\n  issuer: school\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_ISSUER", "")
	require.NoError(t, os.Unsetenv("JWT_ISSUER"))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "school", cfg.Token.Issuer)
	assert.Equal(t, "from-env", cfg.Token.Secret)
}
