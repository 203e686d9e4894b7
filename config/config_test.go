package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_MAX_CONNECTIONS", "")
	t.Setenv("SIGNING_SECRET", "")
	t.Setenv("REPORT_EMAIL_TO", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Nil(t, cfg.SigningSecret)
	assert.Empty(t, cfg.ReportEmailTo)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_MAX_CONNECTIONS", "4")
	t.Setenv("SIGNING_SECRET", base64.StdEncoding.EncodeToString([]byte("secret")))
	t.Setenv("REPORT_EMAIL_TO", "ops@example.com, , lead@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 4, cfg.MaxConnections)
	assert.Equal(t, []byte("secret"), cfg.SigningSecret)
	assert.Equal(t, []string{"ops@example.com", "lead@example.com"}, cfg.ReportEmailTo)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DB_MAX_CONNECTIONS", "zero")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_MAX_CONNECTIONS", "2")
	t.Setenv("SIGNING_SECRET", "%%%")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CREWTRACK_TEST_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CREWTRACK_TEST_VALUE") })

	LoadEnv(path)

	assert.Equal(t, "from-file", GetEnv("CREWTRACK_TEST_VALUE"))
	assert.Equal(t, "fallback", GetEnv("CREWTRACK_TEST_MISSING", "fallback"))
}
