package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/employee-api/internal/reliability"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8111", cfg.App.BindAddr)
	assert.Equal(t, "/api/v1/employee", cfg.App.APIPrefix)
	assert.Equal(t, 10, cfg.App.TopN)
	assert.Equal(t, "http://localhost:8112/api/v1/employee", cfg.Upstream.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)

	policy := cfg.Retry.Policy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.BackoffDelay)
	assert.Equal(t, reliability.FixedDelay, policy.Strategy)
	assert.Empty(t, cfg.Audit.DatabaseURL)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("UPSTREAM_BASE_URL", "http://mock:8112/api/v1/employee/")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BACKOFF_DELAY", "250ms")
	t.Setenv("RETRY_STRATEGY", "Exponential")
	t.Setenv("APP_API_PREFIX", "staff/")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.BindAddr)
	assert.Equal(t, "http://mock:8112/api/v1/employee", cfg.Upstream.BaseURL, "trailing slash trimmed")
	assert.Equal(t, "/staff", cfg.App.APIPrefix)
	assert.True(t, cfg.Log.Pretty)

	policy := cfg.Retry.Policy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, policy.BackoffDelay)
	assert.Equal(t, reliability.ExponentialDelay, policy.Strategy)
}

func TestLoadYAMLFileBelowEnvironment(t *testing.T) {
	setCoreEnvEmpty(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  top_n: 3
retry:
  max_attempts: 7
upstream:
  timeout: 4s
`), 0o600))
	t.Setenv("APP_CONFIG_FILE", path)
	t.Setenv("RETRY_MAX_ATTEMPTS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.App.TopN)
	assert.Equal(t, 4*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]string{
		"RETRY_MAX_ATTEMPTS":  "0",
		"RETRY_STRATEGY":      "random",
		"UPSTREAM_BASE_URL":   "localhost:8112",
		"APP_TOP_N":           "0",
		"RETRY_BACKOFF_DELAY": "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsDurationsWithoutUnit(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		setCoreEnvEmpty(t)
		t.Setenv("RETRY_BACKOFF_DELAY", "2000")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry.backoff_delay")
	})

	t.Run("yaml", func(t *testing.T) {
		setCoreEnvEmpty(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("retry:\n  backoff_delay: 2000\n"), 0o600))
		t.Setenv("APP_CONFIG_FILE", path)
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no unit")
	})

	t.Run("millisecond unit accepted", func(t *testing.T) {
		setCoreEnvEmpty(t)
		t.Setenv("RETRY_BACKOFF_DELAY", "2000ms")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, cfg.Retry.BackoffDelay)
	})
}

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, ValidateBaseURL("https://example.test/api"))
	assert.Error(t, ValidateBaseURL(""))
	assert.Error(t, ValidateBaseURL("ftp://example.test"))
	assert.Error(t, ValidateBaseURL("/relative"))
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	t.Setenv("APP_CONFIG_FILE", "")
	for key := range envKeys {
		t.Setenv(key, "")
	}
}
