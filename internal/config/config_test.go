package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/oto/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://apis.tryoto.com/", cfg.BaseURL)
	assert.Equal(t, 30, cfg.Timeout)
	assert.True(t, cfg.VerifySSL)
	assert.Equal(t, "v1", cfg.APIVersion)
	assert.Zero(t, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryInterval)
	assert.Nil(t, cfg.ClientOptions())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OTO_API_KEY", "secret")
	t.Setenv("OTO_TIMEOUT", "10")
	t.Setenv("OTO_VERIFY_SSL", "false")
	t.Setenv("OTO_MAX_RETRIES", "3")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 10, cfg.Timeout)
	assert.False(t, cfg.VerifySSL)
	assert.Len(t, cfg.ClientOptions(), 1)
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("OTO_API_VERSION=v9\n"), 0o600))
	t.Setenv("OTO_API_VERSION", "")
	require.NoError(t, os.Unsetenv("OTO_API_VERSION"))

	cfg, err := config.Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "v9", cfg.APIVersion)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("OTO_TIMEOUT", "thirty")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestSDKOptions_FromEnvironment(t *testing.T) {
	cfg := &config.Config{BaseURL: "https://x.test", Timeout: 12, VerifySSL: false, Debug: true, APIVersion: "v1"}

	opts, err := cfg.SDKOptions()
	require.NoError(t, err)

	assert.Equal(t, "https://x.test", opts.BaseURL)
	assert.Equal(t, 12, opts.Timeout)
	require.NotNil(t, opts.VerifySSL)
	assert.False(t, *opts.VerifySSL)
	assert.True(t, opts.Debug)
}

func TestSDKOptions_FileWins(t *testing.T) {
	file := filepath.Join(t.TempDir(), "oto.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
base_url: https://sandbox.tryoto.com
timeout: 5
verify_ssl: false
region: tr
`), 0o600))

	cfg := &config.Config{BaseURL: "https://apis.tryoto.com/", Timeout: 30, VerifySSL: true, APIVersion: "v1", OptionsFile: file}

	opts, err := cfg.SDKOptions()
	require.NoError(t, err)

	assert.Equal(t, "https://sandbox.tryoto.com", opts.BaseURL)
	assert.Equal(t, 5, opts.Timeout)
	require.NotNil(t, opts.VerifySSL)
	assert.False(t, *opts.VerifySSL)
	assert.Equal(t, "v1", opts.Version)
	assert.Equal(t, "tr", opts.Extra["region"])
}

func TestSDKOptions_MissingFile(t *testing.T) {
	cfg := &config.Config{OptionsFile: filepath.Join(t.TempDir(), "nope.yaml")}

	_, err := cfg.SDKOptions()
	assert.Error(t, err)
}

func TestAttributes(t *testing.T) {
	cfg := &config.Config{ServiceName: "oto", Version: "1.2.3", UseMock: true}

	attrs := cfg.Attributes()
	require.NotEmpty(t, attrs)
	assert.Equal(t, "oto", attrs[0].Value.AsString())
}
