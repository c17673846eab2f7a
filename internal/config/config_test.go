// internal/config/config_test.go

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvNetwork, EnvTimeout, EnvPollInterval, EnvLogLevel} {
		t.Setenv(k, "")
	}
	// EnvAppID distinguishes unset from empty, so unset it for the test.
	if old, ok := os.LookupEnv(EnvAppID); ok {
		require.NoError(t, os.Unsetenv(EnvAppID))
		t.Cleanup(func() { _ = os.Setenv(EnvAppID, old) })
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "testnet", cfg.Wallet.Network)
	assert.Equal(t, 10*time.Second, cfg.Wallet.Timeout)
	assert.Equal(t, "", cfg.Wallet.AppID)
	assert.Equal(t, time.Second, cfg.Wallet.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ValidDocument(t *testing.T) {
	clearEnv(t)
	cfg, err := Load([]byte(`
wallet:
  network: mainnet
  timeout: 30s
  app_id: "demo-app"
  poll_interval: 250ms
logging:
  level: debug
devwallet:
  use_keyring: false
  api_endpoint: "https://fullnode.example/v1"
`))
	require.NoError(t, err)

	assert.Equal(t, "mainnet", cfg.Wallet.Network)
	assert.Equal(t, 30*time.Second, cfg.Wallet.Timeout)
	assert.Equal(t, "demo-app", cfg.Wallet.AppID)
	assert.Equal(t, 250*time.Millisecond, cfg.Wallet.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.DevWallet.UseKeyring)
	assert.Equal(t, "https://fullnode.example/v1", cfg.DevWallet.APIEndpoint)
}

func TestLoad_PartialDocumentKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load([]byte("wallet:\n  app_id: x\n"))
	require.NoError(t, err)
	assert.Equal(t, "testnet", cfg.Wallet.Network)
	assert.Equal(t, 10*time.Second, cfg.Wallet.Timeout)
	assert.Equal(t, "x", cfg.Wallet.AppID)
}

func TestLoad_EmptyDocument(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_SchemaViolations(t *testing.T) {
	clearEnv(t)
	tests := map[string]string{
		"UnknownKey":      "wallet:\n  netwrk: testnet\n",
		"NumericTimeout":  "wallet:\n  timeout: 10\n",
		"BadDuration":     "wallet:\n  timeout: soon\n",
		"BadLevel":        "logging:\n  level: loud\n",
		"UnknownSection":  "server:\n  port: 8080\n",
		"KeyringNotBool":  "devwallet:\n  use_keyring: maybe\n",
		"EndpointNotURI":  "devwallet:\n  api_endpoint: \"not a uri\"\n",
		"EmptyNetworkStr": "wallet:\n  network: \"\"\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load([]byte("wallet: [unterminated"))
	assert.Error(t, err)
}

func TestLoad_UnknownNetworkSuggests(t *testing.T) {
	clearEnv(t)
	_, err := Load([]byte("wallet:\n  network: testnt\n"))
	require.Error(t, err)
	hints := errors.GetAllHints(err)
	require.NotEmpty(t, hints)
	assert.Contains(t, strings.Join(hints, " "), `"testnet"`)
}

func TestLoad_DevnetRejected(t *testing.T) {
	clearEnv(t)
	_, err := Load([]byte("wallet:\n  network: devnet\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrUnsupportedNetwork)
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvNetwork, "mainnet")
	t.Setenv(EnvTimeout, "3s")
	t.Setenv(EnvAppID, "from-env")
	t.Setenv(EnvPollInterval, "50ms")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load([]byte("wallet:\n  network: testnet\n  timeout: 20s\n"))
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Wallet.Network, "environment wins over file")
	assert.Equal(t, 3*time.Second, cfg.Wallet.Timeout)
	assert.Equal(t, "from-env", cfg.Wallet.AppID)
	assert.Equal(t, 50*time.Millisecond, cfg.Wallet.PollInterval)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestEnvironmentOverrides_InvalidDurationIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTimeout, "later")

	cfg, err := FromEnvironment()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.Wallet.Timeout)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wallet:\n  network: mainnet\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mainnet", cfg.Wallet.Network)

	_, err = LoadFromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFromFile_ExpandsHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "wb.yaml"), []byte("wallet:\n  app_id: home\n"), 0o600))

	cfg, err := LoadFromFile("~/wb.yaml")
	require.NoError(t, err)
	assert.Equal(t, "home", cfg.Wallet.AppID)
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "a", "b"), got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}

func TestToAdapterConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wallet.Network = "Mainnet"
	cfg.Wallet.AppID = "app"

	ac, err := cfg.ToAdapterConfig()
	require.NoError(t, err)
	assert.Equal(t, session.Mainnet, ac.Network)
	assert.Equal(t, 10*time.Second, ac.Timeout)
	assert.Equal(t, "app", ac.AppID)
	assert.Equal(t, time.Second, ac.PollInterval)
	assert.NoError(t, ac.Validate())

	cfg.Wallet.Network = "devnet"
	_, err = cfg.ToAdapterConfig()
	assert.Error(t, err)
}

func TestSuggestNetwork(t *testing.T) {
	assert.Equal(t, "mainnet", suggestNetwork("mainet"))
	assert.Equal(t, "testnet", suggestNetwork("TESTNT"))
	assert.Equal(t, "", suggestNetwork("completely-different"))
}
