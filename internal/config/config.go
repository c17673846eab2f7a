// Package config handles loading, parsing, and validating walletbridge configuration.
// Settings come from defaults, then an optional YAML file, then environment
// variables, in increasing order of precedence.
// file: internal/config/config.go.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
	"github.com/dkoosis/walletbridge/internal/wallet/adapter"
	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvNetwork      = "WALLETBRIDGE_NETWORK"
	EnvTimeout      = "WALLETBRIDGE_TIMEOUT"
	EnvAppID        = "WALLETBRIDGE_APP_ID"
	EnvPollInterval = "WALLETBRIDGE_POLL_INTERVAL"
	EnvLogLevel     = "WALLETBRIDGE_LOG_LEVEL"
)

// DefaultPath is where the CLI looks for a config file when none is given.
const DefaultPath = "~/.config/walletbridge/config.yaml"

// WalletConfig holds the adapter's construction settings.
type WalletConfig struct {
	// Network is the chain network to bind to ("mainnet" or "testnet").
	Network string `yaml:"network"`
	// Timeout bounds each provider call.
	Timeout time.Duration `yaml:"timeout"`
	// AppID identifies this application to the provider.
	AppID string `yaml:"app_id"`
	// PollInterval is the readiness polling period.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DevWalletConfig holds settings for the in-process development provider.
type DevWalletConfig struct {
	// UseKeyring persists the development key in the OS keyring.
	UseKeyring bool `yaml:"use_keyring"`
	// APIEndpoint overrides the endpoint the provider reports for its network.
	APIEndpoint string `yaml:"api_endpoint,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	Wallet    WalletConfig    `yaml:"wallet"`
	Logging   LoggingConfig   `yaml:"logging"`
	DevWallet DevWalletConfig `yaml:"devwallet"`
}

// DefaultConfig returns a configuration populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Wallet: WalletConfig{
			Network:      string(session.Testnet),
			Timeout:      adapter.DefaultTimeout,
			AppID:        adapter.DefaultAppID,
			PollInterval: readiness.DefaultInterval,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		DevWallet: DevWalletConfig{
			UseKeyring: true,
		},
	}
}

// LoadFromFile loads configuration from the YAML file at path.
// Supports '~' expansion in the file path.
func LoadFromFile(path string) (*Config, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- Path comes from command-line flag or default, considered trusted input.
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", expanded)
	}

	cfg, err := Load(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", expanded)
	}
	return cfg, nil
}

// Load parses a YAML document over the defaults, applies environment
// overrides, and validates the result. An empty document yields the defaults.
func Load(data []byte) (*Config, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config YAML")
	}

	applyEnvironmentOverrides(cfg, logging.GetLogger("config_load"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnvironment returns the defaults with environment overrides applied.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvironmentOverrides(cfg, logging.GetLogger("config_default"))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvironmentOverrides applies configuration overrides from environment variables.
// Invalid values are logged and ignored.
func applyEnvironmentOverrides(cfg *Config, logger logging.Logger) {
	if network := os.Getenv(EnvNetwork); network != "" {
		logger.Debug("Overriding network from environment.", "envVar", EnvNetwork, "value", network)
		cfg.Wallet.Network = network
	}

	if raw := os.Getenv(EnvTimeout); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
			logger.Debug("Overriding timeout from environment.", "envVar", EnvTimeout, "value", d)
			cfg.Wallet.Timeout = d
		} else {
			logger.Warn("Invalid timeout environment variable ignored.", "envVar", EnvTimeout, "value", raw, "error", err)
		}
	}

	if appID, ok := os.LookupEnv(EnvAppID); ok {
		logger.Debug("Overriding app ID from environment.", "envVar", EnvAppID, "value", appID)
		cfg.Wallet.AppID = appID
	}

	if raw := os.Getenv(EnvPollInterval); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			logger.Debug("Overriding poll interval from environment.", "envVar", EnvPollInterval, "value", d)
			cfg.Wallet.PollInterval = d
		} else {
			logger.Warn("Invalid poll interval environment variable ignored.", "envVar", EnvPollInterval, "value", raw, "error", err)
		}
	}

	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		logger.Debug("Overriding log level from environment.", "envVar", EnvLogLevel, "value", lvl)
		cfg.Logging.Level = lvl
	}
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if _, err := c.NetworkID(); err != nil {
		return err
	}
	if c.Wallet.Timeout < 0 {
		return errors.Newf("wallet.timeout must not be negative, got %s", c.Wallet.Timeout)
	}
	if c.Wallet.PollInterval < 0 {
		return errors.Newf("wallet.poll_interval must not be negative, got %s", c.Wallet.PollInterval)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Newf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// NetworkID parses the configured network. Unknown names carry a
// "did you mean" hint; devnet is rejected as unsupported.
func (c *Config) NetworkID() (session.NetworkID, error) {
	network, err := session.ParseNetworkID(c.Wallet.Network)
	if err != nil {
		if s := suggestNetwork(c.Wallet.Network); s != "" {
			err = errors.WithHintf(err, "did you mean %q?", s)
		}
		return "", err
	}
	if !network.Supported() {
		return "", errors.WithHint(
			errors.Wrapf(session.ErrUnsupportedNetwork, "wallet.network %q", network),
			"use mainnet or testnet",
		)
	}
	return network, nil
}

// ToAdapterConfig produces the immutable adapter configuration.
func (c *Config) ToAdapterConfig() (adapter.Config, error) {
	if err := c.Validate(); err != nil {
		return adapter.Config{}, err
	}
	network, _ := c.NetworkID()
	return adapter.Config{
		Network:      network,
		Timeout:      c.Wallet.Timeout,
		AppID:        c.Wallet.AppID,
		PollInterval: c.Wallet.PollInterval,
	}, nil
}

// ExpandPath expands ~ in paths to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory to expand path")
	}
	return filepath.Join(home, path[1:]), nil
}
