package adapter

// file: internal/wallet/adapter/config.go

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
)

// Display metadata.
const (
	Name = "Blocto"
	URL  = "https://portto.com/download"
)

// Defaults applied by DefaultConfig.
const (
	DefaultTimeout = 10 * time.Second
	DefaultAppID   = ""
)

// ChainIDs maps each bindable network to its numeric chain ID.
var ChainIDs = map[session.NetworkID]int{
	session.Mainnet: 1,
	session.Testnet: 2,
}

// ChainID returns the chain ID for network, or false if the network cannot
// be bound.
func ChainID(network session.NetworkID) (int, bool) {
	id, ok := ChainIDs[network]
	return id, ok
}

// Config is fixed at construction and never changes afterwards.
type Config struct {
	// Network is the network the adapter is bound to. Devnet is rejected.
	Network session.NetworkID
	// Timeout bounds each provider call. Zero disables the bound.
	Timeout time.Duration
	// AppID identifies the application to the provider.
	AppID string
	// PollInterval is the readiness polling period.
	PollInterval time.Duration
}

// DefaultConfig returns a testnet configuration with default timings.
func DefaultConfig() Config {
	return Config{
		Network:      session.Testnet,
		Timeout:      DefaultTimeout,
		AppID:        DefaultAppID,
		PollInterval: readiness.DefaultInterval,
	}
}

// Validate checks that the configuration can be used to build an adapter.
func (c Config) Validate() error {
	if !c.Network.Supported() {
		return errors.Wrapf(session.ErrUnsupportedNetwork, "network %q", c.Network)
	}
	if c.Timeout < 0 {
		return errors.Newf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.PollInterval < 0 {
		return errors.Newf("poll interval must not be negative, got %s", c.PollInterval)
	}
	return nil
}
