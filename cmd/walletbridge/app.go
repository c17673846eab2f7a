// file: cmd/walletbridge/app.go
package main

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/config"
	"github.com/dkoosis/walletbridge/internal/devwallet"
	"github.com/dkoosis/walletbridge/internal/envprobe"
	"github.com/dkoosis/walletbridge/internal/logging"
	"github.com/dkoosis/walletbridge/internal/metrics"
	"github.com/dkoosis/walletbridge/internal/wallet/adapter"
	"github.com/dkoosis/walletbridge/internal/wallet/events"
	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
)

// app wires one adapter to the development provider for a single command.
type app struct {
	cfg     *config.Config
	adapter *adapter.Adapter
	wallet  *devwallet.Wallet
	bus     *events.Bus
	metrics *metrics.Collector
	ready   chan struct{}
	logger  logging.Logger
}

// loadConfig reads the config file if one exists. An explicit path must
// exist; the default path may be missing.
func loadConfig(path string) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath
	}
	cfg, err := config.LoadFromFile(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.FromEnvironment()
	}
	return nil, err
}

func newApp(configPath string, debug bool) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logging.SetupDefaultLogger(level)
	logger := logging.GetLogger("walletbridge")

	adapterCfg, err := cfg.ToAdapterConfig()
	if err != nil {
		return nil, err
	}
	chainID, _ := adapter.ChainID(adapterCfg.Network)

	wallet, err := devwallet.New(devwallet.Config{
		Network:     adapterCfg.Network,
		ChainID:     chainID,
		APIEndpoint: cfg.DevWallet.APIEndpoint,
		AppID:       adapterCfg.AppID,
		Store:       keyStore(cfg, logger),
		Logger:      logger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start development wallet")
	}

	a := &app{
		cfg:     cfg,
		wallet:  wallet,
		bus:     events.NewBus(logger),
		metrics: metrics.NewCollector(10),
		ready:   make(chan struct{}, 1),
		logger:  logger,
	}
	a.metrics.Attach(a.bus)
	a.bus.On(events.ReadyStateChange, func(any) {
		select {
		case a.ready <- struct{}{}:
		default:
		}
	})
	a.bus.On(events.Error, func(p any) {
		logger.Debug("Adapter reported an error.", "error", p)
	})

	probe := envprobe.NewTerminal(os.Stdin, nil)
	a.adapter, err = adapter.New(wallet, probe, adapterCfg,
		adapter.WithEmitter(a.bus),
		adapter.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func keyStore(cfg *config.Config, logger logging.Logger) devwallet.KeyStore {
	if cfg.DevWallet.UseKeyring {
		store := devwallet.NewKeyringStore(cfg.Wallet.AppID, logger)
		if store.IsAvailable() {
			return store
		}
		logger.Warn("System keyring unavailable; the development key will not persist.")
	}
	return &devwallet.MemoryStore{}
}

// waitReady blocks until the provider is detected, the environment is found
// unsupported, or timeout elapses.
func (a *app) waitReady(ctx context.Context, timeout time.Duration) readiness.ReadyState {
	if rs := a.adapter.ReadyState(); rs.Usable() || rs == readiness.Unsupported {
		return rs
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-a.ready:
	case <-timer.C:
	case <-ctx.Done():
	}
	return a.adapter.ReadyState()
}

// connect waits for readiness and connects.
func (a *app) connect(ctx context.Context) error {
	a.waitReady(ctx, a.cfg.Wallet.Timeout)
	return a.adapter.Connect(ctx)
}

func (a *app) close(ctx context.Context) {
	if a.adapter.Connected() {
		a.adapter.Disconnect(ctx)
	}
	_ = a.adapter.Close()
}
