// Package adapter composes the readiness detector, session state and provider
// bridge into the wallet adapter's public contract.
package adapter

// file: internal/wallet/adapter/adapter.go

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
	"github.com/dkoosis/walletbridge/internal/wallet/bridge"
	"github.com/dkoosis/walletbridge/internal/wallet/events"
	"github.com/dkoosis/walletbridge/internal/wallet/readiness"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/dkoosis/walletbridge/internal/wallet/walleterr"
)

// Snapshot is a consistent read of the adapter's state.
type Snapshot struct {
	ReadyState readiness.ReadyState
	session.Snapshot
}

// Adapter drives one provider session at a time. All methods are safe for
// concurrent use.
type Adapter struct {
	cfg      Config
	bridge   *bridge.Bridge
	state    *session.State
	detector *readiness.Detector
	emitter  events.Emitter
	logger   logging.Logger

	closeOnce sync.Once
}

// Option configures an Adapter.
type Option func(*options)

type options struct {
	emitter      events.Emitter
	logger       logging.Logger
	detectorOpts []readiness.Option
}

// WithEmitter sets the event sink. Without it events are discarded.
func WithEmitter(e events.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithLogger sets the adapter's logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithDetectorOptions passes extra options to the readiness detector.
func WithDetectorOptions(opts ...readiness.Option) Option {
	return func(o *options) { o.detectorOpts = append(o.detectorOpts, opts...) }
}

// New builds an adapter bound to provider and starts readiness detection.
// Call Close to stop detection.
func New(provider bridge.Provider, probe readiness.EnvironmentProbe, cfg Config, opts ...Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid adapter config")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.emitter == nil {
		o.emitter = events.Discard{}
	}
	logger := logging.OrNoop(o.logger).WithField("component", "wallet_adapter")

	b, err := bridge.New(provider, cfg.Timeout, logger)
	if err != nil {
		return nil, err
	}
	state, err := session.New(cfg.Network, logger)
	if err != nil {
		return nil, err
	}

	a := &Adapter{
		cfg:     cfg,
		bridge:  b,
		state:   state,
		emitter: o.emitter,
		logger:  logger,
	}

	detectorOpts := []readiness.Option{
		readiness.WithInterval(cfg.PollInterval),
		readiness.WithLogger(logger),
	}
	detectorOpts = append(detectorOpts, o.detectorOpts...)
	detectorOpts = append(detectorOpts, readiness.WithOnChange(func(rs readiness.ReadyState) {
		a.emitter.Emit(events.ReadyStateChange, rs)
	}))
	a.detector = readiness.NewDetector(probe, detectorOpts...)
	a.detector.Start(context.Background())

	logger.Debug("Wallet adapter created.", "network", cfg.Network, "ready_state", a.detector.State())
	return a, nil
}

// Close stops readiness detection. It does not disconnect the session.
func (a *Adapter) Close() error {
	a.closeOnce.Do(a.detector.Stop)
	return nil
}

// Connect opens a provider session. It returns nil without doing anything
// when a session is already connected or a connect is in flight. Provider
// faults are returned as-is; the same error is published on the error event.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.state.Connected() || a.state.Connecting() {
		return nil
	}
	if rs := a.detector.State(); !rs.Usable() {
		err := walleterr.New(walleterr.NotReady, "wallet not ready: "+string(rs), nil)
		a.emitError(err)
		return err
	}

	attemptCtx, started := a.state.BeginConnect(ctx)
	if !started {
		return nil
	}

	account, err := func() (session.Account, error) {
		defer a.state.EndConnect()
		return a.attempt(ctx, attemptCtx)
	}()
	if err != nil {
		a.logger.Warn("Wallet connect failed.", "error", err)
		a.emitError(err)
		return err
	}

	a.logger.Info("Wallet connected.", "address", account.Address, "network", a.cfg.Network)
	a.emitter.Emit(events.Connect, account)
	return nil
}

// attempt runs the provider side of a connect. Nothing is recorded unless
// every step succeeds; a Disconnect during the attempt discards it.
func (a *Adapter) attempt(ctx, attemptCtx context.Context) (session.Account, error) {
	account, network, err := a.connectProvider(attemptCtx)

	superseded := attemptCtx.Err() != nil && ctx.Err() == nil
	if err == nil && !superseded {
		err = a.state.CommitConnect(ctx, account, network.API, network.ChainID)
		superseded = errors.Is(err, session.ErrConnectSuperseded)
	}
	if superseded {
		if !account.IsZero() {
			if derr := a.bridge.Disconnect(context.WithoutCancel(ctx)); derr != nil {
				a.logger.Warn("Failed to release superseded provider session.", "error", derr)
			}
		}
		a.state.AbortConnect(ctx)
		return session.Account{}, walleterr.New(walleterr.NotConnected, "connect superseded by disconnect", session.ErrConnectSuperseded)
	}
	if err != nil {
		a.state.AbortConnect(ctx)
		return session.Account{}, err
	}
	return account, nil
}

func (a *Adapter) connectProvider(ctx context.Context) (session.Account, bridge.NetworkResponse, error) {
	stale, err := a.bridge.IsConnected(ctx)
	if err != nil {
		return session.Account{}, bridge.NetworkResponse{}, err
	}
	if stale {
		a.logger.Debug("Provider holds a stale session; disconnecting first.")
		if err := a.bridge.Disconnect(ctx); err != nil {
			return session.Account{}, bridge.NetworkResponse{}, err
		}
	}

	account, err := a.bridge.Connect(ctx)
	if err != nil {
		return session.Account{}, bridge.NetworkResponse{}, err
	}
	network, err := a.bridge.CurrentNetwork(ctx)
	if err != nil {
		return account, bridge.NetworkResponse{}, err
	}
	return account, network, nil
}

// Disconnect clears the session and never fails. The provider is only called
// when a session existed; a provider fault is published as a
// DisconnectionFailed error event. The disconnect event always fires.
func (a *Adapter) Disconnect(ctx context.Context) {
	if a.state.Disconnect(ctx) {
		if err := a.bridge.Disconnect(ctx); err != nil {
			a.emitError(err)
		}
		a.logger.Info("Wallet disconnected.")
	}
	a.emitter.Emit(events.Disconnect, nil)
}

// SignTransaction asks the provider to sign payload. The provider is called
// even without a session; results never touch session state.
func (a *Adapter) SignTransaction(ctx context.Context, payload bridge.Payload) ([]byte, error) {
	signed, err := a.bridge.SignTransaction(ctx, payload)
	if err != nil {
		a.emitError(err)
		return nil, err
	}
	return signed, nil
}

// SignAndSubmitTransaction signs and submits payload, returning the
// provider's hash verbatim.
func (a *Adapter) SignAndSubmitTransaction(ctx context.Context, payload bridge.Payload) (bridge.SubmitResponse, error) {
	resp, err := a.bridge.SignAndSubmitTransaction(ctx, payload)
	if err != nil {
		a.emitError(err)
		return bridge.SubmitResponse{}, err
	}
	return resp, nil
}

// SignMessage asks the provider to sign an arbitrary message.
func (a *Adapter) SignMessage(ctx context.Context, payload bridge.SignMessagePayload) (*bridge.SignMessageResponse, error) {
	resp, err := a.bridge.SignMessage(ctx, payload)
	if err != nil {
		a.emitError(err)
		return nil, err
	}
	return resp, nil
}

// OnAccountChange requires a connected session and otherwise does nothing.
func (a *Adapter) OnAccountChange(_ context.Context) error {
	return a.requireSession(walleterr.AccountChangeFailed)
}

// OnNetworkChange requires a connected session and otherwise does nothing.
func (a *Adapter) OnNetworkChange(_ context.Context) error {
	return a.requireSession(walleterr.NetworkChangeFailed)
}

func (a *Adapter) requireSession(kind walleterr.Kind) error {
	if a.state.Connected() {
		return nil
	}
	err := walleterr.New(kind, "", walleterr.New(walleterr.NotConnected, "", nil))
	a.emitError(err)
	return err
}

func (a *Adapter) emitError(err error) {
	a.emitter.Emit(events.Error, err)
}

// Account returns the connected account, or the zero Account.
func (a *Adapter) Account() session.Account { return a.state.Account() }

// Network returns the bound network and, while connected, its endpoint and chain ID.
func (a *Adapter) Network() session.NetworkInfo { return a.state.Network() }

// Connecting reports whether a connect is in flight.
func (a *Adapter) Connecting() bool { return a.state.Connecting() }

// Connected reports whether a session is connected.
func (a *Adapter) Connected() bool { return a.state.Connected() }

// ReadyState returns the readiness detector's current state.
func (a *Adapter) ReadyState() readiness.ReadyState { return a.detector.State() }

// Snapshot returns readiness and session state together.
func (a *Adapter) Snapshot() Snapshot {
	return Snapshot{ReadyState: a.detector.State(), Snapshot: a.state.Snapshot()}
}

// Config returns the construction config.
func (a *Adapter) Config() Config { return a.cfg }

// Name returns the wallet's display name.
func (a *Adapter) Name() string { return Name }

// URL returns the wallet's download page.
func (a *Adapter) URL() string { return URL }
