package bridge

// file: internal/wallet/bridge/bridge.go

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/dkoosis/walletbridge/internal/wallet/walleterr"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Bridge is the call surface between the adapter and one provider. Every
// call is a single attempt bounded by the configured timeout.
type Bridge struct {
	provider Provider
	timeout  time.Duration
	logger   logging.Logger
}

// New binds a bridge to provider. A non-positive timeout disables the bound.
func New(provider Provider, timeout time.Duration, logger logging.Logger) (*Bridge, error) {
	if provider == nil {
		return nil, errors.New("bridge: provider is required")
	}
	return &Bridge{
		provider: provider,
		timeout:  timeout,
		logger:   logging.OrNoop(logger).WithField("component", "provider_bridge"),
	}, nil
}

func (b *Bridge) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

// IsConnected asks the provider whether it already holds a session.
func (b *Bridge) IsConnected(ctx context.Context) (bool, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	ok, err := b.provider.IsConnected(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return ok, nil
}

// Connect opens a provider session and reshapes the response into an
// Account. Provider faults are returned with a stack but otherwise as-is.
func (b *Bridge) Connect(ctx context.Context) (session.Account, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	resp, err := b.provider.Connect(ctx)
	if err != nil {
		b.logger.Debug("Provider connect failed.", "error", err)
		return session.Account{}, errors.WithStack(err)
	}
	if resp == nil {
		return session.Account{}, errors.Wrap(walleterr.ErrProviderReturnedNothing, "connect")
	}

	publicKey, err := decodeHex(resp.PublicKey)
	if err != nil {
		return session.Account{}, errors.Wrap(err, "connect: malformed public key")
	}
	authKey, err := decodeHex(resp.AuthKey)
	if err != nil {
		return session.Account{}, errors.Wrap(err, "connect: malformed auth key")
	}

	b.logger.Debug("Provider connect succeeded.", "address", resp.Address)
	return session.Account{
		PublicKey:       publicKey,
		Address:         resp.Address,
		AuthKey:         authKey,
		MinKeysRequired: resp.MinKeysRequired,
	}, nil
}

// CurrentNetwork fetches the provider's endpoint and chain ID. Only call it
// after a successful Connect.
func (b *Bridge) CurrentNetwork(ctx context.Context) (NetworkResponse, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	resp, err := b.provider.Network(ctx)
	if err != nil {
		return NetworkResponse{}, errors.WithStack(err)
	}
	if resp == nil || (resp.API == "" && resp.ChainID == "") {
		return NetworkResponse{}, errors.Wrap(walleterr.ErrProviderReturnedNothing, "network")
	}
	return *resp, nil
}

// Disconnect closes the provider session. Faults come back as DisconnectionFailed.
func (b *Bridge) Disconnect(ctx context.Context) error {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	if err := b.provider.Disconnect(ctx); err != nil {
		b.logger.Warn("Provider disconnect failed.", "error", err)
		return walleterr.Wrap(walleterr.DisconnectionFailed, err)
	}
	return nil
}

// SignTransaction returns the provider's signed bytes. Success with no bytes
// is a SignTransactionFailed fault.
func (b *Bridge) SignTransaction(ctx context.Context, payload Payload) ([]byte, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	signed, err := b.provider.SignTransaction(ctx, payload)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.SignTransactionFailed, err)
	}
	if len(signed) == 0 {
		return nil, walleterr.New(walleterr.SignTransactionFailed, "", walleterr.ErrProviderReturnedNothing)
	}
	return signed, nil
}

// SignAndSubmitTransaction returns the submission hash verbatim.
func (b *Bridge) SignAndSubmitTransaction(ctx context.Context, payload Payload) (SubmitResponse, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	resp, err := b.provider.SignAndSubmitTransaction(ctx, payload)
	if err != nil {
		return SubmitResponse{}, walleterr.Wrap(walleterr.SignAndSubmitFailed, err)
	}
	if resp == nil || resp.Hash == "" {
		return SubmitResponse{}, walleterr.New(walleterr.SignAndSubmitFailed, "", walleterr.ErrProviderReturnedNothing)
	}
	return SubmitResponse{Hash: resp.Hash}, nil
}

// SignMessage passes the provider's response through unchanged.
func (b *Bridge) SignMessage(ctx context.Context, payload SignMessagePayload) (*SignMessageResponse, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	resp, err := b.provider.SignMessage(ctx, payload)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.SignMessageFailed, err)
	}
	if resp == nil {
		return nil, walleterr.New(walleterr.SignMessageFailed, "", walleterr.ErrProviderReturnedNothing)
	}
	return resp, nil
}

// decodeHex decodes a 0x-prefixed hex string. Empty input yields nil.
func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hexutil.Decode(s)
}
