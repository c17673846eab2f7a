// Package devwallet is an in-process wallet provider for local development
// and demos. It holds a secp256k1 key and signs whatever it is asked to.
package devwallet

// file: internal/devwallet/wallet.go

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
	"github.com/dkoosis/walletbridge/internal/wallet/bridge"
	"github.com/dkoosis/walletbridge/internal/wallet/session"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// MessagePrefix starts every signed message envelope.
const MessagePrefix = "APTOS"

// DefaultEndpoints are the fullnode endpoints reported per network.
var DefaultEndpoints = map[session.NetworkID]string{
	session.Mainnet: "https://fullnode.mainnet.aptoslabs.com/v1",
	session.Testnet: "https://fullnode.testnet.aptoslabs.com/v1",
}

// ErrNotConnected is returned by operations that need a connected wallet.
var ErrNotConnected = errors.New("devwallet: not connected")

// Faults injects provider failures. A nil field means the call succeeds.
type Faults struct {
	IsConnected     error
	Connect         error
	Disconnect      error
	Network         error
	SignTransaction error
	SignAndSubmit   error
	SignMessage     error
}

// Config configures a Wallet.
type Config struct {
	Network     session.NetworkID
	ChainID     int
	APIEndpoint string
	AppID       string
	Store       KeyStore
	Logger      logging.Logger
}

// Wallet implements bridge.Provider.
type Wallet struct {
	mu        sync.Mutex
	key       *ecdsa.PrivateKey
	connected bool
	faults    Faults

	chainID     int
	apiEndpoint string
	appID       string
	logger      logging.Logger
}

var _ bridge.Provider = (*Wallet)(nil)

// New loads or creates the signing key and returns a disconnected wallet.
func New(cfg Config) (*Wallet, error) {
	logger := logging.OrNoop(cfg.Logger).WithField("component", "devwallet")

	key, err := LoadOrCreateKey(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = DefaultEndpoints[cfg.Network]
	}
	if endpoint == "" {
		return nil, errors.Newf("devwallet: no endpoint for network %q", cfg.Network)
	}

	w := &Wallet{
		key:         key,
		chainID:     cfg.ChainID,
		apiEndpoint: endpoint,
		appID:       cfg.AppID,
		logger:      logger,
	}
	logger.Debug("Development wallet ready.", "address", w.Address(), "network", cfg.Network)
	return w, nil
}

// SetFaults replaces the injected faults.
func (w *Wallet) SetFaults(f Faults) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.faults = f
}

// Address returns the wallet's address.
func (w *Wallet) Address() string {
	return crypto.PubkeyToAddress(w.key.PublicKey).Hex()
}

// PublicKey returns the uncompressed public key.
func (w *Wallet) PublicKey() []byte {
	return crypto.FromECDSAPub(&w.key.PublicKey)
}

// IsConnected implements bridge.Provider.
func (w *Wallet) IsConnected(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(ctx, w.faults.IsConnected); err != nil {
		return false, err
	}
	return w.connected, nil
}

// Connect implements bridge.Provider.
func (w *Wallet) Connect(ctx context.Context) (*bridge.ConnectResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(ctx, w.faults.Connect); err != nil {
		return nil, err
	}
	w.connected = true

	pub := w.PublicKey()
	minKeys := 1
	return &bridge.ConnectResponse{
		PublicKey:       hexutil.Encode(pub),
		Address:         w.Address(),
		AuthKey:         hexutil.Encode(crypto.Keccak256(pub)),
		MinKeysRequired: &minKeys,
	}, nil
}

// Disconnect implements bridge.Provider.
func (w *Wallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.check(ctx, w.faults.Disconnect); err != nil {
		return err
	}
	w.connected = false
	return nil
}

// Network implements bridge.Provider.
func (w *Wallet) Network(ctx context.Context) (*bridge.NetworkResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(ctx, w.faults.Network); err != nil {
		return nil, err
	}
	return &bridge.NetworkResponse{API: w.apiEndpoint, ChainID: strconv.Itoa(w.chainID)}, nil
}

// SignTransaction signs the keccak256 digest of payload and returns the
// 65-byte [R || S || V] signature.
func (w *Wallet) SignTransaction(ctx context.Context, payload bridge.Payload) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(ctx, w.faults.SignTransaction); err != nil {
		return nil, err
	}
	return w.sign(payload)
}

// SignAndSubmitTransaction signs payload and reports the keccak256 of the
// signature as the submission hash. Nothing leaves the process.
func (w *Wallet) SignAndSubmitTransaction(ctx context.Context, payload bridge.Payload) (*bridge.SubmitResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(ctx, w.faults.SignAndSubmit); err != nil {
		return nil, err
	}
	sig, err := w.sign(payload)
	if err != nil {
		return nil, err
	}
	hash := hexutil.Encode(crypto.Keccak256(sig))
	w.logger.Info("Transaction submitted.", "hash", hash)
	return &bridge.SubmitResponse{Hash: hash}, nil
}

// SignMessage builds the message envelope, signs it, and returns both.
func (w *Wallet) SignMessage(ctx context.Context, payload bridge.SignMessagePayload) (*bridge.SignMessageResponse, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(ctx, w.faults.SignMessage); err != nil {
		return nil, err
	}

	resp := &bridge.SignMessageResponse{
		Message: payload.Message,
		Nonce:   payload.Nonce,
		Prefix:  MessagePrefix,
	}
	if payload.Address {
		resp.Address = w.Address()
	}
	if payload.Application {
		resp.Application = w.application()
	}
	if payload.ChainID {
		resp.ChainID = w.chainID
	}
	resp.FullMessage = fullMessage(resp, payload)

	sig, err := w.sign([]byte(resp.FullMessage))
	if err != nil {
		return nil, err
	}
	resp.Signature = hexutil.Encode(sig)
	return resp, nil
}

func (w *Wallet) application() string {
	if w.appID != "" {
		return w.appID
	}
	return "walletbridge"
}

func (w *Wallet) sign(data []byte) ([]byte, error) {
	sig, err := crypto.Sign(crypto.Keccak256(data), w.key)
	if err != nil {
		return nil, errors.Wrap(err, "devwallet: signing failed")
	}
	return sig, nil
}

func (w *Wallet) check(ctx context.Context, fault error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fault
}

func (w *Wallet) checkConnected(ctx context.Context, fault error) error {
	if err := w.check(ctx, fault); err != nil {
		return err
	}
	if !w.connected {
		return ErrNotConnected
	}
	return nil
}

// fullMessage renders the envelope that is actually signed.
func fullMessage(resp *bridge.SignMessageResponse, req bridge.SignMessagePayload) string {
	var b strings.Builder
	b.WriteString(resp.Prefix)
	if req.Address {
		fmt.Fprintf(&b, "\naddress: %s", resp.Address)
	}
	if req.Application {
		fmt.Fprintf(&b, "\napplication: %s", resp.Application)
	}
	if req.ChainID {
		fmt.Fprintf(&b, "\nchainId: %d", resp.ChainID)
	}
	fmt.Fprintf(&b, "\nmessage: %s", resp.Message)
	fmt.Fprintf(&b, "\nnonce: %s", resp.Nonce)
	return b.String()
}

// Verify reports whether sig is a signature of data by the holder of pub.
func Verify(pub, data, sig []byte) bool {
	if len(sig) != crypto.SignatureLength {
		return false
	}
	return crypto.VerifySignature(pub, crypto.Keccak256(data), sig[:crypto.RecoveryIDOffset])
}
