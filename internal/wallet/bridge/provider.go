// Package bridge forwards the adapter's lifecycle and signing calls to the
// external wallet provider and reshapes what comes back.
package bridge

// file: internal/wallet/bridge/provider.go

import (
	"context"
	"encoding/json"
)

// Payload is an opaque transaction payload. The bridge never inspects it.
type Payload = json.RawMessage

// ConnectResponse is what a provider returns from Connect. Keys are
// 0x-prefixed hex strings as providers report them.
type ConnectResponse struct {
	PublicKey       string `json:"publicKey"`
	Address         string `json:"address"`
	AuthKey         string `json:"authKey"`
	MinKeysRequired *int   `json:"minKeysRequired,omitempty"`
}

// NetworkResponse is what a provider returns from Network.
type NetworkResponse struct {
	API     string `json:"api"`
	ChainID string `json:"chainId"`
}

// SubmitResponse carries the submission hash exactly as the provider reported it.
type SubmitResponse struct {
	Hash string `json:"hash"`
}

// SignMessagePayload asks the provider to sign an arbitrary message. The
// boolean fields request that the provider include that data in the signed
// envelope.
type SignMessagePayload struct {
	Address     bool   `json:"address,omitempty"`
	Application bool   `json:"application,omitempty"`
	ChainID     bool   `json:"chainId,omitempty"`
	Message     string `json:"message"`
	Nonce       string `json:"nonce"`
}

// SignMessageResponse is the provider's signed message envelope.
type SignMessageResponse struct {
	Address     string `json:"address,omitempty"`
	Application string `json:"application,omitempty"`
	ChainID     int    `json:"chainId,omitempty"`
	FullMessage string `json:"fullMessage"`
	Message     string `json:"message"`
	Nonce       string `json:"nonce"`
	Prefix      string `json:"prefix"`
	Signature   string `json:"signature"`
}

// Provider is the external wallet capability. Implementations own key
// material, signing and the wire protocol; the bridge assumes only the
// result and fault shapes declared here.
type Provider interface {
	IsConnected(ctx context.Context) (bool, error)
	Connect(ctx context.Context) (*ConnectResponse, error)
	Disconnect(ctx context.Context) error
	Network(ctx context.Context) (*NetworkResponse, error)
	SignTransaction(ctx context.Context, payload Payload) ([]byte, error)
	SignAndSubmitTransaction(ctx context.Context, payload Payload) (*SubmitResponse, error)
	SignMessage(ctx context.Context, payload SignMessagePayload) (*SignMessageResponse, error)
}
