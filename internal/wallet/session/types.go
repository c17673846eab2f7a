// Package session holds the adapter's mutable connection record and the
// lifecycle state machine that guards it.
package session

// file: internal/wallet/session/types.go

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
)

// NetworkID names a chain network.
type NetworkID string

// Known networks. Devnet exists on the chain but adapters decline to bind to it.
const (
	Mainnet NetworkID = "mainnet"
	Testnet NetworkID = "testnet"
	Devnet  NetworkID = "devnet"
)

// KnownNetworks lists every network name the parser accepts.
var KnownNetworks = []NetworkID{Mainnet, Testnet, Devnet}

// ErrUnsupportedNetwork is returned when binding to a network the adapter excludes.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// Supported reports whether an adapter may be bound to n.
func (n NetworkID) Supported() bool {
	return n == Mainnet || n == Testnet
}

// ParseNetworkID parses a network name case-insensitively. It accepts any
// known network; callers check Supported separately.
func ParseNetworkID(s string) (NetworkID, error) {
	n := NetworkID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownNetworks {
		if n == known {
			return n, nil
		}
	}
	return "", errors.Newf("unknown network %q", s)
}

// Account is the identity reported by the provider for a connected session.
// The zero value means "no account".
type Account struct {
	PublicKey       []byte
	Address         string
	AuthKey         []byte
	MinKeysRequired *int
}

// IsZero reports whether a is the empty account.
func (a Account) IsZero() bool {
	return len(a.PublicKey) == 0 && a.Address == "" && len(a.AuthKey) == 0 && a.MinKeysRequired == nil
}

// Equal compares two accounts field by field.
func (a Account) Equal(b Account) bool {
	if (a.MinKeysRequired == nil) != (b.MinKeysRequired == nil) {
		return false
	}
	if a.MinKeysRequired != nil && *a.MinKeysRequired != *b.MinKeysRequired {
		return false
	}
	return a.Address == b.Address && bytes.Equal(a.PublicKey, b.PublicKey) && bytes.Equal(a.AuthKey, b.AuthKey)
}

func (a Account) clone() Account {
	out := Account{
		PublicKey: bytes.Clone(a.PublicKey),
		Address:   a.Address,
		AuthKey:   bytes.Clone(a.AuthKey),
	}
	if a.MinKeysRequired != nil {
		v := *a.MinKeysRequired
		out.MinKeysRequired = &v
	}
	return out
}

// NetworkInfo describes the network the session is bound to. APIEndpoint and
// ChainID are only populated while connected.
type NetworkInfo struct {
	Name        NetworkID
	APIEndpoint string
	ChainID     string
}

// Snapshot is a consistent read of the whole session record.
type Snapshot struct {
	Connecting bool
	Connected  bool
	Account    Account
	Network    NetworkInfo
}
