package devwallet

// file: internal/devwallet/keystore.go

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/walletbridge/internal/logging"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service name keys are stored under.
const KeyringService = "walletbridge-devwallet"

// KeyStore persists the development signing key.
type KeyStore interface {
	// LoadKey returns nil, nil when no key is stored.
	LoadKey() (*ecdsa.PrivateKey, error)
	SaveKey(key *ecdsa.PrivateKey) error
	DeleteKey() error
}

// KeyringStore keeps the key hex-encoded in the OS keyring.
type KeyringStore struct {
	user   string
	logger logging.Logger
}

var _ KeyStore = (*KeyringStore)(nil)

// NewKeyringStore stores the key under user, or "default" when user is empty.
func NewKeyringStore(user string, logger logging.Logger) *KeyringStore {
	if user == "" {
		user = "default"
	}
	return &KeyringStore{
		user:   user,
		logger: logging.OrNoop(logger).WithField("component", "devwallet_keyring"),
	}
}

// IsAvailable checks if the OS keyring service is accessible.
func (s *KeyringStore) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		s.logger.Warn("Keyring service is inaccessible.", "error", err)
		return false
	}
	return true
}

// LoadKey implements KeyStore.
func (s *KeyringStore) LoadKey() (*ecdsa.PrivateKey, error) {
	encoded, err := keyring.Get(KeyringService, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			s.logger.Debug("No development key in keyring.", "user", s.user)
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to load key from system keyring")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(encoded, "0x"))
	if err != nil {
		s.logger.Error("Stored development key is corrupted, deleting it.", "error", err)
		_ = s.DeleteKey()
		return nil, errors.Wrap(err, "failed to parse key from system keyring")
	}
	return key, nil
}

// SaveKey implements KeyStore.
func (s *KeyringStore) SaveKey(key *ecdsa.PrivateKey) error {
	if key == nil {
		return errors.New("cannot save nil key to keyring")
	}
	if err := keyring.Set(KeyringService, s.user, hexutil.Encode(crypto.FromECDSA(key))); err != nil {
		s.logger.Error("keyring.Set operation failed.", "error", fmt.Sprintf("%+v", err))
		return errors.Wrap(err, "failed to save key to system keyring")
	}
	s.logger.Info("Development key saved to system keyring.", "user", s.user)
	return nil
}

// DeleteKey implements KeyStore. A missing entry is not an error.
func (s *KeyringStore) DeleteKey() error {
	err := keyring.Delete(KeyringService, s.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "failed to delete key from system keyring")
	}
	return nil
}

// MemoryStore keeps the key in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

var _ KeyStore = (*MemoryStore)(nil)

// LoadKey implements KeyStore.
func (m *MemoryStore) LoadKey() (*ecdsa.PrivateKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.key, nil
}

// SaveKey implements KeyStore.
func (m *MemoryStore) SaveKey(key *ecdsa.PrivateKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
	return nil
}

// DeleteKey implements KeyStore.
func (m *MemoryStore) DeleteKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = nil
	return nil
}

// LoadOrCreateKey returns the stored key, generating and saving one if none
// exists. If the store fails the key is kept in memory only.
func LoadOrCreateKey(store KeyStore, logger logging.Logger) (*ecdsa.PrivateKey, error) {
	logger = logging.OrNoop(logger)
	if store == nil {
		store = &MemoryStore{}
	}

	key, err := store.LoadKey()
	if err != nil {
		logger.Warn("Key store unavailable, using an ephemeral key.", "error", err)
		return crypto.GenerateKey()
	}
	if key != nil {
		return key, nil
	}

	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate development key")
	}
	if err := store.SaveKey(key); err != nil {
		logger.Warn("Could not persist development key; it will not survive restart.", "error", err)
	}
	return key, nil
}
