// ABOUTME: OS keychain credential store and seal-key management via go-keyring
// ABOUTME: The pair is stored as one JSON item so it is replaced atomically

package credentials

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	zkr "github.com/zalando/go-keyring"
)

const (
	keyringService     = "predictera"
	keyringPairAccount = "credentials"
	keyringSealAccount = "credentials-seal-key"
)

// KeyringStore keeps the pair in the OS keychain.
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a KeyringStore. An empty service uses "predictera".
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = keyringService
	}
	return &KeyringStore{service: service}
}

// Load reads the pair from the keychain.
func (k *KeyringStore) Load(_ context.Context) (Pair, error) {
	raw, err := zkr.Get(k.service, keyringPairAccount)
	if errors.Is(err, zkr.ErrNotFound) {
		return Pair{}, nil
	}
	if err != nil {
		return Pair{}, fmt.Errorf("keychain get: %w", err)
	}

	var pair Pair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return Pair{}, fmt.Errorf("decoding keychain item: %w", err)
	}
	return pair, nil
}

// Save writes the pair to the keychain.
func (k *KeyringStore) Save(_ context.Context, pair Pair) error {
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encoding keychain item: %w", err)
	}
	if err := zkr.Set(k.service, keyringPairAccount, string(raw)); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

// Clear removes the pair from the keychain.
func (k *KeyringStore) Clear(_ context.Context) error {
	if err := zkr.Delete(k.service, keyringPairAccount); err != nil && !errors.Is(err, zkr.ErrNotFound) {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// SealKey returns the credentials-file seal key from the keychain,
// generating and storing a new one on first use.
func SealKey(service string) (*[32]byte, error) {
	if service == "" {
		service = keyringService
	}

	var key [32]byte
	hexKey, err := zkr.Get(service, keyringSealAccount)
	switch {
	case err == nil:
		raw, err := hex.DecodeString(hexKey)
		if err != nil || len(raw) != len(key) {
			return nil, fmt.Errorf("keychain seal key is malformed")
		}
		copy(key[:], raw)
		return &key, nil
	case errors.Is(err, zkr.ErrNotFound):
		if _, err := rand.Read(key[:]); err != nil {
			return nil, fmt.Errorf("generating seal key: %w", err)
		}
		if err := zkr.Set(service, keyringSealAccount, hex.EncodeToString(key[:])); err != nil {
			return nil, fmt.Errorf("keychain set: %w", err)
		}
		return &key, nil
	default:
		return nil, fmt.Errorf("keychain get: %w", err)
	}
}
