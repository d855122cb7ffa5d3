// Package secrets stores the Supabase personal access token outside the
// process environment. It prefers the OS keychain (macOS Keychain, Linux
// Secret Service) and falls back to a 0600 JSON file for environments
// without one (CI, containers).
package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// serviceName is the keychain service identifier for all stored credentials.
const serviceName = "supabase-mcp"

// AccessTokenKey is the key under which the personal access token is stored.
const AccessTokenKey = "access-token"

// ErrNotFound is returned when a credential key does not exist.
var ErrNotFound = fmt.Errorf("credential not found")

// Store provides credential storage.
type Store interface {
	// Get retrieves a credential by key. Returns ErrNotFound if not present.
	Get(key string) (string, error)
	// Set stores a credential under the given key, replacing any existing value.
	Set(key, value string) error
	// Delete removes a credential. No error if the key doesn't exist.
	Delete(key string) error
}

// New returns the best available Store for the current environment. It
// probes the OS keychain with a set+delete cycle and falls back to a
// file-based store in dir when the keychain is unavailable.
func New(dir string) Store {
	ks := &keychainStore{}
	probeKey := "__supabase_mcp_probe__"
	if err := ks.Set(probeKey, "ok"); err != nil {
		return newFileStore(dir)
	}
	_ = ks.Delete(probeKey)
	return ks
}

// keychainStore wraps zalando/go-keyring for OS keychain access.
type keychainStore struct{}

func (k *keychainStore) Get(key string) (string, error) {
	val, err := keyring.Get(serviceName, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return val, nil
}

func (k *keychainStore) Set(key, value string) error {
	return keyring.Set(serviceName, key, value)
}

func (k *keychainStore) Delete(key string) error {
	err := keyring.Delete(serviceName, key)
	if err != nil && errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
