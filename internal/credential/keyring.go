// Package credential stores secrets (OAuth tokens, IMAP passwords) in the
// system keyring.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "mailsweep"

// ErrNotFound is returned when no secret is stored under the key.
var ErrNotFound = errors.New("credential not found")

// Ring reads and writes secrets for one config directory.
type Ring struct {
	configDir string
	open      func(keyring.Config) (keyring.Keyring, error)
}

// New returns a Ring whose file fallback lives under configDir.
func New(configDir string) *Ring {
	return &Ring{configDir: configDir, open: keyring.Open}
}

func (r *Ring) keyring() (keyring.Keyring, error) {
	ring, err := r.open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(r.configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("mailsweep-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a secret by key.
func (r *Ring) Get(key string) ([]byte, error) {
	ring, err := r.keyring()
	if err != nil {
		return nil, err
	}
	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", key, err)
	}
	return item.Data, nil
}

// Set stores a secret by key.
func (r *Ring) Set(key string, value []byte) error {
	ring, err := r.keyring()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: key, Data: value, Label: "mailsweep " + key}); err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a secret. Missing keys are not an error.
func (r *Ring) Delete(key string) error {
	ring, err := r.keyring()
	if err != nil {
		return err
	}
	if err := ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
