// Package apikey stores provider credentials in the OS credential store,
// falling back transparently to a local JSON file when no keyring is
// reachable. Callers never see which backend served a request.
package apikey

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
)

// ErrEmptyName is returned when a provider name or key value is blank.
var ErrEmptyName = errors.New("provider name and key cannot be empty")

// Manager handles provider API keys. One instance is constructed at startup
// and handed to whatever needs credentials; nothing here is ambient global
// state, which keeps bot and chatroom code testable without a real keyring.
type Manager struct {
	backend store
}

// NewManager probes the OS keyring and selects the backend. dataDir is where
// the fallback api_keys.json lives when the keyring is unusable.
func NewManager(dataDir string) *Manager {
	fallbackPath := filepath.Join(dataDir, "api_keys.json")

	ks := keyringStore{}
	if err := ks.probe(); err != nil {
		slog.Warn("OS keyring unavailable, falling back to JSON key file",
			"path", fallbackPath, "error", err)
		return &Manager{backend: newFileStore(fallbackPath)}
	}

	slog.Debug("Using OS keyring for API key storage")
	return &Manager{backend: ks}
}

// NewManagerWithMasterPassword probes the keyring like NewManager, but when
// the fallback file is needed its values are sealed with a key derived from
// the master password, so api_keys.json never holds a plaintext secret.
func NewManagerWithMasterPassword(dataDir, masterPassword string) (*Manager, error) {
	ks := keyringStore{}
	if err := ks.probe(); err == nil {
		slog.Debug("Using OS keyring for API key storage")
		return &Manager{backend: ks}, nil
	}

	enc, err := NewEncryptionService(dataDir, masterPassword)
	if err != nil {
		return nil, err
	}
	fallbackPath := filepath.Join(dataDir, "api_keys.json")
	slog.Warn("OS keyring unavailable, falling back to encrypted JSON key file", "path", fallbackPath)
	return &Manager{backend: newEncryptedFileStore(fallbackPath, enc)}, nil
}

// NewManagerWithFallback builds a manager pinned to the JSON file backend.
// Used by tests and by deployments that must not touch the OS keyring.
func NewManagerWithFallback(dataDir string) *Manager {
	return &Manager{backend: newFileStore(filepath.Join(dataDir, "api_keys.json"))}
}

// NewManagerWithEncryption builds a manager pinned to the JSON file backend
// with values sealed by enc.
func NewManagerWithEncryption(dataDir string, enc *EncryptionService) *Manager {
	return &Manager{backend: newEncryptedFileStore(filepath.Join(dataDir, "api_keys.json"), enc)}
}

// SetKey saves the API key for a provider.
func (m *Manager) SetKey(provider, key string) error {
	if provider == "" || key == "" {
		return ErrEmptyName
	}
	if err := m.backend.set(provider, key); err != nil {
		return fmt.Errorf("failed to store key for %s: %w", provider, err)
	}
	return nil
}

// GetKey loads the API key for a provider. The second return value reports
// whether a key was present; backend errors are logged and read as absent.
func (m *Manager) GetKey(provider string) (string, bool) {
	if provider == "" {
		return "", false
	}
	v, err := m.backend.get(provider)
	if err != nil {
		if !errors.Is(err, errKeyNotFound) {
			slog.Error("Failed to read key from credential store", "provider", provider, "error", err)
		}
		return "", false
	}
	return v, true
}

// DeleteKey removes the API key for a provider. Deleting an absent key is a
// no-op.
func (m *Manager) DeleteKey(provider string) error {
	if provider == "" {
		return ErrEmptyName
	}
	if err := m.backend.delete(provider); err != nil {
		return fmt.Errorf("failed to delete key for %s: %w", provider, err)
	}
	return nil
}
