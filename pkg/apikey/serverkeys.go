package apikey

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"cognichoir/pkg/utils"
)

// ErrKeyNameExists is returned when adding a server key under a taken name.
var ErrKeyNameExists = errors.New("server key name already exists")

// ServerKeyManager handles the named keys that authenticate requests to the
// local API server. Secrets live in the same credential backend as provider
// keys; only the list of key names is kept in a plain JSON index so the UI
// can enumerate them without touching the store.
type ServerKeyManager struct {
	backend   store
	indexPath string

	mu    sync.Mutex
	names []string
}

// NewServerKeyManager creates a server key registry sharing the credential
// backend of the given Manager.
func NewServerKeyManager(m *Manager, dataDir string) *ServerKeyManager {
	sk := &ServerKeyManager{
		backend:   m.backend,
		indexPath: filepath.Join(dataDir, "server_key_names.json"),
	}
	sk.loadNames()
	return sk
}

func (sk *ServerKeyManager) loadNames() {
	data, err := os.ReadFile(sk.indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read server key index", "path", sk.indexPath, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &sk.names); err != nil {
		slog.Error("Failed to parse server key index", "path", sk.indexPath, "error", err)
		sk.names = nil
	}
}

func (sk *ServerKeyManager) saveNames() error {
	if err := os.MkdirAll(filepath.Dir(sk.indexPath), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sk.names, "", "  ")
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(sk.indexPath, data, 0600)
}

// server key secrets share the provider backend under their own namespace
func serverKeyEntry(name string) string {
	return "cc_" + name
}

// AddKey registers a new named server key and returns the generated secret.
// The secret is shown once; afterwards only validation is possible.
func (sk *ServerKeyManager) AddKey(name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}

	sk.mu.Lock()
	defer sk.mu.Unlock()

	for _, n := range sk.names {
		if n == name {
			return "", ErrKeyNameExists
		}
	}

	secret := utils.GenerateID() + utils.GenerateID()
	if err := sk.backend.set(serverKeyEntry(name), secret); err != nil {
		return "", err
	}

	sk.names = append(sk.names, name)
	sort.Strings(sk.names)
	if err := sk.saveNames(); err != nil {
		return "", err
	}
	return secret, nil
}

// DeleteKey removes a named server key and its secret.
func (sk *ServerKeyManager) DeleteKey(name string) error {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	kept := sk.names[:0]
	found := false
	for _, n := range sk.names {
		if n == name {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return nil
	}
	sk.names = kept

	if err := sk.backend.delete(serverKeyEntry(name)); err != nil {
		slog.Error("Failed to delete server key secret", "name", name, "error", err)
	}
	return sk.saveNames()
}

// ListNames returns the registered server key names.
func (sk *ServerKeyManager) ListNames() []string {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	out := make([]string, len(sk.names))
	copy(out, sk.names)
	return out
}

// Validate reports whether the provided secret matches any registered key.
func (sk *ServerKeyManager) Validate(provided string) bool {
	if provided == "" {
		return false
	}

	sk.mu.Lock()
	names := make([]string, len(sk.names))
	copy(names, sk.names)
	sk.mu.Unlock()

	for _, name := range names {
		secret, err := sk.backend.get(serverKeyEntry(name))
		if err != nil {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) == 1 {
			return true
		}
	}
	return false
}
