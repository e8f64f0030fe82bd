package apikey

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/zalando/go-keyring"

	"cognichoir/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// serviceNamePrefix namespaces our entries inside the OS credential store to
// avoid colliding with other applications.
const serviceNamePrefix = "CogniChoir"

// errKeyNotFound is the internal absent-key signal shared by both backends.
var errKeyNotFound = errors.New("key not found")

// store abstracts the two credential backends. Callers never learn which
// backend served a request.
type store interface {
	get(name string) (string, error)
	set(name, value string) error
	delete(name string) error
}

// keyringStore keeps secrets in the OS-native credential store.
type keyringStore struct{}

// probe checks that the OS keyring is actually usable. A missing entry is a
// healthy answer; anything else means the backend is absent or locked.
func (keyringStore) probe() error {
	_, err := keyring.Get(serviceNamePrefix+"_probe", "probe")
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func (keyringStore) get(name string) (string, error) {
	v, err := keyring.Get(serviceNamePrefix+"_"+name, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (keyringStore) set(name, value string) error {
	return keyring.Set(serviceNamePrefix+"_"+name, name, value)
}

func (keyringStore) delete(name string) error {
	err := keyring.Delete(serviceNamePrefix+"_"+name, name)
	if errors.Is(err, keyring.ErrNotFound) {
		// Deleting an absent entry is fine.
		return nil
	}
	return err
}

// fileStore is the JSON fallback used when the keyring is unavailable. The
// whole mapping is rewritten atomically on every mutation. With an attached
// EncryptionService the map holds sealed values; they are opened on read
// and sealed on write, so the file never carries a plaintext secret.
type fileStore struct {
	path string
	enc  *EncryptionService

	mu   sync.Mutex
	keys map[string]string
}

func newFileStore(path string) *fileStore {
	return newEncryptedFileStore(path, nil)
}

func newEncryptedFileStore(path string, enc *EncryptionService) *fileStore {
	fs := &fileStore{path: path, enc: enc, keys: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read fallback key file", "path", path, "error", err)
		}
		return fs
	}
	if err := json.Unmarshal(data, &fs.keys); err != nil {
		slog.Error("Failed to parse fallback key file", "path", path, "error", err)
		fs.keys = make(map[string]string)
	}
	return fs
}

func (fs *fileStore) get(name string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	v, ok := fs.keys[name]
	if !ok {
		return "", errKeyNotFound
	}
	if fs.enc != nil {
		plain, err := fs.enc.Decrypt(v)
		if err != nil {
			slog.Error("Failed to decrypt stored key", "name", name, "error", err)
			return "", err
		}
		return plain, nil
	}
	return v, nil
}

func (fs *fileStore) set(name, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.enc != nil {
		sealed, err := fs.enc.Encrypt(value)
		if err != nil {
			return err
		}
		value = sealed
	}
	fs.keys[name] = value
	return fs.flush()
}

func (fs *fileStore) delete(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.keys[name]; !ok {
		return nil
	}
	delete(fs.keys, name)
	return fs.flush()
}

func (fs *fileStore) flush() error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fs.keys, "", "  ")
	if err != nil {
		return err
	}
	return utils.AtomicWriteFile(fs.path, data, 0600)
}
