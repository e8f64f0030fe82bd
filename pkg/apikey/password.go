package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"cognichoir/pkg/utils"
)

// passwordHashLen is the PBKDF2 output length for the stored verifier. It
// is longer than the encryption key so the verifier cannot double as one.
const passwordHashLen = 64

// ErrPasswordMismatch is returned when the current master password fails
// verification.
var ErrPasswordMismatch = errors.New("master password mismatch")

// PasswordManager owns the master password lifecycle. The password itself
// is never stored; master_key.json holds a salted PBKDF2-SHA256 verifier.
type PasswordManager struct {
	path string

	mu   sync.Mutex
	hash []byte
	salt []byte
}

type masterKeyDocument struct {
	HashedPassword string `json:"hashed_password"`
	Salt           string `json:"salt"`
}

// NewPasswordManager loads any persisted verifier from master_key.json in
// dataDir. A missing or corrupt file reads as no password set.
func NewPasswordManager(dataDir string) *PasswordManager {
	pm := &PasswordManager{path: filepath.Join(dataDir, "master_key.json")}
	pm.load()
	return pm
}

func (pm *PasswordManager) load() {
	data, err := os.ReadFile(pm.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("Failed to read master key file", "path", pm.path, "error", err)
		}
		return
	}
	var doc masterKeyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("Failed to parse master key file", "path", pm.path, "error", err)
		return
	}
	hash, herr := hex.DecodeString(doc.HashedPassword)
	salt, serr := hex.DecodeString(doc.Salt)
	if herr != nil || serr != nil || len(hash) == 0 || len(salt) == 0 {
		slog.Error("Master key file has malformed fields, ignoring it", "path", pm.path)
		return
	}
	pm.hash = hash
	pm.salt = salt
}

func (pm *PasswordManager) save() error {
	if pm.hash == nil || pm.salt == nil {
		if err := os.Remove(pm.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove master key file: %w", err)
		}
		return nil
	}
	doc, err := json.MarshalIndent(masterKeyDocument{
		HashedPassword: hex.EncodeToString(pm.hash),
		Salt:           hex.EncodeToString(pm.salt),
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pm.path), 0700); err != nil {
		return err
	}
	return utils.AtomicWriteFile(pm.path, doc, 0600)
}

func hashPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, passwordHashLen, sha256.New)
}

// HasMasterPassword reports whether a verifier is set.
func (pm *PasswordManager) HasMasterPassword() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.hash != nil && pm.salt != nil
}

// SetMasterPassword sets or overwrites the master password. A fresh salt is
// generated every time.
func (pm *PasswordManager) SetMasterPassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate password salt: %w", err)
	}
	pm.salt = salt
	pm.hash = hashPassword(password, salt)
	return pm.save()
}

// VerifyMasterPassword reports whether password matches the stored
// verifier. Always false when no password is set.
func (pm *PasswordManager) VerifyMasterPassword(password string) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.hash == nil || pm.salt == nil {
		return false
	}
	return subtle.ConstantTimeCompare(pm.hash, hashPassword(password, pm.salt)) == 1
}

// ChangeMasterPassword replaces the master password after verifying the
// current one. Fails with ErrPasswordMismatch when oldPassword is wrong.
func (pm *PasswordManager) ChangeMasterPassword(oldPassword, newPassword string) error {
	if !pm.VerifyMasterPassword(oldPassword) {
		return ErrPasswordMismatch
	}
	return pm.SetMasterPassword(newPassword)
}

// ClearMasterPassword forgets the verifier and deletes master_key.json.
// Data sealed under the derived key becomes unreadable.
func (pm *PasswordManager) ClearMasterPassword() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.hash = nil
	pm.salt = nil
	return pm.save()
}
